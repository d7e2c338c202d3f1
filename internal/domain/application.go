package domain

import "time"

// Application is one monitored app/environment pair and its
// verification policy configuration.
type Application struct {
	ID             string
	Name           string
	Environment    string
	Repository     string // "owner/name"
	BaseBranch     string
	ImplicitPolicy PolicyMode
	AuditStartYear int
	RepoStatus     RepoAuthStatus
	CreatedAt      *time.Time
	UpdatedAt      *time.Time
}
