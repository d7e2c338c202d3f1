package domain

import "time"

// Deployment is one deployment of an application to its environment,
// together with its current verification standing.
type Deployment struct {
	ID            string
	ApplicationID string
	CommitSHA     string
	DeployedAt    time.Time
	Status        VerificationStatus
	HasFourEyes   bool
	VerifiedAt    *time.Time
	CreatedAt     *time.Time
}

// StatusAuditEntry records one status or flag transition on a deployment.
type StatusAuditEntry struct {
	ID           int64
	DeploymentID string
	FromStatus   VerificationStatus
	ToStatus     VerificationStatus
	FromFourEyes bool
	ToFourEyes   bool
	Actor        string
	Note         string
	ChangedAt    time.Time
}

// VerificationRun retains one full engine result for historical
// comparison against later recomputations.
type VerificationRun struct {
	ID           string
	DeploymentID string
	Result       VerificationResult
	RanAt        time.Time
}
