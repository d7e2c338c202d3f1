package domain

import "errors"

var (
	ErrApplicationExists   = errors.New("application already exists")
	ErrApplicationNotFound = errors.New("application not found")
	ErrDeploymentExists    = errors.New("deployment already exists")
	ErrDeploymentNotFound  = errors.New("deployment not found")
	ErrBeforeAuditStart    = errors.New("deployment predates the audit start year")
	ErrStatusOverridden    = errors.New("deployment status is a manual override")
	ErrSnapshotNotFound    = errors.New("snapshot not found")
	ErrSnapshotStale       = errors.New("snapshot schema version is stale")
	ErrHistoryUnavailable  = errors.New("source control history no longer available")
	ErrUpstreamTransient   = errors.New("transient source control failure")
)
