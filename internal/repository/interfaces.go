package repository

import (
	"context"

	"github.com/navikt/pensjon-deployment-audit-sub002/internal/domain"
)

// ApplicationRepository stores monitored applications and their policy
// configuration.
type ApplicationRepository interface {
	Create(ctx context.Context, app *domain.Application) (*domain.Application, error)
	GetByID(ctx context.Context, appID string) (*domain.Application, error)
	UpdatePolicy(ctx context.Context, appID, baseBranch string, mode domain.PolicyMode, auditStartYear int) (*domain.Application, error)
	SetRepoStatus(ctx context.Context, appID string, status domain.RepoAuthStatus, actor string) (*domain.Application, error)
}

// DeploymentRepository stores deployments, their verification state,
// unverified-commit rows and the status audit trail.
type DeploymentRepository interface {
	Create(ctx context.Context, dep *domain.Deployment) (*domain.Deployment, error)
	GetByID(ctx context.Context, deploymentID string) (*domain.Deployment, error)
	GetPrevious(ctx context.Context, dep *domain.Deployment) (*domain.Deployment, error)
	ListByApplication(ctx context.Context, appID string) ([]*domain.Deployment, error)
	SaveVerification(ctx context.Context, deploymentID string, result domain.VerificationResult, actor string) error
	ManualApprove(ctx context.Context, deploymentID, actor, note string) (*domain.Deployment, error)
	ListUnverified(ctx context.Context, deploymentID string) ([]domain.UnverifiedCommit, error)
}

// SnapshotRepository is the versioned, append-only cache of fetched
// source-control data.
type SnapshotRepository interface {
	Append(ctx context.Context, repo, kind, key string, schemaVersion int, payload []byte) error
	GetLatest(ctx context.Context, repo, kind, key string, schemaVersion int) ([]byte, error)
}

// RunRepository retains full verification results for historical
// comparison.
type RunRepository interface {
	Insert(ctx context.Context, run *domain.VerificationRun) error
	GetLatest(ctx context.Context, deploymentID string) (*domain.VerificationRun, error)
}
