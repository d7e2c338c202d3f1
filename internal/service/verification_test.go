package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/navikt/pensjon-deployment-audit-sub002/internal/domain"
	"github.com/navikt/pensjon-deployment-audit-sub002/internal/pkg/logger"
	"github.com/navikt/pensjon-deployment-audit-sub002/internal/repository"
)

type appRepoMock struct{ mock.Mock }

var _ repository.ApplicationRepository = (*appRepoMock)(nil)

func (m *appRepoMock) Create(ctx context.Context, app *domain.Application) (*domain.Application, error) {
	args := m.Called(ctx, app)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Application), args.Error(1)
}

func (m *appRepoMock) GetByID(ctx context.Context, appID string) (*domain.Application, error) {
	args := m.Called(ctx, appID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Application), args.Error(1)
}

func (m *appRepoMock) UpdatePolicy(ctx context.Context, appID, baseBranch string, mode domain.PolicyMode, auditStartYear int) (*domain.Application, error) {
	args := m.Called(ctx, appID, baseBranch, mode, auditStartYear)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Application), args.Error(1)
}

func (m *appRepoMock) SetRepoStatus(ctx context.Context, appID string, status domain.RepoAuthStatus, actor string) (*domain.Application, error) {
	args := m.Called(ctx, appID, status, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Application), args.Error(1)
}

type depRepoMock struct{ mock.Mock }

var _ repository.DeploymentRepository = (*depRepoMock)(nil)

func (m *depRepoMock) Create(ctx context.Context, dep *domain.Deployment) (*domain.Deployment, error) {
	args := m.Called(ctx, dep)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Deployment), args.Error(1)
}

func (m *depRepoMock) GetByID(ctx context.Context, deploymentID string) (*domain.Deployment, error) {
	args := m.Called(ctx, deploymentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Deployment), args.Error(1)
}

func (m *depRepoMock) GetPrevious(ctx context.Context, dep *domain.Deployment) (*domain.Deployment, error) {
	args := m.Called(ctx, dep)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Deployment), args.Error(1)
}

func (m *depRepoMock) ListByApplication(ctx context.Context, appID string) ([]*domain.Deployment, error) {
	args := m.Called(ctx, appID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Deployment), args.Error(1)
}

func (m *depRepoMock) SaveVerification(ctx context.Context, deploymentID string, result domain.VerificationResult, actor string) error {
	args := m.Called(ctx, deploymentID, result, actor)
	return args.Error(0)
}

func (m *depRepoMock) ManualApprove(ctx context.Context, deploymentID, actor, note string) (*domain.Deployment, error) {
	args := m.Called(ctx, deploymentID, actor, note)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Deployment), args.Error(1)
}

func (m *depRepoMock) ListUnverified(ctx context.Context, deploymentID string) ([]domain.UnverifiedCommit, error) {
	args := m.Called(ctx, deploymentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.UnverifiedCommit), args.Error(1)
}

type runRepoMock struct{ mock.Mock }

var _ repository.RunRepository = (*runRepoMock)(nil)

func (m *runRepoMock) Insert(ctx context.Context, run *domain.VerificationRun) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

func (m *runRepoMock) GetLatest(ctx context.Context, deploymentID string) (*domain.VerificationRun, error) {
	args := m.Called(ctx, deploymentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.VerificationRun), args.Error(1)
}

type fetcherMock struct{ mock.Mock }

var _ SourceFetcher = (*fetcherMock)(nil)

func (m *fetcherMock) CommitsBetween(ctx context.Context, repo, fromSHA, toSHA string) ([]domain.Commit, error) {
	args := m.Called(ctx, repo, fromSHA, toSHA)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Commit), args.Error(1)
}

func (m *fetcherMock) CandidatePRs(ctx context.Context, repo, sha string) ([]*domain.PullRequestSnapshot, error) {
	args := m.Called(ctx, repo, sha)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.PullRequestSnapshot), args.Error(1)
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "json"})
	require.NoError(t, err)
	return log
}

func testApplication() *domain.Application {
	return &domain.Application{
		ID:             "app-1",
		Name:           "pensjon-app",
		Environment:    "production",
		Repository:     "navikt/pensjon-app",
		BaseBranch:     "main",
		ImplicitPolicy: domain.PolicyOff,
		AuditStartYear: 2020,
		RepoStatus:     domain.RepoActive,
	}
}

func testDeployment(id string) *domain.Deployment {
	return &domain.Deployment{
		ID:            id,
		ApplicationID: "app-1",
		CommitSHA:     "sha-" + id,
		DeployedAt:    time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
	}
}

func newTestService(t *testing.T) (*VerificationService, *appRepoMock, *depRepoMock, *runRepoMock, *fetcherMock) {
	t.Helper()
	apps := &appRepoMock{}
	deps := &depRepoMock{}
	runs := &runRepoMock{}
	fetcher := &fetcherMock{}
	svc := NewVerificationService(apps, deps, runs, fetcher, testLogger(t))
	return svc, apps, deps, runs, fetcher
}

func TestVerifyDeploymentPendingBaseline(t *testing.T) {
	svc, apps, deps, runs, _ := newTestService(t)
	ctx := context.Background()
	dep := testDeployment("d1")

	deps.On("GetByID", ctx, "d1").Return(dep, nil)
	apps.On("GetByID", ctx, "app-1").Return(testApplication(), nil)
	deps.On("GetPrevious", ctx, dep).Return(nil, domain.ErrDeploymentNotFound)
	deps.On("SaveVerification", ctx, "d1", mock.MatchedBy(func(r domain.VerificationResult) bool {
		return r.Status == domain.StatusPendingBaseline && !r.HasFourEyes
	}), engineActor).Return(nil)
	runs.On("Insert", ctx, mock.Anything).Return(nil)

	result, err := svc.VerifyDeployment(ctx, "d1")
	require.NoError(t, err)
	require.Equal(t, domain.StatusPendingBaseline, result.Status)

	deps.AssertExpectations(t)
	runs.AssertExpectations(t)
}

func TestVerifyDeploymentNoChanges(t *testing.T) {
	svc, apps, deps, runs, fetcher := newTestService(t)
	ctx := context.Background()
	dep := testDeployment("d2")

	deps.On("GetByID", ctx, "d2").Return(dep, nil)
	apps.On("GetByID", ctx, "app-1").Return(testApplication(), nil)
	deps.On("GetPrevious", ctx, dep).Return(testDeployment("d1"), nil)
	fetcher.On("CommitsBetween", ctx, "navikt/pensjon-app", "sha-d1", "sha-d2").Return([]domain.Commit{}, nil)
	deps.On("SaveVerification", ctx, "d2", mock.MatchedBy(func(r domain.VerificationResult) bool {
		return r.Status == domain.StatusNoChanges && r.HasFourEyes
	}), engineActor).Return(nil)
	runs.On("Insert", ctx, mock.Anything).Return(nil)

	result, err := svc.VerifyDeployment(ctx, "d2")
	require.NoError(t, err)
	require.Equal(t, domain.StatusNoChanges, result.Status)
	require.True(t, result.HasFourEyes)

	fetcher.AssertExpectations(t)
}

func TestVerifyDeploymentStickyStatusWins(t *testing.T) {
	// The freshly computed verdict loses to a manual override, but the
	// run record is still written for historical comparison.
	svc, apps, deps, runs, _ := newTestService(t)
	ctx := context.Background()
	dep := testDeployment("d1")

	deps.On("GetByID", ctx, "d1").Return(dep, nil)
	apps.On("GetByID", ctx, "app-1").Return(testApplication(), nil)
	deps.On("GetPrevious", ctx, dep).Return(nil, domain.ErrDeploymentNotFound)
	deps.On("SaveVerification", ctx, "d1", mock.Anything, engineActor).Return(domain.ErrStatusOverridden)
	runs.On("Insert", ctx, mock.Anything).Return(nil)

	_, err := svc.VerifyDeployment(ctx, "d1")
	require.NoError(t, err)

	runs.AssertNumberOfCalls(t, "Insert", 1)
}

func TestVerifyDeploymentHistoryUnavailable(t *testing.T) {
	svc, apps, deps, runs, fetcher := newTestService(t)
	ctx := context.Background()
	dep := testDeployment("d2")

	deps.On("GetByID", ctx, "d2").Return(dep, nil)
	apps.On("GetByID", ctx, "app-1").Return(testApplication(), nil)
	deps.On("GetPrevious", ctx, dep).Return(testDeployment("d1"), nil)
	fetcher.On("CommitsBetween", ctx, "navikt/pensjon-app", "sha-d1", "sha-d2").
		Return(nil, fmt.Errorf("%w: compare returned 404", domain.ErrHistoryUnavailable))
	deps.On("SaveVerification", ctx, "d2", mock.MatchedBy(func(r domain.VerificationResult) bool {
		return r.Status == domain.StatusError
	}), engineActor).Return(nil)
	runs.On("Insert", ctx, mock.Anything).Return(nil)

	result, err := svc.VerifyDeployment(ctx, "d2")
	require.NoError(t, err)
	require.Equal(t, domain.StatusError, result.Status)
	require.False(t, result.HasFourEyes)
}

func TestVerifyDeploymentTransientFailureIsReturned(t *testing.T) {
	svc, apps, deps, _, fetcher := newTestService(t)
	ctx := context.Background()
	dep := testDeployment("d2")

	deps.On("GetByID", ctx, "d2").Return(dep, nil)
	apps.On("GetByID", ctx, "app-1").Return(testApplication(), nil)
	deps.On("GetPrevious", ctx, dep).Return(testDeployment("d1"), nil)
	fetcher.On("CommitsBetween", ctx, "navikt/pensjon-app", "sha-d1", "sha-d2").
		Return(nil, fmt.Errorf("%w: 503", domain.ErrUpstreamTransient))

	_, err := svc.VerifyDeployment(ctx, "d2")
	require.ErrorIs(t, err, domain.ErrUpstreamTransient)

	deps.AssertNotCalled(t, "SaveVerification", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRegisterDeploymentBeforeAuditStart(t *testing.T) {
	svc, apps, deps, _, _ := newTestService(t)
	ctx := context.Background()

	app := testApplication()
	app.AuditStartYear = 2024
	apps.On("GetByID", ctx, "app-1").Return(app, nil)

	_, err := svc.RegisterDeployment(ctx, "app-1", "sha-old", time.Date(2019, 6, 1, 0, 0, 0, 0, time.UTC))
	require.ErrorIs(t, err, domain.ErrBeforeAuditStart)

	deps.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestRecheckApplicationTrustsStoredVerdicts(t *testing.T) {
	svc, apps, deps, runs, _ := newTestService(t)
	ctx := context.Background()

	trusted := testDeployment("d1")
	stale := testDeployment("d2")
	overridden := testDeployment("d3")
	overridden.Status = domain.StatusManuallyApproved

	deps.On("ListByApplication", ctx, "app-1").
		Return([]*domain.Deployment{overridden, stale, trusted}, nil)

	// d1: specific negative verdicts are trusted, no recomputation
	runs.On("GetLatest", ctx, "d1").Return(&domain.VerificationRun{
		DeploymentID: "d1",
		Result: domain.VerificationResult{
			Status: domain.StatusUnverifiedCommits,
			UnverifiedCommits: []domain.UnverifiedCommit{
				{SHA: "c1", Reason: domain.ReasonNoApprovedReviews},
			},
		},
	}, nil)

	// d2: a no_pr verdict may be fixed by a later matching pass
	runs.On("GetLatest", ctx, "d2").Return(&domain.VerificationRun{
		DeploymentID: "d2",
		Result: domain.VerificationResult{
			Status: domain.StatusUnverifiedCommits,
			UnverifiedCommits: []domain.UnverifiedCommit{
				{SHA: "c2", Reason: domain.ReasonNoPR},
			},
		},
	}, nil)

	// recomputation chain for d2 only
	deps.On("GetByID", ctx, "d2").Return(stale, nil)
	apps.On("GetByID", ctx, "app-1").Return(testApplication(), nil)
	deps.On("GetPrevious", ctx, stale).Return(nil, domain.ErrDeploymentNotFound)
	deps.On("SaveVerification", ctx, "d2", mock.Anything, engineActor).Return(nil)
	runs.On("Insert", ctx, mock.Anything).Return(nil)

	rechecked, err := svc.RecheckApplication(ctx, "app-1", false)
	require.NoError(t, err)
	require.Equal(t, 1, rechecked)

	deps.AssertNotCalled(t, "GetByID", ctx, "d1")
	deps.AssertNotCalled(t, "GetByID", ctx, "d3")
}

func TestRecheckApplicationForce(t *testing.T) {
	svc, apps, deps, runs, _ := newTestService(t)
	ctx := context.Background()

	d1 := testDeployment("d1")
	deps.On("ListByApplication", ctx, "app-1").Return([]*domain.Deployment{d1}, nil)

	deps.On("GetByID", ctx, "d1").Return(d1, nil)
	apps.On("GetByID", ctx, "app-1").Return(testApplication(), nil)
	deps.On("GetPrevious", ctx, d1).Return(nil, domain.ErrDeploymentNotFound)
	deps.On("SaveVerification", ctx, "d1", mock.Anything, engineActor).Return(nil)
	runs.On("Insert", ctx, mock.Anything).Return(nil)

	rechecked, err := svc.RecheckApplication(ctx, "app-1", true)
	require.NoError(t, err)
	require.Equal(t, 1, rechecked)

	runs.AssertNotCalled(t, "GetLatest", mock.Anything, mock.Anything)
}
