package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/navikt/pensjon-deployment-audit-sub002/internal/domain"
	"github.com/navikt/pensjon-deployment-audit-sub002/internal/pkg/logger"
	"github.com/navikt/pensjon-deployment-audit-sub002/internal/repository"
	"github.com/navikt/pensjon-deployment-audit-sub002/internal/verify"
)

// engineActor is the audit-trail actor for automated verifications.
const engineActor = "verification-engine"

// SourceFetcher assembles commit and pull-request evidence from the
// source-control host.
type SourceFetcher interface {
	CommitsBetween(ctx context.Context, repo, fromSHA, toSHA string) ([]domain.Commit, error)
	CandidatePRs(ctx context.Context, repo, sha string) ([]*domain.PullRequestSnapshot, error)
}

type VerificationService struct {
	apps    repository.ApplicationRepository
	deps    repository.DeploymentRepository
	runs    repository.RunRepository
	fetcher SourceFetcher
	logger  *logger.Logger
}

func NewVerificationService(
	apps repository.ApplicationRepository,
	deps repository.DeploymentRepository,
	runs repository.RunRepository,
	fetcher SourceFetcher,
	logger *logger.Logger,
) *VerificationService {
	return &VerificationService{
		apps:    apps,
		deps:    deps,
		runs:    runs,
		fetcher: fetcher,
		logger:  logger.Component("service/verification"),
	}
}

// RegisterDeployment records a new deployment. Deployments that
// predate the application's audit start year are out of scope and
// rejected.
func (s *VerificationService) RegisterDeployment(ctx context.Context, appID, commitSHA string, deployedAt time.Time) (*domain.Deployment, error) {
	app, err := s.apps.GetByID(ctx, appID)
	if err != nil {
		return nil, fmt.Errorf("get application: %w", err)
	}

	if deployedAt.Year() < app.AuditStartYear {
		return nil, domain.ErrBeforeAuditStart
	}

	dep, err := s.deps.Create(ctx, &domain.Deployment{
		ApplicationID: app.ID,
		CommitSHA:     commitSHA,
		DeployedAt:    deployedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("create deployment: %w", err)
	}

	s.logger.Info("deployment registered",
		"deployment_id", dep.ID,
		"application_id", app.ID,
		"commit_sha", commitSHA,
	)

	return dep, nil
}

// VerifyDeployment assembles the evidence for one deployment, runs the
// decision engine and persists the verdict. A transient upstream
// failure is returned to the caller for retry; permanently lost
// history is recorded as an error status instead.
func (s *VerificationService) VerifyDeployment(ctx context.Context, deploymentID string) (*domain.VerificationResult, error) {
	dep, err := s.deps.GetByID(ctx, deploymentID)
	if err != nil {
		return nil, fmt.Errorf("get deployment: %w", err)
	}

	app, err := s.apps.GetByID(ctx, dep.ApplicationID)
	if err != nil {
		return nil, fmt.Errorf("get application: %w", err)
	}

	input, err := s.assembleInput(ctx, app, dep)
	if err != nil {
		if errors.Is(err, domain.ErrHistoryUnavailable) {
			result := historyUnavailableResult(err)
			if perr := s.persist(ctx, dep.ID, result); perr != nil {
				return nil, perr
			}
			return &result, nil
		}
		return nil, fmt.Errorf("assemble input: %w", err)
	}

	if err := verify.ValidateInput(input); err != nil {
		return nil, fmt.Errorf("malformed verification input: %w", err)
	}

	result := verify.Verify(input)

	if err := s.persist(ctx, dep.ID, result); err != nil {
		return nil, err
	}

	s.logger.Info("deployment verified",
		"deployment_id", dep.ID,
		"status", result.Status,
		"has_four_eyes", result.HasFourEyes,
		"unverified_commits", len(result.UnverifiedCommits),
	)

	return &result, nil
}

// ManuallyApprove records a human override on a deployment.
func (s *VerificationService) ManuallyApprove(ctx context.Context, deploymentID, actor, reason string) (*domain.Deployment, error) {
	if actor == "" {
		return nil, fmt.Errorf("validation failed: approver is required")
	}

	dep, err := s.deps.ManualApprove(ctx, deploymentID, actor, reason)
	if err != nil {
		return nil, fmt.Errorf("manual approve: %w", err)
	}

	s.logger.Info("deployment manually approved",
		"deployment_id", deploymentID,
		"actor", actor,
	)

	return dep, nil
}

// RecheckApplication re-verifies the deployments of one application,
// newest first. Deployments run sequentially to stay inside the
// upstream API's rate limits. When force is false, the previous run's
// per-commit verdicts decide whether a recomputation can be skipped.
// Returns the number of deployments actually re-verified.
func (s *VerificationService) RecheckApplication(ctx context.Context, appID string, force bool) (int, error) {
	deployments, err := s.deps.ListByApplication(ctx, appID)
	if err != nil {
		return 0, fmt.Errorf("list deployments: %w", err)
	}

	rechecked := 0
	for _, dep := range deployments {
		if dep.Status.Sticky() {
			continue
		}

		if !force {
			run, err := s.runs.GetLatest(ctx, dep.ID)
			if err != nil && !errors.Is(err, domain.ErrDeploymentNotFound) {
				return rechecked, fmt.Errorf("get latest run: %w", err)
			}
			if run != nil && !staleVerdict(run.Result) {
				continue
			}
		}

		if _, err := s.VerifyDeployment(ctx, dep.ID); err != nil {
			return rechecked, fmt.Errorf("recheck deployment %s: %w", dep.ID, err)
		}
		rechecked++
	}

	s.logger.Info("application rechecked",
		"application_id", appID,
		"deployments", len(deployments),
		"rechecked", rechecked,
		"force", force,
	)

	return rechecked, nil
}

// staleVerdict applies the cache-staleness policy to a stored run:
// recompute when any of its per-commit verdicts can no longer be
// trusted.
func staleVerdict(result domain.VerificationResult) bool {
	// a baseline may appear once an earlier deployment is registered
	if result.Status == domain.StatusPendingBaseline {
		return true
	}

	if result.HasFourEyes {
		approved := true
		return verify.StalenessAction(&verify.CachedVerdict{Approved: &approved}, false) == verify.ActionRecheck
	}

	for i := range result.UnverifiedCommits {
		approved := false
		reason := result.UnverifiedCommits[i].Reason
		cached := &verify.CachedVerdict{Approved: &approved, Reason: &reason}
		if verify.StalenessAction(cached, false) == verify.ActionRecheck {
			return true
		}
	}
	return false
}

func (s *VerificationService) assembleInput(ctx context.Context, app *domain.Application, dep *domain.Deployment) (domain.VerificationInput, error) {
	input := domain.VerificationInput{
		CommitSHA:      dep.CommitSHA,
		Repository:     app.Repository,
		BaseBranch:     app.BaseBranch,
		RepoStatus:     app.RepoStatus,
		ImplicitPolicy: app.ImplicitPolicy,
	}

	// no point fetching what the engine will short-circuit past
	if app.RepoStatus != domain.RepoActive {
		return input, nil
	}

	prev, err := s.deps.GetPrevious(ctx, dep)
	if err != nil {
		if errors.Is(err, domain.ErrDeploymentNotFound) {
			return input, nil
		}
		return input, fmt.Errorf("get previous deployment: %w", err)
	}
	input.HasPrevious = true
	input.PreviousCommitSHA = prev.CommitSHA

	commits, err := s.fetcher.CommitsBetween(ctx, app.Repository, prev.CommitSHA, dep.CommitSHA)
	if err != nil {
		return input, err
	}
	if len(commits) == 0 {
		return input, nil
	}

	for _, c := range commits {
		candidates, err := s.fetcher.CandidatePRs(ctx, app.Repository, c.SHA)
		if err != nil {
			return input, err
		}
		input.CommitsBetween = append(input.CommitsBetween, domain.RangeCommit{
			Commit: c,
			PR:     verify.MatchPR(c, candidates, app.BaseBranch),
		})
	}

	deployedCommit := domain.Commit{SHA: dep.CommitSHA}
	for _, rc := range input.CommitsBetween {
		if rc.Commit.SHA == dep.CommitSHA {
			deployedCommit = rc.Commit
			break
		}
	}
	candidates, err := s.fetcher.CandidatePRs(ctx, app.Repository, dep.CommitSHA)
	if err != nil {
		return input, err
	}
	input.DeployedPR = verify.MatchPR(deployedCommit, candidates, app.BaseBranch)

	return input, nil
}

// persist stores the verdict and the run record. A sticky stored
// status wins over the fresh result; the run record is kept either way
// so the divergence stays visible.
func (s *VerificationService) persist(ctx context.Context, deploymentID string, result domain.VerificationResult) error {
	if err := s.deps.SaveVerification(ctx, deploymentID, result, engineActor); err != nil {
		if !errors.Is(err, domain.ErrStatusOverridden) {
			return fmt.Errorf("save verification: %w", err)
		}
		s.logger.Info("stored status is a manual override, result not applied",
			"deployment_id", deploymentID,
			"computed_status", result.Status,
		)
	}

	run := &domain.VerificationRun{
		ID:           uuid.NewString(),
		DeploymentID: deploymentID,
		Result:       result,
		RanAt:        time.Now().UTC(),
	}
	if err := s.runs.Insert(ctx, run); err != nil {
		return fmt.Errorf("insert verification run: %w", err)
	}

	return nil
}

func historyUnavailableResult(err error) domain.VerificationResult {
	return domain.VerificationResult{
		Status: domain.StatusError,
		Approval: domain.ApprovalDetails{
			Method: domain.MethodNone,
			Reason: err.Error(),
		},
	}
}
