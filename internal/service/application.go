package service

import (
	"context"
	"fmt"
	"regexp"

	. "github.com/go-ozzo/ozzo-validation"

	"github.com/navikt/pensjon-deployment-audit-sub002/internal/domain"
	"github.com/navikt/pensjon-deployment-audit-sub002/internal/pkg/logger"
	"github.com/navikt/pensjon-deployment-audit-sub002/internal/repository"
)

var repositoryPattern = regexp.MustCompile(`^[\w.-]+/[\w.-]+$`)

type ApplicationService struct {
	repo   repository.ApplicationRepository
	logger *logger.Logger
}

func NewApplicationService(repo repository.ApplicationRepository, logger *logger.Logger) *ApplicationService {
	return &ApplicationService{
		repo:   repo,
		logger: logger.Component("service/application"),
	}
}

func (s *ApplicationService) Create(ctx context.Context, app *domain.Application) (*domain.Application, error) {
	if err := s.validateApplication(app); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	created, err := s.repo.Create(ctx, app)
	if err != nil {
		return nil, err
	}

	s.logger.Info("application registered",
		"application_id", created.ID,
		"name", created.Name,
		"environment", created.Environment,
		"repository", created.Repository,
	)

	return created, nil
}

func (s *ApplicationService) Get(ctx context.Context, appID string) (*domain.Application, error) {
	app, err := s.repo.GetByID(ctx, appID)
	if err != nil {
		return nil, fmt.Errorf("get application: %w", err)
	}
	return app, nil
}

func (s *ApplicationService) UpdatePolicy(ctx context.Context, appID, baseBranch string, mode domain.PolicyMode, auditStartYear int) (*domain.Application, error) {
	if err := Validate(string(mode), Required, In(string(domain.PolicyOff), string(domain.PolicyDependabotOnly), string(domain.PolicyAll))); err != nil {
		return nil, fmt.Errorf("validation failed: implicit_policy: %w", err)
	}
	if err := Validate(baseBranch, Required, Length(1, 255)); err != nil {
		return nil, fmt.Errorf("validation failed: base_branch: %w", err)
	}
	if err := Validate(auditStartYear, Required, Min(2000), Max(2100)); err != nil {
		return nil, fmt.Errorf("validation failed: audit_start_year: %w", err)
	}

	updated, err := s.repo.UpdatePolicy(ctx, appID, baseBranch, mode, auditStartYear)
	if err != nil {
		return nil, err
	}

	s.logger.Info("application policy updated",
		"application_id", appID,
		"base_branch", baseBranch,
		"implicit_policy", mode,
		"audit_start_year", auditStartYear,
	)

	return updated, nil
}

func (s *ApplicationService) SetRepoStatus(ctx context.Context, appID string, status domain.RepoAuthStatus, actor string) (*domain.Application, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("validation failed: unknown repository status %q", status)
	}

	updated, err := s.repo.SetRepoStatus(ctx, appID, status, actor)
	if err != nil {
		return nil, err
	}

	s.logger.Info("repository authorization changed",
		"application_id", appID,
		"repo_status", status,
		"actor", actor,
	)

	return updated, nil
}

func (s *ApplicationService) validateApplication(app *domain.Application) error {
	return ValidateStruct(app,
		Field(&app.Name, Required, Length(1, 100)),
		Field(&app.Environment, Required, Length(1, 50)),
		Field(&app.Repository, Required, Match(repositoryPattern)),
		Field(&app.BaseBranch, Required, Length(1, 255)),
		Field(&app.ImplicitPolicy, Required, In(domain.PolicyOff, domain.PolicyDependabotOnly, domain.PolicyAll)),
		Field(&app.AuditStartYear, Required, Min(2000), Max(2100)),
		Field(&app.RepoStatus, Required, In(domain.RepoActive, domain.RepoPendingApproval, domain.RepoHistorical, domain.RepoUnknown)),
	)
}
