package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/navikt/pensjon-deployment-audit-sub002/internal/domain"
	"github.com/navikt/pensjon-deployment-audit-sub002/internal/pkg/logger"
)

type ApplicationRepo struct {
	db     *pgxpool.Pool
	logger *logger.Logger
}

func NewApplicationRepo(db *pgxpool.Pool, logger *logger.Logger) *ApplicationRepo {
	return &ApplicationRepo{
		db:     db,
		logger: logger.Component("repository/application"),
	}
}

const applicationColumns = `
    application_id,
    name,
    environment,
    repository,
    base_branch,
    implicit_policy,
    audit_start_year,
    repo_status,
    created_at,
    updated_at
`

// Create persists a new monitored application.
// Returns ErrApplicationExists when the name/environment pair is taken.
func (r *ApplicationRepo) Create(ctx context.Context, app *domain.Application) (*domain.Application, error) {
	query := `
        INSERT INTO applications (name, environment, repository, base_branch, implicit_policy, audit_start_year, repo_status)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING ` + applicationColumns

	row := r.db.QueryRow(ctx, query,
		app.Name, app.Environment, app.Repository, app.BaseBranch,
		app.ImplicitPolicy, app.AuditStartYear, app.RepoStatus)

	created, err := scanApplication(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, domain.ErrApplicationExists
		}
		return nil, fmt.Errorf("insert application: %w", err)
	}

	return created, nil
}

// GetByID retrieves one application.
// Returns ErrApplicationNotFound when it doesn't exist.
func (r *ApplicationRepo) GetByID(ctx context.Context, appID string) (*domain.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications WHERE application_id = $1`

	app, err := scanApplication(r.db.QueryRow(ctx, query, appID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrApplicationNotFound
		}
		return nil, fmt.Errorf("query application: %w", err)
	}

	return app, nil
}

// UpdatePolicy replaces the verification policy fields.
func (r *ApplicationRepo) UpdatePolicy(ctx context.Context, appID, baseBranch string, mode domain.PolicyMode, auditStartYear int) (*domain.Application, error) {
	query := `
        UPDATE applications
        SET base_branch = $1, implicit_policy = $2, audit_start_year = $3, updated_at = NOW()
        WHERE application_id = $4
        RETURNING ` + applicationColumns

	app, err := scanApplication(r.db.QueryRow(ctx, query, baseBranch, mode, auditStartYear, appID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrApplicationNotFound
		}
		return nil, fmt.Errorf("update policy: %w", err)
	}

	return app, nil
}

// SetRepoStatus transitions the repository authorization status and
// appends an audit row when it actually changed.
func (r *ApplicationRepo) SetRepoStatus(ctx context.Context, appID string, status domain.RepoAuthStatus, actor string) (*domain.Application, error) {
	var updated *domain.Application

	err := r.withTx(ctx, func(tx pgx.Tx) error {
		var oldStatus string
		err := tx.QueryRow(ctx,
			`SELECT repo_status FROM applications WHERE application_id = $1 FOR UPDATE`,
			appID).Scan(&oldStatus)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.ErrApplicationNotFound
			}
			return fmt.Errorf("lock application: %w", err)
		}

		query := `
            UPDATE applications
            SET repo_status = $1, updated_at = NOW()
            WHERE application_id = $2
            RETURNING ` + applicationColumns

		updated, err = scanApplication(tx.QueryRow(ctx, query, status, appID))
		if err != nil {
			return fmt.Errorf("update repo status: %w", err)
		}

		if oldStatus != string(status) {
			_, err = tx.Exec(ctx, `
                INSERT INTO application_audit (application_id, from_status, to_status, actor)
                VALUES ($1, $2, $3, $4)
            `, appID, oldStatus, status, actor)
			if err != nil {
				return fmt.Errorf("insert audit row: %w", err)
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

func scanApplication(row pgx.Row) (*domain.Application, error) {
	app := &domain.Application{}
	err := row.Scan(
		&app.ID,
		&app.Name,
		&app.Environment,
		&app.Repository,
		&app.BaseBranch,
		&app.ImplicitPolicy,
		&app.AuditStartYear,
		&app.RepoStatus,
		&app.CreatedAt,
		&app.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return app, nil
}

// withTx executes a function within a database transaction.
func (r *ApplicationRepo) withTx(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				r.logger.Error("failed to rollback transaction",
					"error", rbErr,
					"original_error", err,
				)
			}
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}
