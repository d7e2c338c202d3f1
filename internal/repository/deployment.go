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

type DeploymentRepo struct {
	db     *pgxpool.Pool
	logger *logger.Logger
}

func NewDeploymentRepo(db *pgxpool.Pool, logger *logger.Logger) *DeploymentRepo {
	return &DeploymentRepo{
		db:     db,
		logger: logger.Component("repository/deployment"),
	}
}

const deploymentColumns = `
    deployment_id,
    application_id,
    commit_sha,
    deployed_at,
    COALESCE(status, ''),
    has_four_eyes,
    verified_at,
    created_at
`

// Create persists a new deployment. Verification state starts empty.
func (r *DeploymentRepo) Create(ctx context.Context, dep *domain.Deployment) (*domain.Deployment, error) {
	query := `
        INSERT INTO deployments (application_id, commit_sha, deployed_at)
        VALUES ($1, $2, $3)
        RETURNING ` + deploymentColumns

	created, err := scanDeployment(r.db.QueryRow(ctx, query, dep.ApplicationID, dep.CommitSHA, dep.DeployedAt))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505":
				return nil, domain.ErrDeploymentExists
			case "23503":
				return nil, domain.ErrApplicationNotFound
			}
		}
		return nil, fmt.Errorf("insert deployment: %w", err)
	}

	return created, nil
}

// GetByID retrieves one deployment.
// Returns ErrDeploymentNotFound when it doesn't exist.
func (r *DeploymentRepo) GetByID(ctx context.Context, deploymentID string) (*domain.Deployment, error) {
	query := `SELECT ` + deploymentColumns + ` FROM deployments WHERE deployment_id = $1`

	dep, err := scanDeployment(r.db.QueryRow(ctx, query, deploymentID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrDeploymentNotFound
		}
		return nil, fmt.Errorf("query deployment: %w", err)
	}

	return dep, nil
}

// GetPrevious retrieves the latest deployment of the same application
// strictly before dep. Returns ErrDeploymentNotFound for the very
// first deployment.
func (r *DeploymentRepo) GetPrevious(ctx context.Context, dep *domain.Deployment) (*domain.Deployment, error) {
	query := `
        SELECT ` + deploymentColumns + `
        FROM deployments
        WHERE application_id = $1
          AND deployed_at < $2
          AND deployment_id <> $3
        ORDER BY deployed_at DESC
        LIMIT 1
    `

	prev, err := scanDeployment(r.db.QueryRow(ctx, query, dep.ApplicationID, dep.DeployedAt, dep.ID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrDeploymentNotFound
		}
		return nil, fmt.Errorf("query previous deployment: %w", err)
	}

	return prev, nil
}

// ListByApplication retrieves all deployments of one application,
// newest first.
func (r *DeploymentRepo) ListByApplication(ctx context.Context, appID string) ([]*domain.Deployment, error) {
	query := `
        SELECT ` + deploymentColumns + `
        FROM deployments
        WHERE application_id = $1
        ORDER BY deployed_at DESC
    `

	rows, err := r.db.Query(ctx, query, appID)
	if err != nil {
		return nil, fmt.Errorf("query deployments: %w", err)
	}
	defer rows.Close()

	deps := []*domain.Deployment{}
	for rows.Next() {
		dep, err := scanDeployment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan deployment: %w", err)
		}
		deps = append(deps, dep)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return deps, nil
}

// SaveVerification writes an engine result onto the deployment:
// status/flag update, unverified-commit rows replaced, and an audit
// entry appended when status or flag changed. A manually_approved or
// legacy deployment is never overwritten; the write is skipped and
// ErrStatusOverridden returned (compare-and-skip, not a lock).
func (r *DeploymentRepo) SaveVerification(ctx context.Context, deploymentID string, result domain.VerificationResult, actor string) error {
	return r.withTx(ctx, func(tx pgx.Tx) error {
		var oldStatus string
		var oldFourEyes bool
		err := tx.QueryRow(ctx, `
            SELECT COALESCE(status, ''), has_four_eyes
            FROM deployments
            WHERE deployment_id = $1
            FOR UPDATE
        `, deploymentID).Scan(&oldStatus, &oldFourEyes)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.ErrDeploymentNotFound
			}
			return fmt.Errorf("lock deployment: %w", err)
		}

		if domain.VerificationStatus(oldStatus).Sticky() {
			return domain.ErrStatusOverridden
		}

		_, err = tx.Exec(ctx, `
            UPDATE deployments
            SET status = $1, has_four_eyes = $2, verified_at = NOW()
            WHERE deployment_id = $3
        `, result.Status, result.HasFourEyes, deploymentID)
		if err != nil {
			return fmt.Errorf("update deployment: %w", err)
		}

		if _, err = tx.Exec(ctx, `DELETE FROM unverified_commits WHERE deployment_id = $1`, deploymentID); err != nil {
			return fmt.Errorf("clear unverified commits: %w", err)
		}

		for _, uc := range result.UnverifiedCommits {
			_, err = tx.Exec(ctx, `
                INSERT INTO unverified_commits (deployment_id, commit_sha, message, author, commit_date, url, pr_number, reason)
                VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
            `, deploymentID, uc.SHA, uc.Message, uc.Author, uc.Date, uc.URL, uc.PRNumber, uc.Reason)
			if err != nil {
				return fmt.Errorf("insert unverified commit %s: %w", uc.SHA, err)
			}
		}

		if oldStatus != string(result.Status) || oldFourEyes != result.HasFourEyes {
			_, err = tx.Exec(ctx, `
                INSERT INTO deployment_status_audit (deployment_id, from_status, to_status, from_four_eyes, to_four_eyes, actor, note)
                VALUES ($1, $2, $3, $4, $5, $6, $7)
            `, deploymentID, oldStatus, result.Status, oldFourEyes, result.HasFourEyes, actor, result.Approval.Reason)
			if err != nil {
				return fmt.Errorf("insert audit row: %w", err)
			}
		}

		return nil
	})
}

// ManualApprove marks a deployment manually approved. A human override
// wins over any automated status; repeating it is a no-op.
func (r *DeploymentRepo) ManualApprove(ctx context.Context, deploymentID, actor, note string) (*domain.Deployment, error) {
	err := r.withTx(ctx, func(tx pgx.Tx) error {
		var oldStatus string
		var oldFourEyes bool
		err := tx.QueryRow(ctx, `
            SELECT COALESCE(status, ''), has_four_eyes
            FROM deployments
            WHERE deployment_id = $1
            FOR UPDATE
        `, deploymentID).Scan(&oldStatus, &oldFourEyes)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.ErrDeploymentNotFound
			}
			return fmt.Errorf("lock deployment: %w", err)
		}

		if oldStatus == string(domain.StatusManuallyApproved) {
			return nil
		}

		_, err = tx.Exec(ctx, `
            UPDATE deployments
            SET status = $1, has_four_eyes = TRUE, verified_at = NOW()
            WHERE deployment_id = $2
        `, domain.StatusManuallyApproved, deploymentID)
		if err != nil {
			return fmt.Errorf("update deployment: %w", err)
		}

		_, err = tx.Exec(ctx, `
            INSERT INTO deployment_status_audit (deployment_id, from_status, to_status, from_four_eyes, to_four_eyes, actor, note)
            VALUES ($1, $2, $3, $4, TRUE, $5, $6)
        `, deploymentID, oldStatus, domain.StatusManuallyApproved, oldFourEyes, actor, note)
		if err != nil {
			return fmt.Errorf("insert audit row: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return r.GetByID(ctx, deploymentID)
}

// ListUnverified retrieves the itemized unverified commits for one
// deployment. Returns empty slice when there are none.
func (r *DeploymentRepo) ListUnverified(ctx context.Context, deploymentID string) ([]domain.UnverifiedCommit, error) {
	query := `
        SELECT commit_sha, message, author, commit_date, url, pr_number, reason
        FROM unverified_commits
        WHERE deployment_id = $1
        ORDER BY commit_date
    `

	rows, err := r.db.Query(ctx, query, deploymentID)
	if err != nil {
		return nil, fmt.Errorf("query unverified commits: %w", err)
	}
	defer rows.Close()

	commits := []domain.UnverifiedCommit{}
	for rows.Next() {
		var uc domain.UnverifiedCommit
		if err := rows.Scan(&uc.SHA, &uc.Message, &uc.Author, &uc.Date, &uc.URL, &uc.PRNumber, &uc.Reason); err != nil {
			return nil, fmt.Errorf("scan unverified commit: %w", err)
		}
		commits = append(commits, uc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return commits, nil
}

func scanDeployment(row pgx.Row) (*domain.Deployment, error) {
	dep := &domain.Deployment{}
	var status string
	err := row.Scan(
		&dep.ID,
		&dep.ApplicationID,
		&dep.CommitSHA,
		&dep.DeployedAt,
		&status,
		&dep.HasFourEyes,
		&dep.VerifiedAt,
		&dep.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	dep.Status = domain.VerificationStatus(status)
	return dep, nil
}

// withTx executes a function within a database transaction.
// Automatically handles commit/rollback based on error status.
func (r *DeploymentRepo) withTx(ctx context.Context, fn func(pgx.Tx) error) error {
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
