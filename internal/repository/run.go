package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/navikt/pensjon-deployment-audit-sub002/internal/domain"
	"github.com/navikt/pensjon-deployment-audit-sub002/internal/pkg/logger"
)

type RunRepo struct {
	db     *pgxpool.Pool
	logger *logger.Logger
}

func NewRunRepo(db *pgxpool.Pool, logger *logger.Logger) *RunRepo {
	return &RunRepo{
		db:     db,
		logger: logger.Component("repository/run"),
	}
}

// Insert stores one verification run with its full result payload.
func (r *RunRepo) Insert(ctx context.Context, run *domain.VerificationRun) error {
	payload, err := json.Marshal(run.Result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}

	_, err = r.db.Exec(ctx, `
        INSERT INTO verification_runs (run_id, deployment_id, result, ran_at)
        VALUES ($1, $2, $3, $4)
    `, run.ID, run.DeploymentID, payload, run.RanAt)
	if err != nil {
		return fmt.Errorf("insert verification run: %w", err)
	}

	return nil
}

// GetLatest retrieves the newest run for a deployment, used to diff an
// older automated verdict against a fresh recomputation.
func (r *RunRepo) GetLatest(ctx context.Context, deploymentID string) (*domain.VerificationRun, error) {
	run := &domain.VerificationRun{}
	var payload []byte

	err := r.db.QueryRow(ctx, `
        SELECT run_id, deployment_id, result, ran_at
        FROM verification_runs
        WHERE deployment_id = $1
        ORDER BY ran_at DESC
        LIMIT 1
    `, deploymentID).Scan(&run.ID, &run.DeploymentID, &payload, &run.RanAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrDeploymentNotFound
		}
		return nil, fmt.Errorf("query verification run: %w", err)
	}

	if err := json.Unmarshal(payload, &run.Result); err != nil {
		return nil, fmt.Errorf("unmarshal result: %w", err)
	}

	return run, nil
}
