package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/navikt/pensjon-deployment-audit-sub002/internal/domain"
	"github.com/navikt/pensjon-deployment-audit-sub002/internal/pkg/logger"
)

// SnapshotRepo is the append-only cache of fetched source-control
// data. Nothing is updated in place; a schema-version bump simply
// makes older rows invisible to lookups.
type SnapshotRepo struct {
	db     *pgxpool.Pool
	logger *logger.Logger
}

func NewSnapshotRepo(db *pgxpool.Pool, logger *logger.Logger) *SnapshotRepo {
	return &SnapshotRepo{
		db:     db,
		logger: logger.Component("repository/snapshot"),
	}
}

// Append stores a freshly fetched payload under its versioned key.
func (r *SnapshotRepo) Append(ctx context.Context, repo, kind, key string, schemaVersion int, payload []byte) error {
	_, err := r.db.Exec(ctx, `
        INSERT INTO snapshots (repository, kind, key, schema_version, payload)
        VALUES ($1, $2, $3, $4, $5)
    `, repo, kind, key, schemaVersion, payload)
	if err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	return nil
}

// GetLatest retrieves the newest payload for the key at exactly the
// given schema version. Returns ErrSnapshotNotFound otherwise, which
// forces the caller to re-fetch.
func (r *SnapshotRepo) GetLatest(ctx context.Context, repo, kind, key string, schemaVersion int) ([]byte, error) {
	var payload []byte
	err := r.db.QueryRow(ctx, `
        SELECT payload
        FROM snapshots
        WHERE repository = $1 AND kind = $2 AND key = $3 AND schema_version = $4
        ORDER BY fetched_at DESC
        LIMIT 1
    `, repo, kind, key, schemaVersion).Scan(&payload)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("query snapshot: %w", err)
	}

	return payload, nil
}
