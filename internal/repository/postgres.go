package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	rerrors "github.com/dharsanguruparan/PrintReady/internal/errors"
)

// PostgresStore keeps documents as JSONB rows in the documents table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore constructs a repository.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Get implements Store.
func (r *PostgresStore) Get(ctx context.Context, collection, id string) (map[string]any, error) {
	var raw []byte
	row := r.pool.QueryRow(ctx, `SELECT data FROM documents WHERE collection=$1 AND id=$2`, collection, id)
	if err := row.Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, rerrors.NotFound(collection, id)
		}
		return nil, rerrors.Unavailable(err, "repository.get", "select document")
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, rerrors.Wrap(err, "repository.get", "decode document "+collection+"/"+id)
	}
	return doc, nil
}

// Merge implements Store. The row is created empty if needed and then locked,
// so concurrent merges on the same document serialize instead of losing
// fields.
func (r *PostgresStore) Merge(ctx context.Context, collection, id string, partial map[string]any) error {
	const op = "repository.merge"
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return rerrors.Unavailable(err, op, "begin transaction")
	}
	defer tx.Rollback(ctx)

	now := time.Now().UTC()
	if _, err := tx.Exec(ctx, `
		INSERT INTO documents (collection, id, data, created_at, updated_at)
		VALUES ($1, $2, '{}'::jsonb, $3, $3)
		ON CONFLICT (collection, id) DO NOTHING
	`, collection, id, now); err != nil {
		return rerrors.Unavailable(err, op, "create document")
	}

	var raw []byte
	if err := tx.QueryRow(ctx, `
		SELECT data FROM documents WHERE collection=$1 AND id=$2 FOR UPDATE
	`, collection, id).Scan(&raw); err != nil {
		return rerrors.Unavailable(err, op, "lock document")
	}
	var current map[string]any
	if err := json.Unmarshal(raw, &current); err != nil {
		return rerrors.Wrap(err, op, "decode document "+collection+"/"+id)
	}
	merged, err := json.Marshal(DeepMerge(current, partial))
	if err != nil {
		return rerrors.Wrap(err, op, "encode document "+collection+"/"+id)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE documents SET data=$3, updated_at=$4 WHERE collection=$1 AND id=$2
	`, collection, id, merged, now); err != nil {
		return rerrors.Unavailable(err, op, "update document")
	}
	if err := tx.Commit(ctx); err != nil {
		return rerrors.Unavailable(err, op, "commit")
	}
	return nil
}
