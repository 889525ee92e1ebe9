// Package dedup records processed events in Postgres. The primary key on
// event_key makes the check-and-record atomic at the storage layer, which is
// what guards against duplicate side effects when several worker instances
// see the same event.
package dedup

import (
	"context"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/md-rashed-zaman/melinotify/libs/db"
)

type Repository struct {
	pool *db.Pool
}

func NewRepository(pool *db.Pool) *Repository {
	return &Repository{pool: pool}
}

// SaveIfNotExists inserts the key with its payload and reports whether this
// call performed the insert. A unique violation means another delivery of the
// same event got there first.
func (r *Repository) SaveIfNotExists(ctx context.Context, key string, payload []byte) (bool, error) {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO processed_events (event_key, payload)
		VALUES ($1, $2)
	`, key, payload)
	if err == nil {
		return true, nil
	}

	if pgErr, ok := err.(*pgconn.PgError); ok && pgErr.Code == "23505" {
		return false, nil
	}

	return false, err
}
