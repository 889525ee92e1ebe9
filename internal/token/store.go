package token

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/melinotify/libs/db"
)

// Store is the durable home of the single marketplace token record.
type Store interface {
	// Get returns nil when no token has ever been saved.
	Get(ctx context.Context) (*Token, error)
	Save(ctx context.Context, t Token) error
}

type PGStore struct {
	pool    *db.Pool
	tokenID string
}

func NewPGStore(pool *db.Pool, tokenID string) *PGStore {
	return &PGStore{pool: pool, tokenID: tokenID}
}

func (s *PGStore) Get(ctx context.Context) (*Token, error) {
	var t Token
	err := s.pool.QueryRow(ctx, `
		SELECT access_token, refresh_token, expires_at
		FROM marketplace_tokens
		WHERE id = $1
	`, s.tokenID).Scan(&t.AccessToken, &t.RefreshToken, &t.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *PGStore) Save(ctx context.Context, t Token) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO marketplace_tokens (id, access_token, refresh_token, expires_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET access_token = EXCLUDED.access_token,
		    refresh_token = EXCLUDED.refresh_token,
		    expires_at = EXCLUDED.expires_at
	`, s.tokenID, t.AccessToken, t.RefreshToken, t.ExpiresAt)
	return err
}

var _ Store = (*PGStore)(nil)
