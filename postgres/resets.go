package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/financeiro/authkit"
)

// ResetStore implements authkit.ResetStore.
type ResetStore struct {
	db *sql.DB
}

func NewResetStore(db *sql.DB) *ResetStore {
	return &ResetStore{db: db}
}

func (s *ResetStore) Create(ctx context.Context, g *authkit.ResetGrant) error {
	const query = `
		INSERT INTO password_resets (id, account_id, token_hash, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := s.db.ExecContext(ctx, query,
		g.ID, g.AccountID, g.TokenHash, g.CreatedAt, g.ExpiresAt,
	); err != nil {
		return storeErr("insert reset grant", err)
	}
	return nil
}

// Consume marks the unused grant matching tokenHash as used and returns
// it. The update is conditional on used_at IS NULL, so a grant can be
// consumed exactly once no matter how many redemptions race. An expired
// grant is still marked used (it is dead either way) but reported as
// expired.
func (s *ResetStore) Consume(ctx context.Context, tokenHash string, at time.Time) (*authkit.ResetGrant, error) {
	const query = `
		UPDATE password_resets
		SET used_at = $2
		WHERE token_hash = $1 AND used_at IS NULL
		RETURNING id, account_id, created_at, expires_at
	`
	var g authkit.ResetGrant
	g.TokenHash = tokenHash
	g.UsedAt = &at
	err := s.db.QueryRowContext(ctx, query, tokenHash, at).Scan(
		&g.ID, &g.AccountID, &g.CreatedAt, &g.ExpiresAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, authkit.ErrResetInvalid
	}
	if err != nil {
		return nil, storeErr("consume reset grant", err)
	}

	if g.ExpiresAt.Before(at) {
		return nil, authkit.ErrResetExpired
	}
	return &g, nil
}
