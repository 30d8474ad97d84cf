package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/financeiro/authkit"
)

// SessionStore implements authkit.SessionStore. Revoked rows are kept
// for audit; nothing here deletes them.
type SessionStore struct {
	db *sql.DB
}

func NewSessionStore(db *sql.DB) *SessionStore {
	return &SessionStore{db: db}
}

func (s *SessionStore) Create(ctx context.Context, sess *authkit.Session) error {
	const query = `
		INSERT INTO sessions (id, account_id, token_hash, created_at, expires_at, last_used_at, user_agent, ip)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.db.ExecContext(ctx, query,
		sess.ID, sess.AccountID, sess.TokenHash,
		sess.CreatedAt, sess.ExpiresAt, sess.LastUsedAt,
		nullable(sess.UserAgent), nullable(sess.IP),
	)
	if err != nil {
		return storeErr("insert session", err)
	}
	return nil
}

// Rotate revokes the live session matching tokenHash and inserts next in
// one transaction. The revoke is conditional on revoked_at IS NULL, so
// of two concurrent redemptions of the same token exactly one sees the
// row; the loser distinguishes replay from garbage with a follow-up
// probe.
func (s *SessionStore) Rotate(ctx context.Context, tokenHash string, next *authkit.Session) (*authkit.Session, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, storeErr("begin rotate", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := next.CreatedAt

	const revoke = `
		UPDATE sessions
		SET revoked_at = $2, last_used_at = $2
		WHERE token_hash = $1 AND revoked_at IS NULL
		RETURNING id, account_id, created_at, expires_at
	`
	var prev authkit.Session
	prev.TokenHash = tokenHash
	prev.RevokedAt = &now
	err = tx.QueryRowContext(ctx, revoke, tokenHash, now).Scan(
		&prev.ID, &prev.AccountID, &prev.CreatedAt, &prev.ExpiresAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, s.classifyMiss(ctx, tokenHash)
	}
	if err != nil {
		return nil, storeErr("revoke session", err)
	}

	if prev.ExpiresAt.Before(now) {
		// Expired sessions stay passively dead; do not commit the revoke
		// or mint a successor.
		return nil, authkit.ErrSessionExpired
	}

	next.AccountID = prev.AccountID

	const insert = `
		INSERT INTO sessions (id, account_id, token_hash, created_at, expires_at, last_used_at, user_agent, ip)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	if _, err := tx.ExecContext(ctx, insert,
		next.ID, next.AccountID, next.TokenHash,
		next.CreatedAt, next.ExpiresAt, next.LastUsedAt,
		nullable(next.UserAgent), nullable(next.IP),
	); err != nil {
		return nil, storeErr("insert rotated session", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, storeErr("commit rotate", err)
	}
	return &prev, nil
}

func (s *SessionStore) classifyMiss(ctx context.Context, tokenHash string) error {
	var revokedAt sql.NullTime
	err := s.db.QueryRowContext(ctx,
		`SELECT revoked_at FROM sessions WHERE token_hash = $1`, tokenHash,
	).Scan(&revokedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return authkit.ErrSessionNotFound
	}
	if err != nil {
		return storeErr("probe session", err)
	}
	if revokedAt.Valid {
		return authkit.ErrSessionRevoked
	}
	return authkit.ErrSessionNotFound
}

func (s *SessionStore) Revoke(ctx context.Context, tokenHash string) error {
	const query = `
		UPDATE sessions SET revoked_at = NOW()
		WHERE token_hash = $1 AND revoked_at IS NULL
	`
	if _, err := s.db.ExecContext(ctx, query, tokenHash); err != nil {
		return storeErr("revoke session", err)
	}
	return nil
}

func (s *SessionStore) RevokeAllForAccount(ctx context.Context, accountID string) error {
	const query = `
		UPDATE sessions SET revoked_at = NOW()
		WHERE account_id = $1 AND revoked_at IS NULL
	`
	if _, err := s.db.ExecContext(ctx, query, accountID); err != nil {
		return storeErr("revoke account sessions", err)
	}
	return nil
}

// DeleteExpired removes sessions dead for longer than retain. Operator
// maintenance only; nothing calls it implicitly.
func (s *SessionStore) DeleteExpired(ctx context.Context, retain time.Duration) (int64, error) {
	const query = `DELETE FROM sessions WHERE expires_at < $1`
	res, err := s.db.ExecContext(ctx, query, time.Now().Add(-retain))
	if err != nil {
		return 0, storeErr("delete expired sessions", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
