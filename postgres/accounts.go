package postgres

import (
	"context"
	"database/sql"
	"encoding/base64"
	"errors"
	"time"

	"github.com/financeiro/authkit"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

// AccountStore implements authkit.AccountStore.
type AccountStore struct {
	db *sql.DB
}

func NewAccountStore(db *sql.DB) *AccountStore {
	return &AccountStore{db: db}
}

func (s *AccountStore) Create(ctx context.Context, a *authkit.Account) error {
	const query = `
		INSERT INTO accounts (
			id, email, name, role, family_id,
			password_digest, password_salt, password_algo, password_iters,
			email_verified, plan, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err := s.db.ExecContext(ctx, query,
		a.ID, a.Email, a.Name, string(a.Role), a.FamilyID,
		a.PasswordDigest, base64.StdEncoding.EncodeToString(a.PasswordSalt),
		a.PasswordAlgo, a.PasswordIters,
		a.EmailVerified, string(a.Plan), a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return authkit.ErrEmailExists
		}
		return storeErr("insert account", err)
	}
	return nil
}

func (s *AccountStore) GetByEmail(ctx context.Context, email string) (*authkit.Account, error) {
	return s.get(ctx, `WHERE email = $1`, email)
}

func (s *AccountStore) GetByID(ctx context.Context, id string) (*authkit.Account, error) {
	return s.get(ctx, `WHERE id = $1`, id)
}

func (s *AccountStore) get(ctx context.Context, where string, arg any) (*authkit.Account, error) {
	query := `
		SELECT id, email, name, role, family_id,
		       password_digest, password_salt, password_algo, password_iters,
		       email_verified, plan, created_at, updated_at, last_login_at
		FROM accounts ` + where

	var (
		a         authkit.Account
		role      string
		plan      string
		salt      string
		lastLogin sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, query, arg).Scan(
		&a.ID, &a.Email, &a.Name, &role, &a.FamilyID,
		&a.PasswordDigest, &salt, &a.PasswordAlgo, &a.PasswordIters,
		&a.EmailVerified, &plan, &a.CreatedAt, &a.UpdatedAt, &lastLogin,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, authkit.ErrAccountNotFound
		}
		return nil, storeErr("select account", err)
	}

	a.Role = authkit.Role(role)
	a.Plan = authkit.Plan(plan)
	a.PasswordSalt, err = base64.StdEncoding.DecodeString(salt)
	if err != nil {
		return nil, storeErr("decode salt", err)
	}
	if lastLogin.Valid {
		a.LastLoginAt = &lastLogin.Time
	}
	return &a, nil
}

func (s *AccountStore) UpdatePassword(ctx context.Context, id, digest string, salt []byte, algo string, iterations int) error {
	const query = `
		UPDATE accounts
		SET password_digest = $2, password_salt = $3, password_algo = $4,
		    password_iters = $5, updated_at = NOW()
		WHERE id = $1
	`
	res, err := s.db.ExecContext(ctx, query,
		id, digest, base64.StdEncoding.EncodeToString(salt), algo, iterations)
	if err != nil {
		return storeErr("update password", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return authkit.ErrAccountNotFound
	}
	return nil
}

func (s *AccountStore) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	const query = `UPDATE accounts SET last_login_at = $2 WHERE id = $1`
	if _, err := s.db.ExecContext(ctx, query, id, at); err != nil {
		return storeErr("touch last login", err)
	}
	return nil
}
