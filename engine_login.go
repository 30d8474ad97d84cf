package authkit

import (
	"context"
	"errors"
	"fmt"
)

// LoginInput is the validated value type for Login.
type LoginInput struct {
	Email    string
	Password string
}

// Login verifies credentials and issues a fresh session and token pair.
// An unknown email and a wrong password produce the same
// [ErrInvalidCredentials]; nothing about the failure reveals whether the
// account exists.
func (e *Engine) Login(ctx context.Context, in LoginInput, meta ClientMeta) (*AuthResult, error) {
	if e == nil || e.accounts == nil || e.sessions == nil {
		return nil, ErrEngineNotReady
	}

	email := normalizeEmail(in.Email)
	if email == "" || in.Password == "" {
		return nil, fmt.Errorf("%w: email and password are required", ErrValidation)
	}

	account, err := e.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			e.metricInc(MetricLoginFailure)
			e.emitAudit(ctx, AuditLoginFailed, false, "", meta, ErrInvalidCredentials, map[string]string{
				"email":  email,
				"reason": "unknown_email",
			})
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !e.hasher.Verify(in.Password, account.PasswordDigest, account.PasswordSalt, account.PasswordIters) {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, AuditLoginFailed, false, account.ID, meta, ErrInvalidCredentials, map[string]string{
			"reason": "password_mismatch",
		})
		return nil, ErrInvalidCredentials
	}

	pair, err := e.issueSession(ctx, account, meta)
	if err != nil {
		return nil, err
	}

	// Last-login is bookkeeping; a write fault must not fail the login.
	if err := e.accounts.TouchLastLogin(ctx, account.ID, e.now()); err != nil {
		e.logger.Warn(ctx, "last-login update failed", "error", err)
	}

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, AuditLogin, true, account.ID, meta, nil, nil)

	return &AuthResult{User: *identityOf(account), TokenPair: pair}, nil
}
