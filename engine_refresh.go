package authkit

import (
	"context"
	"errors"
	"fmt"

	"github.com/financeiro/authkit/token"
	"github.com/google/uuid"
)

// Refresh rotates a refresh session: the presented token's session is
// revoked and a new session plus token pair is issued in the same atomic
// store step, so the redeemed token can never be reused. Two concurrent
// redemptions of the same raw token race on the conditional revoke;
// exactly one wins.
func (e *Engine) Refresh(ctx context.Context, refreshToken string, meta ClientMeta) (*TokenPair, error) {
	if e == nil || e.accounts == nil || e.sessions == nil {
		return nil, ErrEngineNotReady
	}
	if refreshToken == "" {
		return nil, fmt.Errorf("%w: refreshToken is required", ErrValidation)
	}

	raw, err := token.NewOpaque(e.config.Session.RefreshTokenBytes)
	if err != nil {
		return nil, err
	}

	now := e.now()
	next := &Session{
		ID:         uuid.NewString(),
		TokenHash:  token.HashOpaque(raw),
		CreatedAt:  now,
		ExpiresAt:  now.Add(e.config.Session.TTL),
		LastUsedAt: &now,
		UserAgent:  meta.UserAgent,
		IP:         meta.IP,
	}

	revoked, err := e.sessions.Rotate(ctx, token.HashOpaque(refreshToken), next)
	if err != nil {
		switch {
		case errors.Is(err, ErrSessionRevoked):
			e.metricInc(MetricRefreshReuse)
			e.emitAudit(ctx, AuditRefreshReuse, false, "", meta, err, nil)
			return nil, ErrRefreshInvalid
		case errors.Is(err, ErrSessionNotFound):
			e.metricInc(MetricRefreshFailure)
			e.emitAudit(ctx, AuditRefresh, false, "", meta, ErrRefreshInvalid, nil)
			return nil, ErrRefreshInvalid
		case errors.Is(err, ErrSessionExpired):
			e.metricInc(MetricRefreshFailure)
			e.emitAudit(ctx, AuditRefresh, false, "", meta, ErrRefreshExpired, nil)
			return nil, ErrRefreshExpired
		}
		return nil, err
	}

	account, err := e.accounts.GetByID(ctx, revoked.AccountID)
	if err != nil {
		// The chain is already rotated; without a live account the new
		// link must not stay redeemable.
		if revokeErr := e.sessions.Revoke(ctx, next.TokenHash); revokeErr != nil {
			e.logger.Warn(ctx, "orphan session revoke failed", "error", revokeErr)
		}
		if errors.Is(err, ErrAccountNotFound) {
			e.metricInc(MetricRefreshFailure)
			e.emitAudit(ctx, AuditRefresh, false, revoked.AccountID, meta, ErrRefreshInvalid, map[string]string{
				"reason": "account_gone",
			})
			return nil, ErrRefreshInvalid
		}
		return nil, err
	}

	access, err := e.issueAccess(account)
	if err != nil {
		return nil, err
	}

	e.metricInc(MetricRefreshSuccess)
	e.emitAudit(ctx, AuditRefresh, true, account.ID, meta, nil, nil)

	return &TokenPair{AccessToken: access, RefreshToken: raw}, nil
}

// Logout revokes the session matching the presented refresh token.
// Revoking an unknown or already-revoked token succeeds; the only
// failure mode is an empty token.
func (e *Engine) Logout(ctx context.Context, refreshToken string, meta ClientMeta) error {
	if e == nil || e.sessions == nil {
		return ErrEngineNotReady
	}
	if refreshToken == "" {
		return fmt.Errorf("%w: refreshToken is required", ErrValidation)
	}

	if err := e.sessions.Revoke(ctx, token.HashOpaque(refreshToken)); err != nil {
		return err
	}

	e.metricInc(MetricLogout)
	e.emitAudit(ctx, AuditLogout, true, "", meta, nil, nil)
	return nil
}
