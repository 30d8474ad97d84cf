package authkit

import (
	"context"
	"errors"
	"fmt"

	"github.com/financeiro/authkit/password"
	"github.com/financeiro/authkit/token"
	"github.com/google/uuid"
)

// ResetRequest is the outcome of RequestPasswordReset. RawToken is
// populated only when Config.Reset.ExposeRawToken is set; in production
// the raw token travels exclusively through the delivery collaborator.
type ResetRequest struct {
	RawToken string
}

// RequestPasswordReset issues a single-use reset grant for the account
// behind email, if one exists. The outcome is identical either way;
// requesting a reset must not reveal whether an email is registered, so
// the unknown-email path still generates a token and burns the same
// work before discarding it.
func (e *Engine) RequestPasswordReset(ctx context.Context, email string, meta ClientMeta) (*ResetRequest, error) {
	if e == nil || e.accounts == nil || e.resets == nil {
		return nil, ErrEngineNotReady
	}

	email = normalizeEmail(email)
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", ErrValidation)
	}

	raw, err := token.NewOpaque(e.config.Reset.TokenBytes)
	if err != nil {
		return nil, err
	}

	account, err := e.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			e.metricInc(MetricResetRequested)
			e.emitAudit(ctx, AuditResetRequested, true, "", meta, nil, map[string]string{
				"email":            email,
				"enumeration_safe": "true",
			})
			return &ResetRequest{}, nil
		}
		return nil, err
	}

	now := e.now()
	grant := &ResetGrant{
		ID:        uuid.NewString(),
		AccountID: account.ID,
		TokenHash: token.HashOpaque(raw),
		CreatedAt: now,
		ExpiresAt: now.Add(e.config.Reset.TTL),
	}
	if err := e.resets.Create(ctx, grant); err != nil {
		return nil, err
	}

	if e.delivery != nil {
		// Delivery faults stay internal; the caller still gets the
		// generic response.
		if err := e.delivery.DeliverResetToken(ctx, account.Email, raw); err != nil {
			e.logger.Error(ctx, "reset token delivery failed", "error", err)
		}
	}

	e.metricInc(MetricResetRequested)
	e.emitAudit(ctx, AuditResetRequested, true, account.ID, meta, nil, nil)

	result := &ResetRequest{}
	if e.config.Reset.ExposeRawToken {
		result.RawToken = raw
	}
	return result, nil
}

// ResetPassword redeems a reset grant: it validates the new password,
// rehashes with a fresh salt, marks the grant used, and revokes every
// session of the account: a credential that needed resetting may have
// been compromised, so every outstanding refresh chain dies with it.
func (e *Engine) ResetPassword(ctx context.Context, rawToken, newPassword string, meta ClientMeta) error {
	if e == nil || e.accounts == nil || e.resets == nil || e.sessions == nil {
		return ErrEngineNotReady
	}
	if rawToken == "" || newPassword == "" {
		return fmt.Errorf("%w: token and newPassword are required", ErrValidation)
	}
	if violations := password.Validate(newPassword); len(violations) > 0 {
		return &PolicyError{Violations: violations}
	}

	grant, err := e.resets.Consume(ctx, token.HashOpaque(rawToken), e.now())
	if err != nil {
		return err
	}

	salt, err := password.NewSalt()
	if err != nil {
		return err
	}
	digest := e.hasher.Hash(newPassword, salt)

	if err := e.accounts.UpdatePassword(ctx, grant.AccountID, digest, salt, password.Algorithm, e.hasher.Iterations()); err != nil {
		return err
	}

	if err := e.sessions.RevokeAllForAccount(ctx, grant.AccountID); err != nil {
		return err
	}

	e.metricInc(MetricResetCompleted)
	e.emitAudit(ctx, AuditResetCompleted, true, grant.AccountID, meta, nil, nil)
	return nil
}
