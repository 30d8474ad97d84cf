package authkit

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"github.com/financeiro/authkit/internal/logging"
	"github.com/financeiro/authkit/password"
	"github.com/financeiro/authkit/token"
	"github.com/google/uuid"
)

// Engine orchestrates every authentication operation. It is the only
// component the rest of the application talks to; construct one through
// [Builder.Build] and treat it as immutable afterwards.
type Engine struct {
	config   Config
	accounts AccountStore
	sessions SessionStore
	resets   ResetStore
	hasher   *password.Hasher
	tokens   *token.Manager
	delivery ResetTokenDelivery
	audit    *auditDispatcher
	metrics  *Metrics
	logger   logging.Logger
	now      func() time.Time
}

// Close flushes and stops the audit dispatcher. The engine must not be
// used afterwards.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped reports how many audit events were dropped because the
// dispatcher buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a point-in-time copy of the engine counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil {
		return MetricsSnapshot{Counters: map[MetricID]uint64{}}
	}
	return e.metrics.Snapshot()
}

// Verify decodes and verifies a bearer access token, resolves its
// subject to a live account, and returns the caller's identity. It is
// the middleware entry point for every protected route.
func (e *Engine) Verify(ctx context.Context, accessToken string) (*Identity, error) {
	if e == nil || e.tokens == nil || e.accounts == nil {
		return nil, ErrEngineNotReady
	}
	if accessToken == "" {
		return nil, ErrUnauthorized
	}

	claims, err := e.tokens.Parse(accessToken)
	if err != nil {
		e.metricInc(MetricVerifyFailure)
		if err == token.ErrExpired {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	account, err := e.accounts.GetByID(ctx, claims.Subject)
	if err != nil {
		e.metricInc(MetricVerifyFailure)
		return nil, err
	}

	return identityOf(account), nil
}

// RecordRateLimited emits the audit event and counter for a request the
// rate-limit gate denied. Called by the HTTP middleware; it has no
// effect on the decision itself.
func (e *Engine) RecordRateLimited(ctx context.Context, endpoint string, meta ClientMeta) {
	if e == nil {
		return
	}
	e.metricInc(MetricRateLimitHit)
	e.emitAudit(ctx, AuditRateLimited, false, "", meta, ErrRateLimited, map[string]string{
		"endpoint": endpoint,
	})
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) emitAudit(ctx context.Context, action string, success bool, actorID string, meta ClientMeta, failure error, metadata map[string]string) {
	if e == nil || e.audit == nil {
		return
	}
	event := AuditEvent{
		At:        e.now(),
		Action:    action,
		Resource:  "auth",
		ActorID:   actorID,
		Success:   success,
		IP:        meta.IP,
		UserAgent: meta.UserAgent,
		Metadata:  metadata,
	}
	if failure != nil {
		event.Error = failure.Error()
	}
	e.audit.Emit(ctx, event)
}

// issueSession mints a refresh session plus access token for the
// account. The raw refresh token exists only in the returned pair.
func (e *Engine) issueSession(ctx context.Context, account *Account, meta ClientMeta) (TokenPair, error) {
	raw, err := token.NewOpaque(e.config.Session.RefreshTokenBytes)
	if err != nil {
		return TokenPair{}, err
	}

	now := e.now()
	session := &Session{
		ID:         uuid.NewString(),
		AccountID:  account.ID,
		TokenHash:  token.HashOpaque(raw),
		CreatedAt:  now,
		ExpiresAt:  now.Add(e.config.Session.TTL),
		LastUsedAt: &now,
		UserAgent:  meta.UserAgent,
		IP:         meta.IP,
	}
	if err := e.sessions.Create(ctx, session); err != nil {
		return TokenPair{}, err
	}

	access, err := e.issueAccess(account)
	if err != nil {
		return TokenPair{}, err
	}

	return TokenPair{AccessToken: access, RefreshToken: raw}, nil
}

func (e *Engine) issueAccess(account *Account) (string, error) {
	return e.tokens.Issue(account.ID, account.Email, string(account.Role), account.FamilyID, string(account.Plan))
}

func identityOf(account *Account) *Identity {
	return &Identity{
		ID:       account.ID,
		Email:    account.Email,
		Name:     account.Name,
		Role:     account.Role,
		FamilyID: account.FamilyID,
		Plan:     account.Plan,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validEmail(email string) bool {
	if email == "" || strings.ContainsAny(email, " \t") {
		return false
	}
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}
