package authkit

import (
	"context"
	"time"
)

// Role is the coarse in-tenant role carried by an account and its tokens.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// Plan is the billing tier an account is on. Plan changes are owned by the
// billing collaborator; authkit only reads the value into issued tokens
// and enforces it through the middleware plan gate.
type Plan string

const (
	PlanFree   Plan = "FREE"
	PlanPro    Plan = "PRO"
	PlanFamily Plan = "FAMILY"
)

// Account is the identity record owned by this package. Email is stored
// lowercase and is unique case-insensitively. The password digest, salt,
// algorithm tag, and iteration count are stored alongside each other so
// that verification always recomputes with the parameters the digest was
// created with.
type Account struct {
	ID             string
	Email          string
	Name           string
	Role           Role
	FamilyID       string
	PasswordDigest string
	PasswordSalt   []byte
	PasswordAlgo   string
	PasswordIters  int
	EmailVerified  bool
	Plan           Plan
	CreatedAt      time.Time
	UpdatedAt      time.Time
	LastLoginAt    *time.Time
}

// Identity is the authenticated-caller value returned by [Engine.Verify].
// Calling code threads it through explicitly; nothing is attached to
// shared mutable request state.
type Identity struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Role     Role   `json:"role"`
	FamilyID string `json:"familyId"`
	Plan     Plan   `json:"plan"`
}

// TokenPair carries one freshly issued access/refresh token pair. The
// refresh token is the only place the raw bearer secret exists server-side;
// it must be handed to the client and forgotten.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// AuthResult is returned by Register and Login.
type AuthResult struct {
	User Identity
	TokenPair
}

// ClientMeta is the request metadata recorded on sessions and audit
// events. All fields are optional.
type ClientMeta struct {
	UserAgent string
	IP        string
}

// Session is one outstanding refresh-token grant. TokenHash is the
// SHA-256 of the raw refresh token; the raw token is never stored. A
// session is dead once RevokedAt is set or ExpiresAt has passed. Dead
// rows are retained for audit.
type Session struct {
	ID         string
	AccountID  string
	TokenHash  string
	CreatedAt  time.Time
	ExpiresAt  time.Time
	RevokedAt  *time.Time
	LastUsedAt *time.Time
	UserAgent  string
	IP         string
}

// Live reports whether the session can still be redeemed at the given
// instant.
func (s *Session) Live(now time.Time) bool {
	return s.RevokedAt == nil && now.Before(s.ExpiresAt)
}

// ResetGrant is a single-use password-reset grant. TokenHash is the
// SHA-256 of the raw reset token. Once UsedAt is set the grant is
// permanently invalid.
type ResetGrant struct {
	ID        string
	AccountID string
	TokenHash string
	CreatedAt time.Time
	ExpiresAt time.Time
	UsedAt    *time.Time
}

// AccountStore persists identity records.
//
// Implementations return [ErrEmailExists] from Create on a duplicate
// email and [ErrAccountNotFound] from the lookups when no row matches.
// Infrastructure faults are reported as errors wrapping
// [ErrStoreUnavailable].
type AccountStore interface {
	Create(ctx context.Context, account *Account) error
	GetByEmail(ctx context.Context, email string) (*Account, error)
	GetByID(ctx context.Context, id string) (*Account, error)

	// UpdatePassword replaces the stored credential material in one step.
	UpdatePassword(ctx context.Context, id, digest string, salt []byte, algo string, iterations int) error

	// TouchLastLogin is best-effort bookkeeping; callers ignore its error.
	TouchLastLogin(ctx context.Context, id string, at time.Time) error
}

// SessionStore persists refresh-token sessions.
//
// Rotate is the rotation primitive: it must revoke the session matching
// tokenHash and insert next in one atomic step, conditional on the
// session not already being revoked, so that two concurrent redemptions
// of the same raw token cannot both succeed. Rotate completes
// next.AccountID from the predecessor and returns the revoked
// predecessor. It returns [ErrSessionNotFound] when no session matches,
// [ErrSessionRevoked] when the match was already revoked (a replayed
// token), or [ErrSessionExpired] when the match is past its expiry; in
// every failure case next is not created.
type SessionStore interface {
	Create(ctx context.Context, session *Session) error
	Rotate(ctx context.Context, tokenHash string, next *Session) (*Session, error)

	// Revoke marks the session matching tokenHash revoked. Revoking an
	// unknown or already-revoked hash is not an error.
	Revoke(ctx context.Context, tokenHash string) error

	// RevokeAllForAccount is the global-logout primitive used after a
	// password reset.
	RevokeAllForAccount(ctx context.Context, accountID string) error
}

// ResetStore persists password-reset grants.
//
// Consume is one-shot: it marks the grant matching tokenHash used and
// returns it, conditional on the grant not already being used. It returns
// [ErrResetInvalid] when no unused grant matches and [ErrResetExpired]
// when the match is past its expiry.
type ResetStore interface {
	Create(ctx context.Context, grant *ResetGrant) error
	Consume(ctx context.Context, tokenHash string, at time.Time) (*ResetGrant, error)
}

// ResetTokenDelivery hands a raw reset token to an external delivery
// collaborator (typically an email sender). Delivery failures are logged
// but do not change the generic response of the forgot-password flow.
type ResetTokenDelivery interface {
	DeliverResetToken(ctx context.Context, email, rawToken string) error
}

// ResetTokenDeliveryFunc adapts a function to [ResetTokenDelivery].
type ResetTokenDeliveryFunc func(ctx context.Context, email, rawToken string) error

func (f ResetTokenDeliveryFunc) DeliverResetToken(ctx context.Context, email, rawToken string) error {
	return f(ctx, email, rawToken)
}
