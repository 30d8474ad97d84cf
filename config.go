package authkit

import (
	"errors"
	"time"

	"github.com/financeiro/authkit/rate"
)

// Config carries all engine tuning. Zero values are filled from
// [DefaultConfig] by the Builder; Build rejects configurations that would
// weaken the credential or token layers.
type Config struct {
	Token    TokenConfig
	Session  SessionConfig
	Password PasswordConfig
	Reset    ResetConfig
	Rate     RateConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
}

// TokenConfig controls access-token issuance.
type TokenConfig struct {
	// Secret is the HMAC-SHA256 signing key. Required, at least 32 bytes.
	Secret []byte
	// AccessTTL is the access-token lifetime. Default 15 minutes; a
	// compromised access token is only invalidated by this TTL elapsing.
	AccessTTL time.Duration
	Issuer    string
}

// SessionConfig controls refresh sessions.
type SessionConfig struct {
	// TTL is the refresh-session lifetime. Default 30 days.
	TTL time.Duration
	// RefreshTokenBytes is the refresh-token entropy. Default 32.
	RefreshTokenBytes int
}

// PasswordConfig controls credential hashing.
type PasswordConfig struct {
	// Iterations is the PBKDF2-SHA256 iteration count. Default 150000.
	Iterations int
	// SaltBytes is the per-account salt size. Default 16.
	SaltBytes int
}

// ResetConfig controls the password-reset flow.
type ResetConfig struct {
	// TTL is the reset-grant lifetime. Default 1 hour.
	TTL time.Duration
	// TokenBytes is the reset-token entropy. Default 24.
	TokenBytes int
	// ExposeRawToken returns the raw reset token in the forgot-password
	// result. Diagnostic use outside production only; the normal path is
	// the ResetTokenDelivery collaborator.
	ExposeRawToken bool
}

// RateConfig carries the per-endpoint-class throttle policies consumed by
// the httpapi rate-limit middleware.
type RateConfig struct {
	// Auth guards register and login. Default 5 attempts / 60s window,
	// 15 minute block.
	Auth rate.Policy
	// Reset guards forgot-password. Default 3 attempts / 60s window,
	// 60 minute block.
	Reset rate.Policy
}

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	// DropIfFull drops events instead of blocking the request path when
	// the buffer is full. Dropped counts are observable via
	// [Engine.AuditDropped].
	DropIfFull bool
}

// MetricsConfig controls the in-process counter registry.
type MetricsConfig struct {
	Enabled bool
}

// DefaultConfig returns the production defaults. The token secret has no
// default and must be supplied.
func DefaultConfig() Config {
	return Config{
		Token: TokenConfig{
			AccessTTL: 15 * time.Minute,
			Issuer:    "financeiro",
		},
		Session: SessionConfig{
			TTL:               30 * 24 * time.Hour,
			RefreshTokenBytes: 32,
		},
		Password: PasswordConfig{
			Iterations: 150_000,
			SaltBytes:  16,
		},
		Reset: ResetConfig{
			TTL:        time.Hour,
			TokenBytes: 24,
		},
		Rate: RateConfig{
			Auth:  rate.AuthPolicy(),
			Reset: rate.ResetPolicy(),
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{Enabled: true},
	}
}

func (c *Config) applyDefaults() {
	def := DefaultConfig()
	if c.Token.AccessTTL == 0 {
		c.Token.AccessTTL = def.Token.AccessTTL
	}
	if c.Token.Issuer == "" {
		c.Token.Issuer = def.Token.Issuer
	}
	if c.Session.TTL == 0 {
		c.Session.TTL = def.Session.TTL
	}
	if c.Session.RefreshTokenBytes == 0 {
		c.Session.RefreshTokenBytes = def.Session.RefreshTokenBytes
	}
	if c.Password.Iterations == 0 {
		c.Password.Iterations = def.Password.Iterations
	}
	if c.Password.SaltBytes == 0 {
		c.Password.SaltBytes = def.Password.SaltBytes
	}
	if c.Reset.TTL == 0 {
		c.Reset.TTL = def.Reset.TTL
	}
	if c.Reset.TokenBytes == 0 {
		c.Reset.TokenBytes = def.Reset.TokenBytes
	}
	if c.Rate.Auth == (rate.Policy{}) {
		c.Rate.Auth = def.Rate.Auth
	}
	if c.Rate.Reset == (rate.Policy{}) {
		c.Rate.Reset = def.Rate.Reset
	}
	if c.Audit.BufferSize == 0 {
		c.Audit.BufferSize = def.Audit.BufferSize
	}
}

func (c *Config) validate() error {
	if len(c.Token.Secret) < 32 {
		return errors.New("token secret must be at least 32 bytes")
	}
	if c.Token.AccessTTL < time.Minute || c.Token.AccessTTL > 24*time.Hour {
		return errors.New("access TTL out of range")
	}
	if c.Session.TTL < time.Hour {
		return errors.New("session TTL too short")
	}
	if c.Session.RefreshTokenBytes < 32 {
		return errors.New("refresh token entropy below 32 bytes")
	}
	if c.Password.Iterations < 100_000 {
		return errors.New("pbkdf2 iteration count below 100000")
	}
	if c.Password.SaltBytes < 16 {
		return errors.New("salt size below 16 bytes")
	}
	if c.Reset.TTL < time.Minute || c.Reset.TTL > 24*time.Hour {
		return errors.New("reset TTL out of range")
	}
	if c.Reset.TokenBytes < 24 {
		return errors.New("reset token entropy below 24 bytes")
	}
	return nil
}
