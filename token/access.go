package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Access-token verification failures, distinguished so callers can map
// them to stable error codes.
var (
	ErrInvalid = errors.New("invalid access token")
	ErrExpired = errors.New("expired access token")
)

// AccessClaims is the signed claims payload of an access token. The
// subject is the account id.
type AccessClaims struct {
	Email    string `json:"email"`
	Role     string `json:"role"`
	FamilyID string `json:"familyId"`
	Plan     string `json:"plan"`
	jwt.RegisteredClaims
}

// Config holds access-token issuance parameters.
type Config struct {
	// Secret is the HMAC-SHA256 key shared by issue and verify.
	Secret []byte
	// TTL is the token lifetime.
	TTL time.Duration
	// Issuer is stamped into and required from every token when set.
	Issuer string
}

// Manager signs and verifies access tokens. A Manager is immutable after
// construction and safe for concurrent use.
type Manager struct {
	config Config
	now    func() time.Time
}

func NewManager(cfg Config) (*Manager, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("hs256 requires a secret")
	}
	if cfg.TTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	return &Manager{config: cfg, now: time.Now}, nil
}

// Issue signs a token for the subject with the manager's TTL.
func (m *Manager) Issue(subject, email, role, familyID, plan string) (string, error) {
	now := m.now()
	claims := AccessClaims{
		Email:    email,
		Role:     role,
		FamilyID: familyID,
		Plan:     plan,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    m.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.config.TTL)),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.config.Secret)
}

// Parse verifies structure, signature, and expiry, and returns the
// claims. Expiry is reported as [ErrExpired]; every other failure mode
// (wrong part count, bad signature, claim parse failure, wrong alg)
// collapses into [ErrInvalid].
func (m *Manager) Parse(tokenStr string) (*AccessClaims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	}
	if m.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(m.config.Issuer))
	}

	parsed, err := jwt.ParseWithClaims(tokenStr, &AccessClaims{}, func(t *jwt.Token) (interface{}, error) {
		return m.config.Secret, nil
	}, options...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, ErrInvalid
	}

	claims, ok := parsed.Claims.(*AccessClaims)
	if !ok || !parsed.Valid || claims.Subject == "" {
		return nil, ErrInvalid
	}
	return claims, nil
}
