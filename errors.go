package authkit

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEngineNotReady is returned when an Engine is used before Build
	// wired its dependencies.
	ErrEngineNotReady = errors.New("engine not ready")

	// ErrValidation covers missing or malformed operation input.
	ErrValidation = errors.New("invalid request")

	// ErrEmailExists is returned by Register when the email is taken.
	ErrEmailExists = errors.New("email already registered")

	// ErrInvalidCredentials covers both an unknown email and a wrong
	// password. The two cases are intentionally indistinguishable.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrAccountNotFound is returned by account lookups when no row
	// matches.
	ErrAccountNotFound = errors.New("account not found")

	// ErrTokenInvalid covers a malformed, tampered, or unknown access
	// token.
	ErrTokenInvalid = errors.New("invalid token")

	// ErrTokenExpired is returned for a well-formed access token past its
	// expiry.
	ErrTokenExpired = errors.New("token expired")

	// ErrRefreshInvalid covers an unknown, revoked, or already-rotated
	// refresh token.
	ErrRefreshInvalid = errors.New("invalid refresh token")

	// ErrRefreshExpired is returned for a known refresh token past its
	// expiry.
	ErrRefreshExpired = errors.New("refresh token expired")

	// ErrSessionNotFound is the store-level miss underlying
	// ErrRefreshInvalid.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionExpired is the store-level expiry underlying
	// ErrRefreshExpired.
	ErrSessionExpired = errors.New("session expired")

	// ErrSessionRevoked is returned by rotation when the matching session
	// was already revoked, the signature of a replayed refresh token.
	ErrSessionRevoked = errors.New("session revoked")

	// ErrResetInvalid covers an unknown or already-used reset grant.
	ErrResetInvalid = errors.New("invalid reset token")

	// ErrResetExpired is returned for a known reset grant past its expiry.
	ErrResetExpired = errors.New("reset token expired")

	// ErrUnauthorized is returned when no credential accompanies a
	// request that requires one.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden is returned by the role gate.
	ErrForbidden = errors.New("forbidden")

	// ErrPlanRequired is returned by the plan gate.
	ErrPlanRequired = errors.New("plan upgrade required")

	// ErrRateLimited is returned when an attempt budget is exhausted.
	ErrRateLimited = errors.New("rate limited")

	// ErrStoreUnavailable marks infrastructure faults in a durable store.
	// Operations other than rate limiting fail closed on it.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// PolicyError reports every password-policy rule a candidate password
// violated, not just the first.
type PolicyError struct {
	Violations []string
}

func (e *PolicyError) Error() string {
	return fmt.Sprintf("password policy violation: %s", strings.Join(e.Violations, "; "))
}

// Is makes errors.Is(err, ErrValidation) hold for policy failures, since
// a weak password is a validation error at the operation boundary.
func (e *PolicyError) Is(target error) bool {
	return target == ErrValidation
}
