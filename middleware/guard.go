package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/financeiro/authkit"
)

// Verifier resolves a bearer access token to a caller identity.
// *authkit.Engine satisfies it.
type Verifier interface {
	Verify(ctx context.Context, accessToken string) (*authkit.Identity, error)
}

type identityContextKey struct{}

// IdentityFromContext returns the identity the guard attached, if any.
func IdentityFromContext(ctx context.Context) (*authkit.Identity, bool) {
	id, ok := ctx.Value(identityContextKey{}).(*authkit.Identity)
	return id, ok
}

// WithIdentity returns a context carrying the identity. Exported for
// handler tests.
func WithIdentity(ctx context.Context, id *authkit.Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, id)
}

// Guard rejects requests without a valid Bearer access token and
// attaches the resolved identity to the request context for downstream
// handlers.
func Guard(verifier Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing bearer token")
				return
			}

			identity, err := verifier.Verify(r.Context(), token)
			if err != nil {
				status, code, message := classifyVerifyError(err)
				writeError(w, status, code, message)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

// RequireRole gates a route on the caller's role. Must run inside Guard.
func RequireRole(roles ...authkit.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := IdentityFromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
				return
			}
			for _, role := range roles {
				if identity.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeError(w, http.StatusForbidden, "FORBIDDEN", "insufficient role")
		})
	}
}

// RequirePlan gates a route on the caller's billing plan. Must run
// inside Guard.
func RequirePlan(plans ...authkit.Plan) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := IdentityFromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
				return
			}
			for _, plan := range plans {
				if identity.Plan == plan {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeError(w, http.StatusForbidden, "PLAN_REQUIRED", "this feature requires a plan upgrade")
		})
	}
}

func classifyVerifyError(err error) (int, string, string) {
	switch {
	case errors.Is(err, authkit.ErrTokenExpired):
		return http.StatusUnauthorized, "EXPIRED_TOKEN", "token expired"
	case errors.Is(err, authkit.ErrAccountNotFound):
		return http.StatusUnauthorized, "USER_NOT_FOUND", "account no longer exists"
	case errors.Is(err, authkit.ErrStoreUnavailable):
		return http.StatusInternalServerError, "INTERNAL_ERROR", "internal error"
	default:
		return http.StatusUnauthorized, "INVALID_TOKEN", "invalid or expired token"
	}
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}
	return token, true
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"error":   map[string]any{"code": code, "message": message},
	})
}
