package httpapi

import (
	"errors"
	"net/http"

	"github.com/financeiro/authkit"
)

// respondEngineError maps engine failures to the stable wire codes the
// original clients key on. Store faults never leak detail.
func respondEngineError(w http.ResponseWriter, err error) {
	var policy *authkit.PolicyError
	if errors.As(err, &policy) {
		writeJSON(w, http.StatusBadRequest, envelope{Success: false, Error: &errorBody{
			Code:    "WEAK_PASSWORD",
			Message: "password does not meet the security requirements",
			Details: policy.Violations,
		}})
		return
	}

	switch {
	case errors.Is(err, authkit.ErrValidation):
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
	case errors.Is(err, authkit.ErrEmailExists):
		respondError(w, http.StatusConflict, "EMAIL_EXISTS", "an account with this email already exists")
	case errors.Is(err, authkit.ErrInvalidCredentials):
		respondError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "invalid email or password")
	case errors.Is(err, authkit.ErrRefreshExpired):
		respondError(w, http.StatusUnauthorized, "EXPIRED_REFRESH_TOKEN", "refresh token expired")
	case errors.Is(err, authkit.ErrRefreshInvalid):
		respondError(w, http.StatusUnauthorized, "INVALID_REFRESH_TOKEN", "invalid refresh token")
	case errors.Is(err, authkit.ErrResetExpired):
		respondError(w, http.StatusBadRequest, "EXPIRED_RESET_TOKEN", "reset token expired")
	case errors.Is(err, authkit.ErrResetInvalid):
		respondError(w, http.StatusBadRequest, "INVALID_RESET_TOKEN", "invalid or already used reset token")
	case errors.Is(err, authkit.ErrTokenExpired):
		respondError(w, http.StatusUnauthorized, "EXPIRED_TOKEN", "token expired")
	case errors.Is(err, authkit.ErrTokenInvalid):
		respondError(w, http.StatusUnauthorized, "INVALID_TOKEN", "invalid or expired token")
	case errors.Is(err, authkit.ErrAccountNotFound):
		respondError(w, http.StatusUnauthorized, "USER_NOT_FOUND", "account no longer exists")
	case errors.Is(err, authkit.ErrUnauthorized):
		respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
	case errors.Is(err, authkit.ErrForbidden):
		respondError(w, http.StatusForbidden, "FORBIDDEN", "insufficient permissions")
	case errors.Is(err, authkit.ErrPlanRequired):
		respondError(w, http.StatusForbidden, "PLAN_REQUIRED", "this feature requires a plan upgrade")
	default:
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal error")
	}
}
