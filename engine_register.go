package authkit

import (
	"context"
	"errors"
	"fmt"

	"github.com/financeiro/authkit/password"
	"github.com/google/uuid"
)

// RegisterInput is the validated value type for Register. Construct it
// from request data; Register re-checks every field.
type RegisterInput struct {
	Email    string
	Password string
	Name     string
}

// Register creates a new account plus its first session and token pair.
//
// Each registration creates its own tenant: the new account becomes the
// admin of a fresh family on the FREE plan. Joining an existing family
// is an invitation feature owned by the surrounding application.
func (e *Engine) Register(ctx context.Context, in RegisterInput, meta ClientMeta) (*AuthResult, error) {
	if e == nil || e.accounts == nil || e.sessions == nil {
		return nil, ErrEngineNotReady
	}

	email := normalizeEmail(in.Email)
	if email == "" || in.Password == "" || in.Name == "" {
		return nil, fmt.Errorf("%w: email, password and name are required", ErrValidation)
	}
	if !validEmail(email) {
		return nil, fmt.Errorf("%w: malformed email", ErrValidation)
	}
	if violations := password.Validate(in.Password); len(violations) > 0 {
		return nil, &PolicyError{Violations: violations}
	}

	salt, err := password.NewSalt()
	if err != nil {
		return nil, err
	}

	now := e.now()
	account := &Account{
		ID:             uuid.NewString(),
		Email:          email,
		Name:           in.Name,
		Role:           RoleAdmin,
		FamilyID:       uuid.NewString(),
		PasswordDigest: e.hasher.Hash(in.Password, salt),
		PasswordSalt:   salt,
		PasswordAlgo:   password.Algorithm,
		PasswordIters:  e.hasher.Iterations(),
		Plan:           PlanFree,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := e.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, ErrEmailExists) {
			e.metricInc(MetricRegisterDuplicate)
			e.emitAudit(ctx, AuditRegister, false, "", meta, ErrEmailExists, map[string]string{
				"email": email,
			})
			return nil, ErrEmailExists
		}
		return nil, err
	}

	pair, err := e.issueSession(ctx, account, meta)
	if err != nil {
		return nil, err
	}

	e.metricInc(MetricRegisterSuccess)
	e.emitAudit(ctx, AuditRegister, true, account.ID, meta, nil, nil)

	return &AuthResult{User: *identityOf(account), TokenPair: pair}, nil
}
