package password

import "strings"

const symbols = `!@#$%^&*(),.?":{}|<>`

const minLength = 8

// Validate checks a candidate password against the acceptance policy and
// returns every violated rule. The policy applies at registration and
// reset only, never at login: existing credentials predating a policy
// change must keep working.
func Validate(candidate string) []string {
	var violations []string

	if len(candidate) < minLength {
		violations = append(violations, "password must be at least 8 characters")
	}
	if !strings.ContainsFunc(candidate, func(r rune) bool { return r >= 'A' && r <= 'Z' }) {
		violations = append(violations, "password must contain an uppercase letter")
	}
	if !strings.ContainsFunc(candidate, func(r rune) bool { return r >= 'a' && r <= 'z' }) {
		violations = append(violations, "password must contain a lowercase letter")
	}
	if !strings.ContainsFunc(candidate, func(r rune) bool { return r >= '0' && r <= '9' }) {
		violations = append(violations, "password must contain a digit")
	}
	if !strings.ContainsAny(candidate, symbols) {
		violations = append(violations, "password must contain a symbol")
	}

	return violations
}
