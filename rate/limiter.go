package rate

import (
	"context"
	"time"

	"github.com/financeiro/authkit/internal/logging"
)

// Policy is one attempt budget: MaxAttempts inside Window, then a block
// lasting BlockDuration.
type Policy struct {
	MaxAttempts   int
	Window        time.Duration
	BlockDuration time.Duration
}

// AuthPolicy is the default budget for authentication endpoints.
func AuthPolicy() Policy {
	return Policy{MaxAttempts: 5, Window: time.Minute, BlockDuration: 15 * time.Minute}
}

// ResetPolicy is the default budget for password-reset requests.
func ResetPolicy() Policy {
	return Policy{MaxAttempts: 3, Window: time.Minute, BlockDuration: time.Hour}
}

// Decision is the outcome of one attempt. RetryAfter is the whole number
// of seconds until the block lifts; it is positive exactly when the
// attempt is denied.
type Decision struct {
	Allowed    bool
	RetryAfter int
}

// CounterStore applies the window transition for one key:
//
//  1. no counter, or the window since the last attempt elapsed: reset to
//     one attempt, clear any block, allow;
//  2. inside the window and not blocked: increment; deny and start the
//     block when the count reaches MaxAttempts;
//  3. blocked: deny with the seconds remaining, without incrementing.
//
// Implementations must apply the transition atomically per key.
type CounterStore interface {
	Take(ctx context.Context, key string, policy Policy, now time.Time) (Decision, error)
}

// Limiter evaluates attempt budgets against a counter store.
type Limiter struct {
	store  CounterStore
	logger logging.Logger
	now    func() time.Time
}

func NewLimiter(store CounterStore, logger logging.Logger) *Limiter {
	return &Limiter{store: store, logger: logger, now: time.Now}
}

// Allow records an attempt for the (endpoint, client) key under the
// policy and returns the decision. A store fault fails open: the request
// is allowed and the fault is logged, never surfaced to the caller.
func (l *Limiter) Allow(ctx context.Context, endpoint, client string, policy Policy) Decision {
	if l == nil || l.store == nil {
		return Decision{Allowed: true}
	}

	key := "ratelimit:" + endpoint + ":" + client
	decision, err := l.store.Take(ctx, key, policy, l.now())
	if err != nil {
		if l.logger != nil {
			l.logger.Warn(ctx, "rate counter store fault, failing open", "endpoint", endpoint, "error", err)
		}
		return Decision{Allowed: true}
	}
	return decision
}
