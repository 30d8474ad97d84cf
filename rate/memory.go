package rate

import (
	"context"
	"sync"
	"time"
)

type counter struct {
	attempts     int
	lastAttempt  time.Time
	blockedUntil time.Time
}

// MemoryStore keeps counters in process memory. Suitable for tests and
// single-node deployments; counters are lost on restart and the limiter
// starts over.
type MemoryStore struct {
	mu       sync.Mutex
	counters map[string]*counter
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{counters: make(map[string]*counter)}
}

func (s *MemoryStore) Take(_ context.Context, key string, policy Policy, now time.Time) (Decision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.counters[key]

	if ok && now.Before(c.blockedUntil) {
		return deny(c.blockedUntil.Sub(now)), nil
	}

	if !ok || now.Sub(c.lastAttempt) > policy.Window {
		s.counters[key] = &counter{attempts: 1, lastAttempt: now}
		return Decision{Allowed: true}, nil
	}

	c.attempts++
	c.lastAttempt = now
	if c.attempts >= policy.MaxAttempts {
		c.blockedUntil = now.Add(policy.BlockDuration)
		return deny(policy.BlockDuration), nil
	}
	return Decision{Allowed: true}, nil
}

func deny(remaining time.Duration) Decision {
	secs := int((remaining + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return Decision{Allowed: false, RetryAfter: secs}
}
