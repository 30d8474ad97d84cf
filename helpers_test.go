package authkit

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/financeiro/authkit/token"
)

const (
	testEmail    = "user@example.com"
	testPassword = "Sup3r$ecret!"
	testName     = "Test User"
)

var testSecret = []byte(strings.Repeat("s", 32))

type memAccounts struct {
	mu      sync.Mutex
	byID    map[string]*Account
	byEmail map[string]*Account

	createErr error
	getErr    error
	touched   int
}

func newMemAccounts() *memAccounts {
	return &memAccounts{
		byID:    make(map[string]*Account),
		byEmail: make(map[string]*Account),
	}
}

func (s *memAccounts) Create(_ context.Context, account *Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	if _, ok := s.byEmail[account.Email]; ok {
		return ErrEmailExists
	}
	cp := *account
	s.byID[cp.ID] = &cp
	s.byEmail[cp.Email] = &cp
	return nil
}

func (s *memAccounts) GetByEmail(_ context.Context, email string) (*Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, s.getErr
	}
	account, ok := s.byEmail[email]
	if !ok {
		return nil, ErrAccountNotFound
	}
	cp := *account
	return &cp, nil
}

func (s *memAccounts) GetByID(_ context.Context, id string) (*Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, s.getErr
	}
	account, ok := s.byID[id]
	if !ok {
		return nil, ErrAccountNotFound
	}
	cp := *account
	return &cp, nil
}

func (s *memAccounts) UpdatePassword(_ context.Context, id, digest string, salt []byte, algo string, iterations int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	account, ok := s.byID[id]
	if !ok {
		return ErrAccountNotFound
	}
	account.PasswordDigest = digest
	account.PasswordSalt = append([]byte(nil), salt...)
	account.PasswordAlgo = algo
	account.PasswordIters = iterations
	return nil
}

func (s *memAccounts) TouchLastLogin(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if account, ok := s.byID[id]; ok {
		account.LastLoginAt = &at
	}
	s.touched++
	return nil
}

func (s *memAccounts) delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if account, ok := s.byID[id]; ok {
		delete(s.byEmail, account.Email)
		delete(s.byID, id)
	}
}

type memSessions struct {
	mu     sync.Mutex
	byHash map[string]*Session

	createErr error
	rotateErr error
}

func newMemSessions() *memSessions {
	return &memSessions{byHash: make(map[string]*Session)}
}

func (s *memSessions) Create(_ context.Context, session *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	cp := *session
	s.byHash[cp.TokenHash] = &cp
	return nil
}

func (s *memSessions) Rotate(_ context.Context, tokenHash string, next *Session) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rotateErr != nil {
		return nil, s.rotateErr
	}
	prev, ok := s.byHash[tokenHash]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if prev.RevokedAt != nil {
		return nil, ErrSessionRevoked
	}
	if !prev.ExpiresAt.After(next.CreatedAt) {
		return nil, ErrSessionExpired
	}
	now := next.CreatedAt
	prev.RevokedAt = &now
	next.AccountID = prev.AccountID
	cp := *next
	s.byHash[cp.TokenHash] = &cp
	revoked := *prev
	return &revoked, nil
}

func (s *memSessions) Revoke(_ context.Context, tokenHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if session, ok := s.byHash[tokenHash]; ok && session.RevokedAt == nil {
		now := time.Now()
		session.RevokedAt = &now
	}
	return nil
}

func (s *memSessions) RevokeAllForAccount(_ context.Context, accountID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for _, session := range s.byHash {
		if session.AccountID == accountID && session.RevokedAt == nil {
			session.RevokedAt = &now
		}
	}
	return nil
}

func (s *memSessions) live(accountID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, session := range s.byHash {
		if session.AccountID == accountID && session.Live(time.Now()) {
			n++
		}
	}
	return n
}

func (s *memSessions) expire(tokenHash string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if session, ok := s.byHash[tokenHash]; ok {
		session.ExpiresAt = time.Now().Add(-time.Minute)
	}
}

type memResets struct {
	mu     sync.Mutex
	byHash map[string]*ResetGrant

	createErr error
}

func newMemResets() *memResets {
	return &memResets{byHash: make(map[string]*ResetGrant)}
}

func (s *memResets) Create(_ context.Context, grant *ResetGrant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	cp := *grant
	s.byHash[cp.TokenHash] = &cp
	return nil
}

func (s *memResets) Consume(_ context.Context, tokenHash string, at time.Time) (*ResetGrant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	grant, ok := s.byHash[tokenHash]
	if !ok || grant.UsedAt != nil {
		return nil, ErrResetInvalid
	}
	grant.UsedAt = &at
	if at.After(grant.ExpiresAt) {
		return nil, ErrResetExpired
	}
	cp := *grant
	return &cp, nil
}

func (s *memResets) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byHash)
}

type testStores struct {
	accounts *memAccounts
	sessions *memSessions
	resets   *memResets
}

func newTestStores() *testStores {
	return &testStores{
		accounts: newMemAccounts(),
		sessions: newMemSessions(),
		resets:   newMemResets(),
	}
}

type engineOption func(*Builder)

func newTestEngine(t *testing.T, stores *testStores, opts ...engineOption) *Engine {
	t.Helper()

	cfg := DefaultConfig()
	cfg.Token.Secret = testSecret
	cfg.Reset.ExposeRawToken = true

	builder := New().
		WithConfig(cfg).
		WithStores(stores.accounts, stores.sessions, stores.resets)
	for _, opt := range opts {
		opt(builder)
	}

	engine, err := builder.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine
}

func register(t *testing.T, engine *Engine) *AuthResult {
	t.Helper()

	result, err := engine.Register(context.Background(), RegisterInput{
		Email:    testEmail,
		Password: testPassword,
		Name:     testName,
	}, ClientMeta{UserAgent: "go-test", IP: "203.0.113.7"})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	return result
}

func hashOf(raw string) string {
	return token.HashOpaque(raw)
}
