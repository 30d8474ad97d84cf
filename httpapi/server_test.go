package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/financeiro/authkit"
	"github.com/financeiro/authkit/internal/logging"
	"github.com/financeiro/authkit/rate"
)

type memAccounts struct {
	mu      sync.Mutex
	byID    map[string]*authkit.Account
	byEmail map[string]*authkit.Account
}

func (s *memAccounts) Create(_ context.Context, a *authkit.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byEmail[a.Email]; ok {
		return authkit.ErrEmailExists
	}
	cp := *a
	s.byID[cp.ID] = &cp
	s.byEmail[cp.Email] = &cp
	return nil
}

func (s *memAccounts) GetByEmail(_ context.Context, email string) (*authkit.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.byEmail[email]
	if !ok {
		return nil, authkit.ErrAccountNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *memAccounts) GetByID(_ context.Context, id string) (*authkit.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.byID[id]
	if !ok {
		return nil, authkit.ErrAccountNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *memAccounts) UpdatePassword(_ context.Context, id, digest string, salt []byte, algo string, iterations int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.byID[id]
	if !ok {
		return authkit.ErrAccountNotFound
	}
	a.PasswordDigest = digest
	a.PasswordSalt = append([]byte(nil), salt...)
	a.PasswordAlgo = algo
	a.PasswordIters = iterations
	return nil
}

func (s *memAccounts) TouchLastLogin(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.byID[id]; ok {
		a.LastLoginAt = &at
	}
	return nil
}

type memSessions struct {
	mu     sync.Mutex
	byHash map[string]*authkit.Session
}

func (s *memSessions) Create(_ context.Context, sess *authkit.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *sess
	s.byHash[cp.TokenHash] = &cp
	return nil
}

func (s *memSessions) Rotate(_ context.Context, tokenHash string, next *authkit.Session) (*authkit.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.byHash[tokenHash]
	if !ok {
		return nil, authkit.ErrSessionNotFound
	}
	if prev.RevokedAt != nil {
		return nil, authkit.ErrSessionRevoked
	}
	if !prev.ExpiresAt.After(next.CreatedAt) {
		return nil, authkit.ErrSessionExpired
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
	if sess, ok := s.byHash[tokenHash]; ok && sess.RevokedAt == nil {
		now := time.Now()
		sess.RevokedAt = &now
	}
	return nil
}

func (s *memSessions) RevokeAllForAccount(_ context.Context, accountID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for _, sess := range s.byHash {
		if sess.AccountID == accountID && sess.RevokedAt == nil {
			sess.RevokedAt = &now
		}
	}
	return nil
}

type memResets struct {
	mu     sync.Mutex
	byHash map[string]*authkit.ResetGrant
}

func (s *memResets) Create(_ context.Context, g *authkit.ResetGrant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *g
	s.byHash[cp.TokenHash] = &cp
	return nil
}

func (s *memResets) Consume(_ context.Context, tokenHash string, at time.Time) (*authkit.ResetGrant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.byHash[tokenHash]
	if !ok || g.UsedAt != nil {
		return nil, authkit.ErrResetInvalid
	}
	g.UsedAt = &at
	if at.After(g.ExpiresAt) {
		return nil, authkit.ErrResetExpired
	}
	cp := *g
	return &cp, nil
}

func newTestHandler(t *testing.T, limiter *rate.Limiter) http.Handler {
	t.Helper()

	cfg := authkit.DefaultConfig()
	cfg.Token.Secret = []byte(strings.Repeat("s", 32))
	cfg.Reset.ExposeRawToken = true

	engine, err := authkit.New().
		WithConfig(cfg).
		WithStores(
			&memAccounts{byID: map[string]*authkit.Account{}, byEmail: map[string]*authkit.Account{}},
			&memSessions{byHash: map[string]*authkit.Session{}},
			&memResets{byHash: map[string]*authkit.ResetGrant{}},
		).
		Build()
	require.NoError(t, err)
	t.Cleanup(engine.Close)

	return NewServer(engine, limiter, cfg.Rate).Handler()
}

func postJSON(t *testing.T, handler http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

type wireEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code       string   `json:"code"`
		Message    string   `json:"message"`
		Details    []string `json:"details"`
		RetryAfter int      `json:"retryAfter"`
	} `json:"error"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) wireEnvelope {
	t.Helper()
	var env wireEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func registerUser(t *testing.T, handler http.Handler) (user map[string]any, access, refresh string) {
	t.Helper()
	rec := postJSON(t, handler, "/auth/register", map[string]string{
		"email":    "user@example.com",
		"password": "Sup3r$ecret!",
		"name":     "Test User",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	env := decodeEnvelope(t, rec)
	require.True(t, env.Success)

	var data struct {
		User         map[string]any `json:"user"`
		AccessToken  string         `json:"accessToken"`
		RefreshToken string         `json:"refreshToken"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	return data.User, data.AccessToken, data.RefreshToken
}

func TestRegisterEndpoint(t *testing.T) {
	handler := newTestHandler(t, nil)
	user, access, refresh := registerUser(t, handler)

	assert.Equal(t, "user@example.com", user["email"])
	assert.Equal(t, "admin", user["role"])
	assert.Equal(t, "FREE", user["plan"])
	assert.NotEmpty(t, access)
	assert.NotEmpty(t, refresh)
}

func TestRegisterDuplicateEndpoint(t *testing.T) {
	handler := newTestHandler(t, nil)
	registerUser(t, handler)

	rec := postJSON(t, handler, "/auth/register", map[string]string{
		"email":    "user@example.com",
		"password": "Sup3r$ecret!",
		"name":     "Again",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	env := decodeEnvelope(t, rec)
	require.NotNil(t, env.Error)
	assert.Equal(t, "EMAIL_EXISTS", env.Error.Code)
}

func TestRegisterWeakPasswordEndpoint(t *testing.T) {
	handler := newTestHandler(t, nil)

	rec := postJSON(t, handler, "/auth/register", map[string]string{
		"email":    "user@example.com",
		"password": "weak",
		"name":     "Test User",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	env := decodeEnvelope(t, rec)
	require.NotNil(t, env.Error)
	assert.Equal(t, "WEAK_PASSWORD", env.Error.Code)
	assert.NotEmpty(t, env.Error.Details)
}

func TestMalformedBody(t *testing.T) {
	handler := newTestHandler(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	env := decodeEnvelope(t, rec)
	require.NotNil(t, env.Error)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
}

func TestLoginEndpoint(t *testing.T) {
	handler := newTestHandler(t, nil)
	registerUser(t, handler)

	rec := postJSON(t, handler, "/auth/login", map[string]string{
		"email":    "user@example.com",
		"password": "Sup3r$ecret!",
	})
	assert.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.True(t, env.Success)
}

func TestLoginInvalidCredentialsEndpoint(t *testing.T) {
	handler := newTestHandler(t, nil)
	registerUser(t, handler)

	rec := postJSON(t, handler, "/auth/login", map[string]string{
		"email":    "user@example.com",
		"password": "Wr0ng$ecret!",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	env := decodeEnvelope(t, rec)
	require.NotNil(t, env.Error)
	assert.Equal(t, "INVALID_CREDENTIALS", env.Error.Code)
}

func TestRefreshEndpoint(t *testing.T) {
	handler := newTestHandler(t, nil)
	_, _, refresh := registerUser(t, handler)

	rec := postJSON(t, handler, "/auth/refresh", map[string]string{"refreshToken": refresh})
	assert.Equal(t, http.StatusOK, rec.Code)

	var data struct {
		AccessToken  string `json:"accessToken"`
		RefreshToken string `json:"refreshToken"`
	}
	env := decodeEnvelope(t, rec)
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.NotEmpty(t, data.AccessToken)
	assert.NotEqual(t, refresh, data.RefreshToken)

	// The redeemed token is dead.
	rec = postJSON(t, handler, "/auth/refresh", map[string]string{"refreshToken": refresh})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	env = decodeEnvelope(t, rec)
	require.NotNil(t, env.Error)
	assert.Equal(t, "INVALID_REFRESH_TOKEN", env.Error.Code)
}

func TestLogoutEndpoint(t *testing.T) {
	handler := newTestHandler(t, nil)
	_, _, refresh := registerUser(t, handler)

	rec := postJSON(t, handler, "/auth/logout", map[string]string{"refreshToken": refresh})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = postJSON(t, handler, "/auth/refresh", map[string]string{"refreshToken": refresh})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestForgotAndResetEndpoints(t *testing.T) {
	handler := newTestHandler(t, nil)
	registerUser(t, handler)

	rec := postJSON(t, handler, "/auth/forgot", map[string]string{"email": "user@example.com"})
	require.Equal(t, http.StatusOK, rec.Code)

	var data map[string]string
	env := decodeEnvelope(t, rec)
	require.NoError(t, json.Unmarshal(env.Data, &data))
	resetToken := data["resetToken"]
	require.NotEmpty(t, resetToken, "test config exposes the raw token")

	rec = postJSON(t, handler, "/auth/reset", map[string]string{
		"token":       resetToken,
		"newPassword": "N3w$ecret!pass",
	})
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = postJSON(t, handler, "/auth/login", map[string]string{
		"email":    "user@example.com",
		"password": "N3w$ecret!pass",
	})
	assert.Equal(t, http.StatusOK, rec.Code)
}

// The forgot response is identical for unknown emails.
func TestForgotUnknownEmailEndpoint(t *testing.T) {
	handler := newTestHandler(t, nil)

	rec := postJSON(t, handler, "/auth/forgot", map[string]string{"email": "nobody@example.com"})
	assert.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.True(t, env.Success)

	var data map[string]string
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Empty(t, data["resetToken"])
}

func TestResetInvalidTokenEndpoint(t *testing.T) {
	handler := newTestHandler(t, nil)

	rec := postJSON(t, handler, "/auth/reset", map[string]string{
		"token":       "bogus",
		"newPassword": "N3w$ecret!pass",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	env := decodeEnvelope(t, rec)
	require.NotNil(t, env.Error)
	assert.Equal(t, "INVALID_RESET_TOKEN", env.Error.Code)
}

func TestMeEndpoint(t *testing.T) {
	handler := newTestHandler(t, nil)
	_, access, _ := registerUser(t, handler)

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+access)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var data struct {
		User map[string]any `json:"user"`
	}
	env := decodeEnvelope(t, rec)
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, "user@example.com", data.User["email"])
}

func TestMeWithoutTokenEndpoint(t *testing.T) {
	handler := newTestHandler(t, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/me", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHealthzEndpoint(t *testing.T) {
	handler := newTestHandler(t, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimitEndpoint(t *testing.T) {
	limiter := rate.NewLimiter(rate.NewMemoryStore(), logging.Nop{})
	handler := newTestHandler(t, limiter)

	body := map[string]string{"email": "user@example.com", "password": "Wr0ng$ecret!"}
	var last *httptest.ResponseRecorder
	for i := 0; i < 5; i++ {
		last = postJSON(t, handler, "/auth/login", body)
	}

	require.Equal(t, http.StatusTooManyRequests, last.Code)
	env := decodeEnvelope(t, last)
	require.NotNil(t, env.Error)
	assert.Equal(t, "RATE_LIMIT_EXCEEDED", env.Error.Code)
	assert.Positive(t, env.Error.RetryAfter)
}

func TestRateLimitKeysByClientIP(t *testing.T) {
	limiter := rate.NewLimiter(rate.NewMemoryStore(), logging.Nop{})
	handler := newTestHandler(t, limiter)

	send := func(ip string) int {
		raw, _ := json.Marshal(map[string]string{"email": "user@example.com", "password": "Wr0ng$ecret!"})
		req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(raw))
		req.Header.Set("X-Forwarded-For", ip)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	var code int
	for i := 0; i < 5; i++ {
		code = send("203.0.113.7")
	}
	require.Equal(t, http.StatusTooManyRequests, code)

	assert.NotEqual(t, http.StatusTooManyRequests, send("198.51.100.2"),
		"another client must keep its own budget")
}
