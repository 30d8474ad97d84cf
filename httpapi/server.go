package httpapi

import (
	"net"
	"net/http"
	"strings"

	"github.com/financeiro/authkit"
	"github.com/financeiro/authkit/middleware"
	"github.com/financeiro/authkit/rate"
)

// Server routes the auth endpoints onto an engine. Construct with
// NewServer and mount via Handler.
type Server struct {
	engine  *authkit.Engine
	limiter *rate.Limiter
	config  authkit.RateConfig
}

// NewServer wires the engine behind the HTTP surface. limiter may be
// nil to disable request throttling (tests, trusted internal callers).
func NewServer(engine *authkit.Engine, limiter *rate.Limiter, config authkit.RateConfig) *Server {
	return &Server{engine: engine, limiter: limiter, config: config}
}

// Handler returns the routed HTTP surface.
func (s *Server) Handler() http.Handler {
	guard := middleware.Guard(s.engine)

	mux := http.NewServeMux()
	mux.Handle("POST /auth/register", s.limited(s.config.Auth, http.HandlerFunc(s.handleRegister)))
	mux.Handle("POST /auth/login", s.limited(s.config.Auth, http.HandlerFunc(s.handleLogin)))
	mux.Handle("POST /auth/refresh", s.limited(s.config.Auth, http.HandlerFunc(s.handleRefresh)))
	mux.Handle("POST /auth/logout", http.HandlerFunc(s.handleLogout))
	mux.Handle("POST /auth/forgot", s.limited(s.config.Reset, http.HandlerFunc(s.handleForgot)))
	mux.Handle("POST /auth/reset", s.limited(s.config.Reset, http.HandlerFunc(s.handleReset)))
	mux.Handle("GET /auth/me", guard(http.HandlerFunc(s.handleMe)))
	mux.Handle("GET /healthz", http.HandlerFunc(s.handleHealthz))
	return mux
}

// limited throttles a route per client IP. Denials are recorded on the
// engine so they show up in audit and metrics.
func (s *Server) limited(policy rate.Policy, next http.Handler) http.Handler {
	if s.limiter == nil {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		decision := s.limiter.Allow(r.Context(), r.URL.Path, clientIP(r), policy)
		if !decision.Allowed {
			s.engine.RecordRateLimited(r.Context(), r.URL.Path, clientMeta(r))
			writeJSON(w, http.StatusTooManyRequests, envelope{Success: false, Error: &errorBody{
				Code:       "RATE_LIMIT_EXCEEDED",
				Message:    "too many attempts, slow down",
				RetryAfter: decision.RetryAfter,
			}})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientMeta(r *http.Request) authkit.ClientMeta {
	return authkit.ClientMeta{
		UserAgent: r.UserAgent(),
		IP:        clientIP(r),
	}
}

// clientIP trusts the first X-Forwarded-For hop when present, matching
// the original deployment behind a reverse proxy.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
