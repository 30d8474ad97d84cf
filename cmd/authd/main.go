// Command authd serves the auth HTTP API backed by Postgres for durable
// state and Redis for rate-limit counters.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/redis/go-redis/v9"

	"github.com/financeiro/authkit"
	"github.com/financeiro/authkit/httpapi"
	"github.com/financeiro/authkit/internal/logging"
	"github.com/financeiro/authkit/metrics/export/prometheus"
	"github.com/financeiro/authkit/postgres"
	"github.com/financeiro/authkit/rate"
)

type config struct {
	Addr             string        `env:"AUTHD_ADDR" envDefault:":8080"`
	DatabaseDSN      string        `env:"AUTHD_DATABASE_DSN,required"`
	RedisAddr        string        `env:"AUTHD_REDIS_ADDR"`
	TokenSecret      string        `env:"AUTHD_TOKEN_SECRET,required"`
	TokenIssuer      string        `env:"AUTHD_TOKEN_ISSUER" envDefault:"financeiro"`
	AccessTTL        time.Duration `env:"AUTHD_ACCESS_TTL" envDefault:"15m"`
	SessionTTL       time.Duration `env:"AUTHD_SESSION_TTL" envDefault:"720h"`
	ExposeResetToken bool          `env:"AUTHD_EXPOSE_RESET_TOKEN" envDefault:"false"`
	ShutdownTimeout  time.Duration `env:"AUTHD_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

func main() {
	if err := run(); err != nil {
		slog.Error("authd exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	var cfg config
	if err := env.Parse(&cfg); err != nil {
		return fmt.Errorf("parse environment: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Open(ctx, cfg.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := postgres.Migrate(ctx, db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	stores := postgres.NewStores(db)

	engineConfig := authkit.DefaultConfig()
	engineConfig.Token.Secret = []byte(cfg.TokenSecret)
	engineConfig.Token.Issuer = cfg.TokenIssuer
	engineConfig.Token.AccessTTL = cfg.AccessTTL
	engineConfig.Session.TTL = cfg.SessionTTL
	engineConfig.Reset.ExposeRawToken = cfg.ExposeResetToken

	engine, err := authkit.New().
		WithConfig(engineConfig).
		WithStores(stores.Accounts, stores.Sessions, stores.Resets).
		WithAuditSink(stores.Audit).
		WithLogger(logging.NewSlog(logger)).
		Build()
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}
	defer engine.Close()

	limiter := buildLimiter(ctx, cfg, logger)

	api := httpapi.NewServer(engine, limiter, engineConfig.Rate)
	exporter := prometheus.NewExporter(engine)

	mux := http.NewServeMux()
	mux.Handle("/", api.Handler())
	mux.Handle("GET /metrics", exporter.Handler())

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("authd listening", "addr", cfg.Addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
	}
	return nil
}

// buildLimiter prefers Redis so counters survive restarts and are shared
// across replicas; without a Redis address it falls back to in-process
// counters.
func buildLimiter(ctx context.Context, cfg config, logger *slog.Logger) *rate.Limiter {
	log := logging.NewSlog(logger)
	if cfg.RedisAddr == "" {
		logger.Warn("no redis address configured, using in-memory rate counters")
		return rate.NewLimiter(rate.NewMemoryStore(), log)
	}

	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unreachable, using in-memory rate counters", "error", err)
		return rate.NewLimiter(rate.NewMemoryStore(), log)
	}
	return rate.NewLimiter(rate.NewRedisStore(client), log)
}
