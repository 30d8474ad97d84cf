package authkit

import (
	"errors"
	"time"

	"github.com/financeiro/authkit/internal/logging"
	"github.com/financeiro/authkit/password"
	"github.com/financeiro/authkit/token"
)

// Builder wires an Engine. Construction is allocation-only; no I/O
// happens until the engine is used. A Builder is single-use.
type Builder struct {
	config   Config
	accounts AccountStore
	sessions SessionStore
	resets   ResetStore
	delivery ResetTokenDelivery
	sink     AuditSink
	logger   logging.Logger

	built bool
}

func New() *Builder {
	return &Builder{config: DefaultConfig()}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithStores wires the three durable stores. All are required.
func (b *Builder) WithStores(accounts AccountStore, sessions SessionStore, resets ResetStore) *Builder {
	b.accounts = accounts
	b.sessions = sessions
	b.resets = resets
	return b
}

func (b *Builder) WithResetTokenDelivery(d ResetTokenDelivery) *Builder {
	b.delivery = d
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.sink = sink
	return b
}

func (b *Builder) WithLogger(logger logging.Logger) *Builder {
	b.logger = logger
	return b
}

// Build validates the configuration and assembles the engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}
	if b.accounts == nil || b.sessions == nil || b.resets == nil {
		return nil, errors.New("account, session, and reset stores are required")
	}

	cfg := b.config
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	hasher, err := password.NewHasher(cfg.Password.Iterations)
	if err != nil {
		return nil, err
	}

	tokens, err := token.NewManager(token.Config{
		Secret: cfg.Token.Secret,
		TTL:    cfg.Token.AccessTTL,
		Issuer: cfg.Token.Issuer,
	})
	if err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = logging.Nop{}
	}

	b.built = true
	return &Engine{
		config:   cfg,
		accounts: b.accounts,
		sessions: b.sessions,
		resets:   b.resets,
		hasher:   hasher,
		tokens:   tokens,
		delivery: b.delivery,
		audit:    newAuditDispatcher(cfg.Audit, b.sink),
		metrics:  newMetrics(cfg.Metrics),
		logger:   logger,
		now:      time.Now,
	}, nil
}
