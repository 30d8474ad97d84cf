package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/financeiro/authkit"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Open connects to PostgreSQL via the pgx stdlib driver and verifies the
// connection.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(16)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// Stores bundles the four store implementations over one handle.
type Stores struct {
	Accounts *AccountStore
	Sessions *SessionStore
	Resets   *ResetStore
	Audit    *AuditSink
}

func NewStores(db *sql.DB) *Stores {
	return &Stores{
		Accounts: NewAccountStore(db),
		Sessions: NewSessionStore(db),
		Resets:   NewResetStore(db),
		Audit:    NewAuditSink(db),
	}
}

// storeErr wraps infrastructure faults so callers can fail closed on
// errors.Is(err, authkit.ErrStoreUnavailable) without seeing driver
// detail.
func storeErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", authkit.ErrStoreUnavailable, op, err)
}
