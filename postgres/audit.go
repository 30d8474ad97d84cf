package postgres

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/financeiro/authkit"
	"github.com/google/uuid"
)

// AuditSink appends engine audit events to the audit_logs table. Emit
// runs on the dispatcher goroutine; a write fault only loses the one
// event.
type AuditSink struct {
	db *sql.DB
}

func NewAuditSink(db *sql.DB) *AuditSink {
	return &AuditSink{db: db}
}

func (s *AuditSink) Emit(ctx context.Context, event authkit.AuditEvent) {
	// The table has no success/error columns; fold both into metadata so
	// failed attempts remain distinguishable.
	fields := make(map[string]string, len(event.Metadata)+2)
	for k, v := range event.Metadata {
		fields[k] = v
	}
	if !event.Success {
		fields["success"] = "false"
	}
	if event.Error != "" {
		fields["error"] = event.Error
	}

	var metadata any
	if len(fields) > 0 {
		if raw, err := json.Marshal(fields); err == nil {
			metadata = raw
		}
	}

	const query = `
		INSERT INTO audit_logs (id, actor_id, action, resource, metadata, ip, user_agent, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, _ = s.db.ExecContext(ctx, query,
		uuid.NewString(),
		nullable(event.ActorID),
		event.Action,
		nullable(event.Resource),
		metadata,
		nullable(event.IP),
		nullable(event.UserAgent),
		event.At,
	)
}
