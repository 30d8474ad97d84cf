package authkit

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"
)

// Audit action names emitted by the engine. The audit stream is
// write-only from this package's point of view: nothing here ever reads
// it back.
const (
	AuditRegister       = "user.register"
	AuditLogin          = "user.login"
	AuditLoginFailed    = "user.login_failed"
	AuditRefresh        = "user.refresh"
	AuditRefreshReuse   = "user.refresh_reuse"
	AuditLogout         = "user.logout"
	AuditResetRequested = "user.password_reset_requested"
	AuditResetCompleted = "user.password_reset"
	AuditRateLimited    = "auth.rate_limited"
)

// AuditEvent is one append-only observability record. ActorID is empty
// when the actor is unknown (failed login for a nonexistent email, say).
type AuditEvent struct {
	At        time.Time         `json:"at"`
	Action    string            `json:"action"`
	Resource  string            `json:"resource,omitempty"`
	ActorID   string            `json:"actorId,omitempty"`
	Success   bool              `json:"success"`
	Error     string            `json:"error,omitempty"`
	IP        string            `json:"ip,omitempty"`
	UserAgent string            `json:"userAgent,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// AuditSink receives engine audit events. Emit must be safe for
// concurrent use; it is called from the dispatcher goroutine, never from
// request paths.
type AuditSink interface {
	Emit(ctx context.Context, event AuditEvent)
}

// NoOpSink discards events.
type NoOpSink struct{}

func (NoOpSink) Emit(context.Context, AuditEvent) {}

// ChannelSink exposes events on a channel for custom consumers.
type ChannelSink struct {
	events chan AuditEvent
}

func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelSink{events: make(chan AuditEvent, buffer)}
}

func (s *ChannelSink) Emit(ctx context.Context, event AuditEvent) {
	select {
	case s.events <- event:
	case <-ctx.Done():
	}
}

func (s *ChannelSink) Events() <-chan AuditEvent {
	return s.events
}

// JSONWriterSink writes one JSON object per line to a writer.
type JSONWriterSink struct {
	writer io.Writer
	mu     sync.Mutex
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return &JSONWriterSink{writer: w}
}

func (s *JSONWriterSink) Emit(ctx context.Context, event AuditEvent) {
	if s == nil || s.writer == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, _ = s.writer.Write(data)
	_, _ = s.writer.Write([]byte("\n"))
}
