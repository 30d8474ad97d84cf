package prometheus

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/financeiro/authkit"
)

type counterDef struct {
	id   authkit.MetricID
	name string
	help string
}

var counterDefs = []counterDef{
	{authkit.MetricRegisterSuccess, "authkit_register_success_total", "Successful registrations."},
	{authkit.MetricRegisterDuplicate, "authkit_register_duplicate_total", "Registrations rejected for an existing email."},
	{authkit.MetricLoginSuccess, "authkit_login_success_total", "Successful login attempts."},
	{authkit.MetricLoginFailure, "authkit_login_failure_total", "Failed login attempts."},
	{authkit.MetricRefreshSuccess, "authkit_refresh_success_total", "Successful refresh rotations."},
	{authkit.MetricRefreshFailure, "authkit_refresh_failure_total", "Failed refresh attempts."},
	{authkit.MetricRefreshReuse, "authkit_refresh_reuse_total", "Redemptions of an already rotated refresh token."},
	{authkit.MetricLogout, "authkit_logout_total", "Logout operations."},
	{authkit.MetricResetRequested, "authkit_password_reset_requested_total", "Password reset requests."},
	{authkit.MetricResetCompleted, "authkit_password_reset_completed_total", "Completed password resets."},
	{authkit.MetricVerifyFailure, "authkit_verify_failure_total", "Access token verifications that failed."},
	{authkit.MetricRateLimitHit, "authkit_rate_limit_hit_total", "Requests denied by the rate limiter."},
}

type metricsSource interface {
	MetricsSnapshot() authkit.MetricsSnapshot
	AuditDropped() uint64
}

// Exporter renders engine counters for a Prometheus scrape.
type Exporter struct {
	source metricsSource
}

// NewExporter reads from the given engine.
func NewExporter(engine *authkit.Engine) *Exporter {
	return &Exporter{source: engine}
}

// NewExporterFromSource reads from a custom snapshot source.
func NewExporterFromSource(source metricsSource) *Exporter {
	return &Exporter{source: source}
}

// Handler serves the exposition text.
func (e *Exporter) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		_, _ = w.Write([]byte(e.Render()))
	})
}

// Render returns the full exposition document.
func (e *Exporter) Render() string {
	snapshot := e.source.MetricsSnapshot()
	dropped := e.source.AuditDropped()

	var b strings.Builder
	b.Grow(4096)

	for _, def := range counterDefs {
		writeCounter(&b, def.name, def.help, snapshot.Counters[def.id])
	}
	writeCounter(&b, "authkit_audit_dropped_total", "Audit events dropped by dispatcher backpressure.", dropped)

	return b.String()
}

func writeCounter(b *strings.Builder, name, help string, value uint64) {
	b.WriteString("# HELP ")
	b.WriteString(name)
	b.WriteByte(' ')
	b.WriteString(help)
	b.WriteByte('\n')
	b.WriteString("# TYPE ")
	b.WriteString(name)
	b.WriteString(" counter\n")
	b.WriteString(name)
	b.WriteByte(' ')
	b.WriteString(strconv.FormatUint(value, 10))
	b.WriteByte('\n')
}
