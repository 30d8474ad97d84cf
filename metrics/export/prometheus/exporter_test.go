package prometheus

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/financeiro/authkit"
)

type stubSource struct {
	counters map[authkit.MetricID]uint64
	dropped  uint64
}

func (s *stubSource) MetricsSnapshot() authkit.MetricsSnapshot {
	return authkit.MetricsSnapshot{Counters: s.counters}
}

func (s *stubSource) AuditDropped() uint64 { return s.dropped }

func TestRender(t *testing.T) {
	exporter := NewExporterFromSource(&stubSource{
		counters: map[authkit.MetricID]uint64{
			authkit.MetricLoginSuccess: 7,
			authkit.MetricRefreshReuse: 2,
		},
		dropped: 3,
	})

	text := exporter.Render()

	for _, want := range []string{
		"authkit_login_success_total 7",
		"authkit_refresh_reuse_total 2",
		"authkit_audit_dropped_total 3",
		"authkit_login_failure_total 0",
		"# TYPE authkit_login_success_total counter",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("exposition missing %q:\n%s", want, text)
		}
	}
}

func TestRenderCoversEveryCounter(t *testing.T) {
	exporter := NewExporterFromSource(&stubSource{counters: map[authkit.MetricID]uint64{}})
	text := exporter.Render()

	for _, def := range counterDefs {
		if !strings.Contains(text, def.name) {
			t.Fatalf("exposition missing %s", def.name)
		}
	}
}

func TestHandler(t *testing.T) {
	exporter := NewExporterFromSource(&stubSource{counters: map[authkit.MetricID]uint64{}})

	rec := httptest.NewRecorder()
	exporter.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Fatalf("content type = %q, want text/plain exposition", ct)
	}
	if rec.Body.Len() == 0 {
		t.Fatal("empty exposition")
	}
}
