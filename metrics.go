package authkit

import "sync/atomic"

// MetricID identifies one engine counter.
type MetricID uint8

const (
	MetricRegisterSuccess MetricID = iota
	MetricRegisterDuplicate
	MetricLoginSuccess
	MetricLoginFailure
	MetricRefreshSuccess
	MetricRefreshFailure
	MetricRefreshReuse
	MetricLogout
	MetricResetRequested
	MetricResetCompleted
	MetricVerifyFailure
	MetricRateLimitHit

	metricCount
)

var metricNames = [metricCount]string{
	MetricRegisterSuccess:   "register_success",
	MetricRegisterDuplicate: "register_duplicate",
	MetricLoginSuccess:      "login_success",
	MetricLoginFailure:      "login_failure",
	MetricRefreshSuccess:    "refresh_success",
	MetricRefreshFailure:    "refresh_failure",
	MetricRefreshReuse:      "refresh_reuse",
	MetricLogout:            "logout",
	MetricResetRequested:    "password_reset_requested",
	MetricResetCompleted:    "password_reset_completed",
	MetricVerifyFailure:     "verify_failure",
	MetricRateLimitHit:      "rate_limit_hit",
}

// Name returns the stable exposition name for the metric.
func (id MetricID) Name() string {
	if id >= metricCount {
		return "unknown"
	}
	return metricNames[id]
}

// Metrics is a fixed-size atomic counter registry. Inc is lock-free and
// safe on request paths.
type Metrics struct {
	counters [metricCount]atomic.Uint64
}

func newMetrics(cfg MetricsConfig) *Metrics {
	if !cfg.Enabled {
		return nil
	}
	return &Metrics{}
}

func (m *Metrics) Inc(id MetricID) {
	if m == nil || id >= metricCount {
		return
	}
	m.counters[id].Add(1)
}

// MetricsSnapshot is a point-in-time copy of every counter.
type MetricsSnapshot struct {
	Counters map[MetricID]uint64
}

func (m *Metrics) Snapshot() MetricsSnapshot {
	snap := MetricsSnapshot{Counters: make(map[MetricID]uint64, int(metricCount))}
	if m == nil {
		return snap
	}
	for id := MetricID(0); id < metricCount; id++ {
		snap.Counters[id] = m.counters[id].Load()
	}
	return snap
}
