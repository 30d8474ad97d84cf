// Package prometheus renders authkit counters in Prometheus text
// exposition format. Callers mount [Exporter.Handler] themselves; this
// package never touches a global registry.
package prometheus
