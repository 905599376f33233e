package metrics

import (
	"maps"
	"slices"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures a Manager before its collectors are registered.
// Zero values keep the defaults.
type Option func(*Manager)

func WithNamespace(ns string) Option { return func(m *Manager) { setIfNotEmpty(&m.namespace, ns) } }

func WithSubsystem(sub string) Option { return func(m *Manager) { setIfNotEmpty(&m.subsystem, sub) } }

func WithMetricPrefix(prefix string) Option {
	return func(m *Manager) { setIfNotEmpty(&m.metricPrefix, prefix) }
}

// WithHistogramBuckets replaces prometheus.DefBuckets for every latency histogram.
func WithHistogramBuckets(buckets []float64) Option {
	return func(m *Manager) {
		if len(buckets) > 0 {
			m.histogramBuckets = slices.Clone(buckets)
		}
	}
}

// WithMetricsEnabled gates feed evaluation recording.
func WithMetricsEnabled(enabled bool) Option { return func(m *Manager) { m.enabled = enabled } }

func WithRefreshInterval(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.refreshInterval = d
		}
	}
}

// WithCustomLabels merges labels into the constant label set; later keys win.
func WithCustomLabels(labels map[string]string) Option {
	return func(m *Manager) { maps.Copy(m.customLabels, labels) }
}

func WithPrometheusRegistry(r prometheus.Registerer) Option {
	return func(m *Manager) {
		if r != nil {
			m.registry = r
		}
	}
}

func setIfNotEmpty(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
