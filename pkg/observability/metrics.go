package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Call status label values.
const (
	StatusOK            = "ok"
	StatusError         = "error"
	StatusPanic         = "panic"
	StatusProtocolError = "protocol_error"
	StatusEvicted       = "evicted"
)

// Metrics holds the plugin host's Prometheus collectors. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	PluginCallsTotal   *prometheus.CounterVec
	PluginCallDuration *prometheus.HistogramVec
	PluginLoadsTotal   *prometheus.CounterVec
	PluginEvictions    prometheus.Counter
	PluginsHealthy     prometheus.Gauge

	FieldCacheHitsTotal   prometheus.Counter
	FieldCacheMissesTotal prometheus.Counter
}

// NewMetrics creates and registers all collectors with registry.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	m := &Metrics{
		PluginCallsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lsx_plugin_calls_total",
				Help: "Total number of calls into plugins",
			},
			[]string{"plugin", "kind", "status"},
		),
		PluginCallDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "lsx_plugin_call_duration_seconds",
				Help:    "Plugin call duration in seconds",
				Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10),
			},
			[]string{"plugin", "kind"},
		),
		PluginLoadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lsx_plugin_loads_total",
				Help: "Plugin load attempts by outcome",
			},
			[]string{"status"},
		),
		PluginEvictions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lsx_plugin_evictions_total",
			Help: "Plugins evicted by clean, removal or file deletion",
		}),
		PluginsHealthy: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "lsx_plugins_healthy",
			Help: "Number of plugins that passed the identity probe",
		}),
		FieldCacheHitsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lsx_field_cache_hits_total",
			Help: "Formatted field cache hits",
		}),
		FieldCacheMissesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lsx_field_cache_misses_total",
			Help: "Formatted field cache misses",
		}),
	}

	if registry != nil {
		registry.MustRegister(
			m.PluginCallsTotal,
			m.PluginCallDuration,
			m.PluginLoadsTotal,
			m.PluginEvictions,
			m.PluginsHealthy,
			m.FieldCacheHitsTotal,
			m.FieldCacheMissesTotal,
		)
	}
	return m
}

// RecordCall records one plugin call.
func (m *Metrics) RecordCall(plugin, kind, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.PluginCallsTotal.WithLabelValues(plugin, kind, status).Inc()
	m.PluginCallDuration.WithLabelValues(plugin, kind).Observe(d.Seconds())
}

// RecordLoad records a load attempt; status is "ok", "load_failed", "unhealthy" or "duplicate".
func (m *Metrics) RecordLoad(status string) {
	if m == nil {
		return
	}
	m.PluginLoadsTotal.WithLabelValues(status).Inc()
}

// RecordEviction counts one evicted plugin.
func (m *Metrics) RecordEviction() {
	if m == nil {
		return
	}
	m.PluginEvictions.Inc()
}

// SetHealthy sets the healthy plugin gauge.
func (m *Metrics) SetHealthy(n int) {
	if m == nil {
		return
	}
	m.PluginsHealthy.Set(float64(n))
}

// RecordCacheHit and RecordCacheMiss count field cache lookups.
func (m *Metrics) RecordCacheHit() {
	if m == nil {
		return
	}
	m.FieldCacheHitsTotal.Inc()
}

func (m *Metrics) RecordCacheMiss() {
	if m == nil {
		return
	}
	m.FieldCacheMissesTotal.Inc()
}

// WriteTextfile writes the registry's metrics in the node_exporter textfile format.
func WriteTextfile(path string, gatherer prometheus.Gatherer) error {
	return prometheus.WriteToTextfile(path, gatherer)
}
