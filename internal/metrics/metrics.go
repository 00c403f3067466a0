// Package metrics exposes Prometheus collectors for settings persistence
// and decoration passes.
//
// A nil *Metrics is valid and records nothing, so components can take an
// optional metrics handle without branching.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace prefixes every metric name.
const Namespace = "italics"

// Metrics holds the collectors.
//
// Metrics:
//   - italics_sync_passes_total - completed or aborted synchronization passes
//   - italics_sync_skipped_total{reason} - passes not run ("reentrant", "clean")
//   - italics_sync_failures_total - passes aborted by a formatting-table error
//   - italics_attribute_writes_total{op} - italic writes ("set", "clear")
//   - italics_stale_marks_total - settings notifications that marked an engine stale
//   - italics_settings_saves_total - successful saves
//   - italics_settings_failures_total{op} - absorbed persistence failures ("load", "save", "reload")
//   - italics_classifications - size of the current classification set
type Metrics struct {
	SyncPasses       prometheus.Counter
	SyncSkipped      *prometheus.CounterVec
	SyncFailures     prometheus.Counter
	AttributeWrites  *prometheus.CounterVec
	StaleMarks       prometheus.Counter
	SettingsSaves    prometheus.Counter
	SettingsFailures *prometheus.CounterVec
	Classifications  prometheus.Gauge
}

// New creates the collectors and registers them with reg.
// Pass a fresh prometheus.NewRegistry() in tests to avoid duplicate
// registration panics on the default registry.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		SyncPasses: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "sync_passes_total",
			Help:      "Total number of formatting-table synchronization passes",
		}),
		SyncSkipped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "sync_skipped_total",
			Help:      "Synchronization requests that did not run a pass",
		}, []string{"reason"}),
		SyncFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "sync_failures_total",
			Help:      "Synchronization passes aborted by a formatting-table error",
		}),
		AttributeWrites: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "attribute_writes_total",
			Help:      "Italic attribute writes to formatting tables",
		}, []string{"op"}),
		StaleMarks: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "stale_marks_total",
			Help:      "Settings notifications that marked an engine stale",
		}),
		SettingsSaves: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "settings_saves_total",
			Help:      "Successful classification settings saves",
		}),
		SettingsFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "settings_failures_total",
			Help:      "Absorbed classification settings persistence failures",
		}, []string{"op"}),
		Classifications: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "classifications",
			Help:      "Number of classifications currently configured for italics",
		}),
	}
}

// SyncPass records one synchronization pass.
func (m *Metrics) SyncPass() {
	if m == nil {
		return
	}
	m.SyncPasses.Inc()
}

// SyncSkip records a synchronization request that did not run.
func (m *Metrics) SyncSkip(reason string) {
	if m == nil {
		return
	}
	m.SyncSkipped.WithLabelValues(reason).Inc()
}

// SyncFailure records an aborted pass.
func (m *Metrics) SyncFailure() {
	if m == nil {
		return
	}
	m.SyncFailures.Inc()
}

// AttributeWrite records one italic write; on reports set versus clear.
func (m *Metrics) AttributeWrite(on bool) {
	if m == nil {
		return
	}
	op := "clear"
	if on {
		op = "set"
	}
	m.AttributeWrites.WithLabelValues(op).Inc()
}

// StaleMark records an engine being marked stale.
func (m *Metrics) StaleMark() {
	if m == nil {
		return
	}
	m.StaleMarks.Inc()
}

// SettingsSaved records a successful save.
func (m *Metrics) SettingsSaved() {
	if m == nil {
		return
	}
	m.SettingsSaves.Inc()
}

// SettingsFailure records an absorbed persistence failure.
func (m *Metrics) SettingsFailure(op string) {
	if m == nil {
		return
	}
	m.SettingsFailures.WithLabelValues(op).Inc()
}

// SetClassifications records the size of the current set.
func (m *Metrics) SetClassifications(n int) {
	if m == nil {
		return
	}
	m.Classifications.Set(float64(n))
}
