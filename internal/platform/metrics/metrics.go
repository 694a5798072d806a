package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds workflow counters. A nil *Metrics records nothing.
type Metrics struct {
	registry            *prometheus.Registry
	deletionRequests    *prometheus.CounterVec
	deletionResolutions *prometheus.CounterVec
	immediateDeletions  *prometheus.CounterVec
	orphansRemoved      *prometheus.CounterVec
	auditWipes          prometheus.Counter
}

// New registers the counters on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		deletionRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "keeper_deletion_requests_total",
				Help: "Deletion requests created, by entity type",
			},
			[]string{"entity_type"},
		),
		deletionResolutions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "keeper_deletion_resolutions_total",
				Help: "Deletion requests resolved, by decision",
			},
			[]string{"decision"},
		),
		immediateDeletions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "keeper_immediate_deletions_total",
				Help: "Entities deleted directly by admins, by entity type",
			},
			[]string{"entity_type"},
		),
		orphansRemoved: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "keeper_orphans_removed_total",
				Help: "Orphaned auth records removed, by kind",
			},
			[]string{"kind"},
		),
		auditWipes: factory.NewCounter(prometheus.CounterOpts{
			Name: "keeper_audit_wipes_total",
			Help: "Full audit log erasures",
		}),
	}
}

// Registry returns the registry the counters are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) DeletionRequested(entityType string) {
	if m == nil {
		return
	}
	m.deletionRequests.WithLabelValues(entityType).Inc()
}

func (m *Metrics) DeletionResolved(decision string) {
	if m == nil {
		return
	}
	m.deletionResolutions.WithLabelValues(decision).Inc()
}

func (m *Metrics) EntityDeleted(entityType string) {
	if m == nil {
		return
	}
	m.immediateDeletions.WithLabelValues(entityType).Inc()
}

func (m *Metrics) OrphansRemoved(kind string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.orphansRemoved.WithLabelValues(kind).Add(float64(n))
}

func (m *Metrics) AuditWiped() {
	if m == nil {
		return
	}
	m.auditWipes.Inc()
}
