package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "complytrack"

// Seed triggers
const (
	SeedTriggerCreate = "create"
	SeedTriggerLazy   = "lazy"
)

// Metrics holds the collectors of one process on a private registry. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	RisksCreated     prometheus.Counter
	TasksSeeded      *prometheus.CounterVec
	TaskFlagsUpdated prometheus.Counter
	StatusChanges    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RisksByStatus    *prometheus.GaugeVec
	OverdueRisks     prometheus.Gauge
}

// New registers every collector on a fresh registry, plus the Go and process collectors
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		RisksCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "risks_created_total",
			Help:      "Total risks created",
		}),
		// Labels: trigger (create, lazy)
		TasksSeeded: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_seeded_total",
			Help:      "Total catalog task lists seeded into risks",
		}, []string{"trigger"}),
		TaskFlagsUpdated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "task_flags_updated_total",
			Help:      "Total task done flags written",
		}),
		// Labels: status (the status the risk moved to)
		StatusChanges: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "status_changes_total",
			Help:      "Total risk status transitions caused by task updates",
		}, []string{"status"}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		// Labels: status
		RisksByStatus: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "risks",
			Help:      "Current number of risks per status",
		}, []string{"status"}),
		OverdueRisks: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "risks_review_overdue",
			Help:      "Current number of risks past their review date and not ahead",
		}),
	}
}

// Registry returns the registry the collectors are registered on
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) RiskCreated() {
	if m == nil {
		return
	}
	m.RisksCreated.Inc()
}

func (m *Metrics) TasksSeededBy(trigger string) {
	if m == nil {
		return
	}
	m.TasksSeeded.WithLabelValues(trigger).Inc()
}

func (m *Metrics) TaskFlagsWritten(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.TaskFlagsUpdated.Add(float64(n))
}

func (m *Metrics) StatusChanged(status string) {
	if m == nil {
		return
	}
	m.StatusChanges.WithLabelValues(status).Inc()
}

func (m *Metrics) ObserveRequest(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}

// SetRiskSnapshot replaces the per-status risk gauges. Statuses missing from
// counts are reset to zero.
func (m *Metrics) SetRiskSnapshot(counts map[string]int, statuses []string, overdue int) {
	if m == nil {
		return
	}
	for _, s := range statuses {
		m.RisksByStatus.WithLabelValues(s).Set(float64(counts[s]))
	}
	m.OverdueRisks.Set(float64(overdue))
}
