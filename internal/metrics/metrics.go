// ABOUTME: Prometheus metrics for refresh cycles, fetches, ingestion and retention
// ABOUTME: Each Metrics owns its registry so several instances can coexist in tests

package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "inkreader"

// Fetch outcome label values.
const (
	OutcomeOK          = "ok"
	OutcomeNotModified = "not_modified"
	OutcomeError       = "error"
)

// Metrics holds the reader's collectors. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	FetchTotal        *prometheus.CounterVec
	FetchDuration     prometheus.Histogram
	ArticlesIngested  *prometheus.CounterVec
	ArticlesDeleted   prometheus.Counter
	CycleTotal        *prometheus.CounterVec
	CycleDuration     *prometheus.HistogramVec
	CyclesSkipped     *prometheus.CounterVec
	ReadStatesApplied *prometheus.CounterVec
}

// New creates metrics registered on a fresh registry with the Go and
// process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		FetchTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fetch_total",
				Help:      "Feed fetches by outcome",
			},
			[]string{"outcome", "kind"},
		),
		FetchDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "fetch_duration_seconds",
				Help:      "Duration of single feed fetches in seconds",
				Buckets:   prometheus.DefBuckets,
			},
		),
		ArticlesIngested: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "articles_ingested_total",
				Help:      "Items offered to the store by result",
			},
			[]string{"result"},
		),
		ArticlesDeleted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "articles_deleted_total",
				Help:      "Articles removed by retention cleanup",
			},
		),
		CycleTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "job_runs_total",
				Help:      "Scheduled job runs by job and status",
			},
			[]string{"job", "status"},
		),
		CycleDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "job_duration_seconds",
				Help:      "Duration of scheduled job runs in seconds",
				Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
			},
			[]string{"job"},
		),
		CyclesSkipped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "job_skipped_total",
				Help:      "Job runs skipped because a previous run was still going",
			},
			[]string{"job"},
		),
		ReadStatesApplied: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "read_states_total",
				Help:      "Read-state writes by result",
			},
			[]string{"result"},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.FetchTotal,
		m.FetchDuration,
		m.ArticlesIngested,
		m.ArticlesDeleted,
		m.CycleTotal,
		m.CycleDuration,
		m.CyclesSkipped,
		m.ReadStatesApplied,
	)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RecordFetch records one fetch. kind is empty unless outcome is OutcomeError.
func (m *Metrics) RecordFetch(outcome, kind string, d time.Duration) {
	if m == nil {
		return
	}
	m.FetchTotal.WithLabelValues(outcome, kind).Inc()
	m.FetchDuration.Observe(d.Seconds())
}

// RecordIngest records the per-item results of one ingest batch.
func (m *Metrics) RecordIngest(inserted, duplicate, skipped int) {
	if m == nil {
		return
	}
	m.ArticlesIngested.WithLabelValues("inserted").Add(float64(inserted))
	m.ArticlesIngested.WithLabelValues("duplicate").Add(float64(duplicate))
	m.ArticlesIngested.WithLabelValues("skipped").Add(float64(skipped))
}

// RecordDeleted records articles removed by retention.
func (m *Metrics) RecordDeleted(n int) {
	if m == nil {
		return
	}
	m.ArticlesDeleted.Add(float64(n))
}

// RecordJob records a finished scheduled job run.
func (m *Metrics) RecordJob(job string, err error, d time.Duration) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.CycleTotal.WithLabelValues(job, status).Inc()
	m.CycleDuration.WithLabelValues(job).Observe(d.Seconds())
}

// RecordSkipped records a job run dropped because one was already in flight.
func (m *Metrics) RecordSkipped(job string) {
	if m == nil {
		return
	}
	m.CyclesSkipped.WithLabelValues(job).Inc()
}

// RecordReadState records read-state writes that were applied or ignored.
func (m *Metrics) RecordReadState(applied, ignored int) {
	if m == nil {
		return
	}
	m.ReadStatesApplied.WithLabelValues("applied").Add(float64(applied))
	m.ReadStatesApplied.WithLabelValues("ignored").Add(float64(ignored))
}
