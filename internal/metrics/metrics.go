package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rickgao/refdata-normalizer/internal/processor"
)

const namespace = "refdata_normalizer"

// Run outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Fault kinds.
const (
	FaultSecurityError = "security_error"
	FaultFieldError    = "field_error"
	FaultUnmatched     = "unmatched"
	FaultDuplicate     = "duplicate"
	FaultExtraction    = "extraction"
)

// Metrics holds the normalizer's collectors on a private registry.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	runs          *prometheus.CounterVec
	runDuration   prometheus.Histogram
	lastSuccess   prometheus.Gauge
	pricesWritten prometheus.Counter
	faults        *prometheus.CounterVec
	events        *prometheus.CounterVec
}

// New creates and registers all collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_total",
				Help:      "Number of completed runs by outcome",
			},
			[]string{"outcome"},
		),
		runDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "run_duration_seconds",
				Help:      "Wall time of a run from catalog load to write",
				Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
			},
		),
		lastSuccess: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_success_timestamp_seconds",
				Help:      "Unix time of the last successful run",
			},
		),
		pricesWritten: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "prices_written_total",
				Help:      "Number of price rows inserted",
			},
		),
		faults: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "faults_total",
				Help:      "Number of non-fatal faults by kind",
			},
			[]string{"kind"},
		),
		events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_total",
				Help:      "Number of service events by kind",
			},
			[]string{"kind"},
		),
	}

	m.registry.MustRegister(
		m.runs,
		m.runDuration,
		m.lastSuccess,
		m.pricesWritten,
		m.faults,
		m.events,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveRun records one run. report may be the zero value when the run
// failed before the response loop started.
func (m *Metrics) ObserveRun(err error, duration time.Duration, report processor.Report, written int64) {
	if m == nil {
		return
	}

	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeFailure
	}
	m.runs.WithLabelValues(outcome).Inc()
	m.runDuration.Observe(duration.Seconds())
	if err == nil {
		m.lastSuccess.SetToCurrentTime()
	}

	m.pricesWritten.Add(float64(written))

	m.faults.WithLabelValues(FaultSecurityError).Add(float64(len(report.SecurityErrors)))
	m.faults.WithLabelValues(FaultFieldError).Add(float64(len(report.FieldErrors)))
	m.faults.WithLabelValues(FaultUnmatched).Add(float64(len(report.Unmatched)))
	m.faults.WithLabelValues(FaultDuplicate).Add(float64(len(report.Duplicates)))
	m.faults.WithLabelValues(FaultExtraction).Add(float64(len(report.Extraction)))

	m.events.WithLabelValues("partial").Add(float64(report.PartialEvents))
	m.events.WithLabelValues("other").Add(float64(report.OtherEvents))
	m.events.WithLabelValues("foreign").Add(float64(report.ForeignEvents))
	if final := report.Events - report.PartialEvents - report.OtherEvents - report.ForeignEvents; final > 0 {
		m.events.WithLabelValues("final").Add(float64(final))
	}
}
