package crud

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/goliatone/go-crudgrid/pkg/options"
	"github.com/goliatone/go-crudgrid/pkg/query"
)

// Metrics observes orchestrator activity. It also receives option resolution
// outcomes from the resolver the orchestrator builds.
type Metrics interface {
	options.Observer
	ObserveWrite(op Operation, outcome Outcome, elapsed time.Duration)
	ObserveQuery(mode query.Mode)
}

type noopMetrics struct{}

func (noopMetrics) ObserveWrite(Operation, Outcome, time.Duration) {}
func (noopMetrics) ObserveQuery(query.Mode)                        {}
func (noopMetrics) ObserveResolution(string, options.Outcome)      {}

// PrometheusMetrics exports orchestrator activity as prometheus collectors.
type PrometheusMetrics struct {
	writes      *prometheus.CounterVec
	writeTime   *prometheus.HistogramVec
	queries     *prometheus.CounterVec
	resolutions *prometheus.CounterVec
}

// NewPrometheusMetrics builds the collectors under namespace and registers them
// with reg. Collectors already registered by another orchestrator are reused.
func NewPrometheusMetrics(reg prometheus.Registerer, namespace string) (*PrometheusMetrics, error) {
	if namespace == "" {
		namespace = "crudgrid"
	}
	m := &PrometheusMetrics{
		writes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "writes_total",
				Help:      "Save and delete operations by outcome",
			},
			[]string{"op", "outcome"},
		),
		writeTime: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "write_duration_seconds",
				Help:      "Duration of save and delete callbacks in seconds",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"op"},
		),
		queries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "queries_total",
				Help:      "Settled query transitions by execution mode",
			},
			[]string{"mode"},
		),
		resolutions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "option_resolutions_total",
				Help:      "Option resolutions by outcome",
			},
			[]string{"outcome"},
		),
	}

	if reg == nil {
		return m, nil
	}
	var err error
	if m.writes, err = register(reg, m.writes); err != nil {
		return nil, err
	}
	if m.writeTime, err = register(reg, m.writeTime); err != nil {
		return nil, err
	}
	if m.queries, err = register(reg, m.queries); err != nil {
		return nil, err
	}
	if m.resolutions, err = register(reg, m.resolutions); err != nil {
		return nil, err
	}
	return m, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// ObserveWrite implements Metrics.
func (m *PrometheusMetrics) ObserveWrite(op Operation, outcome Outcome, elapsed time.Duration) {
	m.writes.WithLabelValues(string(op), string(outcome)).Inc()
	m.writeTime.WithLabelValues(string(op)).Observe(elapsed.Seconds())
}

// ObserveQuery implements Metrics.
func (m *PrometheusMetrics) ObserveQuery(mode query.Mode) {
	m.queries.WithLabelValues(string(mode)).Inc()
}

// ObserveResolution implements options.Observer.
func (m *PrometheusMetrics) ObserveResolution(_ string, outcome options.Outcome) {
	m.resolutions.WithLabelValues(string(outcome)).Inc()
}
