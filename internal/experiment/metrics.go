package experiment

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics exports running aggregates of experiment results as Prometheus collectors, giving
// the harness's "statistics pretty-printing" concern a scrape-able home instead of stdout.
type Metrics struct {
	registry        *prometheus.Registry
	efficiency      *prometheus.HistogramVec
	remainingErrors *prometheus.CounterVec
	runsTotal       *prometheus.CounterVec
}

// NewMetrics builds and registers a fresh set of collectors.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,
		efficiency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "cascade",
			Name:      "realistic_efficiency",
			Help:      "Realistic reconciliation efficiency (bits leaked / Shannon bound), by variant.",
			Buckets:   prometheus.LinearBuckets(1.0, 0.25, 12),
		}, []string{"variant"}),
		remainingErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cascade",
			Name:      "remaining_bit_errors_total",
			Help:      "Cumulative remaining bit errors after reconciliation, by variant.",
		}, []string{"variant"}),
		runsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cascade",
			Name:      "runs_total",
			Help:      "Total reconciliation runs completed, by variant.",
		}, []string{"variant"}),
	}
	registry.MustRegister(m.efficiency, m.remainingErrors, m.runsTotal)
	return m
}

// Observe implements Observer.
func (m *Metrics) Observe(res Result) {
	m.efficiency.WithLabelValues(res.Combination.Variant).Observe(res.Stats.RealisticEfficiency)
	m.remainingErrors.WithLabelValues(res.Combination.Variant).Add(float64(res.Stats.RemainingBitErrors))
	m.runsTotal.WithLabelValues(res.Combination.Variant).Inc()
}

// Handler returns the HTTP handler that serves these metrics in the Prometheus exposition
// format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve runs an HTTP server exposing Handler on addr until ctx is cancelled.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		_ = srv.Shutdown(context.Background())
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("metrics server: %w", err)
	}
}
