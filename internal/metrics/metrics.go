// Package metrics exports conversation counters in the prometheus format.
package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"wardan/internal/logging"
)

const namespace = "wardan"

// Metrics implements agent.Recorder on a private registry so that several
// panels in one test binary do not collide on the default one.
type Metrics struct {
	registry    *prometheus.Registry
	utterances  *prometheus.CounterVec
	replies     *prometheus.CounterVec
	failures    *prometheus.CounterVec
	resolutions *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		utterances: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "utterances_total",
			Help:      "Utterances dispatched, by transport.",
		}, []string{"transport"}),
		replies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "replies_total",
			Help:      "Agent replies rendered, by payload shape.",
		}, []string{"shape"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "failures_total",
			Help:      "Failed exchanges, by failure class.",
		}, []string{"class"}),
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pending_resolutions_total",
			Help:      "Pending actions leaving the armed state, by kind and outcome.",
		}, []string{"kind", "outcome"}),
	}
	m.registry.MustRegister(
		m.utterances,
		m.replies,
		m.failures,
		m.resolutions,
		collectors.NewGoCollector(),
	)
	return m
}

func (m *Metrics) Utterance(transport string) {
	m.utterances.WithLabelValues(transport).Inc()
}

func (m *Metrics) Reply(shape string) {
	m.replies.WithLabelValues(shape).Inc()
}

func (m *Metrics) Failure(class string) {
	m.failures.WithLabelValues(class).Inc()
}

func (m *Metrics) Resolution(kind, outcome string) {
	m.resolutions.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is done. The bound address is
// returned once the listener is up.
func (m *Metrics) Serve(ctx context.Context, addr string, logger logging.Logger) (string, <-chan error, error) {
	if logger == nil {
		logger = logging.Nop()
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return "", nil, errors.New("metrics address is required")
	}
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return "", nil, err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	server := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	done := make(chan error, 1)
	go func() {
		err := server.Serve(listener)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		done <- err
		close(done)
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()
	bound := listener.Addr().String()
	logger.Info("metrics listening", logging.F("addr", bound))
	return bound, done, nil
}
