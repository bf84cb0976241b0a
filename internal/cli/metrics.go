package cli

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/extsync/easyupdate/pkg/observability"
)

// metrics collects lookup, decision and HTTP counters for one invocation
// and writes them in the text exposition format for node_exporter's
// textfile collector.
type metrics struct {
	registry *prometheus.Registry

	lookups        *prometheus.CounterVec
	lookupDuration *prometheus.HistogramVec
	decisions      *prometheus.CounterVec
	runDuration    *prometheus.GaugeVec
	runNodes       *prometheus.GaugeVec
	runErrors      *prometheus.CounterVec
	httpRequests   *prometheus.CounterVec
	httpErrors     *prometheus.CounterVec
}

func newMetrics() *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		lookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "easyupdate_lookups_total",
				Help: "Registry lookups by registry and outcome.",
			},
			[]string{"registry", "outcome"},
		),
		lookupDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "easyupdate_lookup_duration_seconds",
				Help:    "Time taken by one registry lookup.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"registry"},
		),
		decisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "easyupdate_decisions_total",
				Help: "Resolution decisions by ecosystem and decision.",
			},
			[]string{"ecosystem", "decision"},
		),
		runDuration: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "easyupdate_resolution_duration_seconds",
				Help: "Wall time of the last resolution run.",
			},
			[]string{"ecosystem"},
		),
		runNodes: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "easyupdate_resolution_nodes",
				Help: "Packages decided by the last resolution run.",
			},
			[]string{"ecosystem"},
		),
		runErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "easyupdate_resolution_errors_total",
				Help: "Aborted resolution runs.",
			},
			[]string{"ecosystem"},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "easyupdate_http_requests_total",
				Help: "Registry HTTP responses by host and status code.",
			},
			[]string{"host", "code"},
		),
		httpErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "easyupdate_http_errors_total",
				Help: "Registry HTTP transport failures by host.",
			},
			[]string{"host"},
		),
	}
	m.registry.MustRegister(
		m.lookups,
		m.lookupDuration,
		m.decisions,
		m.runDuration,
		m.runNodes,
		m.runErrors,
		m.httpRequests,
		m.httpErrors,
	)
	return m
}

func (m *metrics) install() {
	observability.SetResolveHooks(m)
	observability.SetHTTPHooks(m)
}

func (m *metrics) uninstall() {
	observability.Reset()
}

func (m *metrics) write(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}

func (m *metrics) OnLookup(_ context.Context, registry, _, outcome string, d time.Duration) {
	m.lookups.WithLabelValues(registry, outcome).Inc()
	m.lookupDuration.WithLabelValues(registry).Observe(d.Seconds())
}

func (m *metrics) OnDecision(_ context.Context, ecosystem, decision string) {
	m.decisions.WithLabelValues(ecosystem, decision).Inc()
}

func (m *metrics) OnRunComplete(_ context.Context, ecosystem string, nodes int, d time.Duration, err error) {
	if err != nil {
		m.runErrors.WithLabelValues(ecosystem).Inc()
		return
	}
	m.runDuration.WithLabelValues(ecosystem).Set(d.Seconds())
	m.runNodes.WithLabelValues(ecosystem).Set(float64(nodes))
}

func (m *metrics) OnRequest(context.Context, string, string, string) {}

func (m *metrics) OnResponse(_ context.Context, _, host, _ string, code int, _ time.Duration) {
	m.httpRequests.WithLabelValues(host, statusLabel(code)).Inc()
}

func (m *metrics) OnError(_ context.Context, _, host, _ string, _ error) {
	m.httpErrors.WithLabelValues(host).Inc()
}

func statusLabel(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	}
	return "2xx"
}
