package metrics

import (
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	promhttp "github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	reg             *prom.Registry
	rebuildDuration *prom.HistogramVec
	rebuilds        *prom.CounterVec
	compileDuration prom.Histogram
	compiles        *prom.CounterVec
	broadcasts      prom.Counter
	clients         prom.Gauge
	documents       prom.Gauge
}

// NewPrometheusRecorder constructs the metrics and registers them on reg.
// A nil reg gets a fresh registry.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		reg: reg,
		rebuildDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "xo",
			Name:      "rebuild_duration_seconds",
			Help:      "Duration of change-handling and build invocations",
			Buckets:   prom.DefBuckets,
		}, []string{"status"}),
		rebuilds: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "xo",
			Name:      "rebuilds_total",
			Help:      "Rebuild invocations by final status",
		}, []string{"status"}),
		compileDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: "xo",
			Name:      "compile_duration_seconds",
			Help:      "Duration of single document compiles",
			Buckets:   prom.DefBuckets,
		}),
		compiles: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "xo",
			Name:      "compiles_total",
			Help:      "Document compiles by result",
		}, []string{"result"}),
		broadcasts: prom.NewCounter(prom.CounterOpts{
			Namespace: "xo",
			Name:      "reload_broadcasts_total",
			Help:      "Reload notifications sent to connected clients",
		}),
		clients: prom.NewGauge(prom.GaugeOpts{
			Namespace: "xo",
			Name:      "reload_clients",
			Help:      "Currently connected live-reload clients",
		}),
		documents: prom.NewGauge(prom.GaugeOpts{
			Namespace: "xo",
			Name:      "graph_documents",
			Help:      "Documents tracked by the dependency graph",
		}),
	}
	reg.MustRegister(
		pr.rebuildDuration, pr.rebuilds,
		pr.compileDuration, pr.compiles,
		pr.broadcasts, pr.clients, pr.documents,
	)
	return pr
}

func (p *PrometheusRecorder) ObserveRebuild(status string, d time.Duration) {
	p.rebuildDuration.WithLabelValues(status).Observe(d.Seconds())
	p.rebuilds.WithLabelValues(status).Inc()
}

func (p *PrometheusRecorder) ObserveCompile(success bool, d time.Duration) {
	p.compileDuration.Observe(d.Seconds())
	result := "success"
	if !success {
		result = "failure"
	}
	p.compiles.WithLabelValues(result).Inc()
}

func (p *PrometheusRecorder) IncReloadBroadcast()     { p.broadcasts.Inc() }
func (p *PrometheusRecorder) SetReloadClients(n int)  { p.clients.Set(float64(n)) }
func (p *PrometheusRecorder) SetGraphDocuments(n int) { p.documents.Set(float64(n)) }

// Handler serves the registry in the Prometheus exposition format.
func (p *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(p.reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

var (
	_ Recorder = NoopRecorder{}
	_ Recorder = (*PrometheusRecorder)(nil)
)
