// internal/metrics/prometheus_recorder.go
package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	pageDuration    prom.Histogram
	pageResults     *prom.CounterVec
	digestCopies    prom.Counter
	artifactResults *prom.CounterVec
	buildDuration   prom.Histogram
	workers         prom.Gauge
}

// NewPrometheusRecorder constructs and registers the build metrics on reg.
// A nil registry gets a fresh private one.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		pageDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: "kiln",
			Name:      "page_duration_seconds",
			Help:      "Duration of individual page processing",
			Buckets:   prom.DefBuckets,
		}),
		pageResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "kiln",
			Name:      "page_results_total",
			Help:      "Processed pages by outcome",
		}, []string{"result"}),
		digestCopies: prom.NewCounter(prom.CounterOpts{
			Namespace: "kiln",
			Name:      "digest_copies_total",
			Help:      "Stripped markdown copies written for the digest",
		}),
		artifactResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "kiln",
			Name:      "artifact_results_total",
			Help:      "Aggregate artifact writes by artifact and outcome",
		}, []string{"artifact", "result"}),
		buildDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: "kiln",
			Name:      "build_duration_seconds",
			Help:      "Total build duration",
			Buckets:   prom.DefBuckets,
		}),
		workers: prom.NewGauge(prom.GaugeOpts{
			Namespace: "kiln",
			Name:      "build_workers",
			Help:      "Worker pool size used by the last build",
		}),
	}
	reg.MustRegister(pr.pageDuration, pr.pageResults, pr.digestCopies, pr.artifactResults, pr.buildDuration, pr.workers)
	return pr
}

func (p *PrometheusRecorder) ObservePageDuration(d time.Duration) {
	p.pageDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncPageResult(result ResultLabel) {
	p.pageResults.WithLabelValues(string(result)).Inc()
}

func (p *PrometheusRecorder) IncDigestCopy() { p.digestCopies.Inc() }

func (p *PrometheusRecorder) IncArtifactResult(artifact string, result ResultLabel) {
	p.artifactResults.WithLabelValues(artifact, string(result)).Inc()
}

func (p *PrometheusRecorder) ObserveBuildDuration(d time.Duration) {
	p.buildDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) SetWorkers(n int) { p.workers.Set(float64(n)) }
