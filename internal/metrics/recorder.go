// internal/metrics/recorder.go

// Package metrics records build observations. Components receive a Recorder
// and default to NoopRecorder, so callers never need nil checks. The dev
// server swaps in a PrometheusRecorder and exposes it on /metrics.
package metrics

import "time"

// ResultLabel enumerates page and artifact result categories for counters.
type ResultLabel string

const (
	ResultSuccess ResultLabel = "success"
	ResultFailed  ResultLabel = "failed"
)

// Recorder defines observability hooks for a site build.
type Recorder interface {
	ObservePageDuration(d time.Duration)
	IncPageResult(result ResultLabel)
	IncDigestCopy()
	IncArtifactResult(artifact string, result ResultLabel)
	ObserveBuildDuration(d time.Duration)
	SetWorkers(n int)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObservePageDuration(time.Duration)     {}
func (NoopRecorder) IncPageResult(ResultLabel)             {}
func (NoopRecorder) IncDigestCopy()                        {}
func (NoopRecorder) IncArtifactResult(string, ResultLabel) {}
func (NoopRecorder) ObserveBuildDuration(time.Duration)    {}
func (NoopRecorder) SetWorkers(int)                        {}

// Result maps a success flag to a ResultLabel.
func Result(ok bool) ResultLabel {
	if ok {
		return ResultSuccess
	}
	return ResultFailed
}
