// Package metrics registers the Prometheus collectors of the pipeline and
// serves them over HTTP.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	StageRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "ttms_stage_runs_total", Help: "Pipeline stage runs by outcome"},
		[]string{"stage", "outcome"},
	)
	StageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ttms_stage_duration_seconds",
			Help:    "Pipeline stage duration including retries",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
		},
		[]string{"stage"},
	)
	ScoredTokens = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "ttms_scored_tokens", Help: "Tokens with a positive score in the latest solve"},
	)
	SkippedCycles = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "ttms_skipped_cycles_total", Help: "Scheduler triggers skipped because a cycle was still running"},
		[]string{"job"},
	)
	PublishFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "ttms_publish_failures_total", Help: "Best-effort publish failures by sink"},
		[]string{"sink"},
	)
	UpstreamRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "ttms_upstream_requests_total", Help: "Signal source requests by outcome"},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(StageRunsTotal, StageDuration, ScoredTokens, SkippedCycles, PublishFailures, UpstreamRequests)
}

// ObserveStage records one finished stage run.
func ObserveStage(stage string, started time.Time, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	StageRunsTotal.WithLabelValues(stage, outcome).Inc()
	StageDuration.WithLabelValues(stage).Observe(time.Since(started).Seconds())
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Serve exposes /metrics on addr in the background.
func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
