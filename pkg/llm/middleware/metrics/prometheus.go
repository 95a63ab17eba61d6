package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	requestsTotal   *prometheus.CounterVec
	tokensTotal     *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// NewPrometheusRecorder creates a Prometheus-backed metrics recorder.
// Metrics are registered with the default registry; create at most one per
// process.
func NewPrometheusRecorder() *PrometheusRecorder {
	return &PrometheusRecorder{
		requestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "llm_requests_total",
				Help: "Total number of model gateway requests by model, session, stage, and status",
			},
			[]string{"model", "session_id", "stage", "status", "error_type"},
		),
		tokensTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "llm_tokens_total",
				Help: "Total number of tokens used in model gateway requests",
			},
			[]string{"model", "session_id", "stage", "type"},
		),
		requestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "llm_request_duration_seconds",
				Help:    "Duration of model gateway requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"model", "session_id", "stage"},
		),
	}
}

// ObserveRequest implements Recorder.
func (p *PrometheusRecorder) ObserveRequest(
	model, sessionID, stage string,
	promptTokens, completionTokens int,
	success bool,
	errorType string,
	duration time.Duration,
) {
	status := statusSuccess
	if !success {
		status = statusError
	}

	p.requestsTotal.WithLabelValues(model, sessionID, stage, status, errorType).Inc()
	p.requestDuration.WithLabelValues(model, sessionID, stage).Observe(duration.Seconds())

	if success {
		p.tokensTotal.WithLabelValues(model, sessionID, stage, "prompt").Add(float64(promptTokens))
		p.tokensTotal.WithLabelValues(model, sessionID, stage, "completion").Add(float64(completionTokens))
	}
}
