package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/RishiKendai/cheatcheck/internal/plagiarism"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RequestCount counts HTTP requests
	RequestCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	// RequestDuration measures HTTP request duration
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "http_request_duration_seconds",
			Help: "HTTP request duration in seconds",
		},
		[]string{"method", "endpoint"},
	)

	// RunCount counts comparison runs by outcome
	RunCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cheatcheck_runs_total",
			Help: "Total number of comparison runs",
		},
		[]string{"status"},
	)

	// RunDuration measures comparison run duration
	RunDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cheatcheck_run_duration_seconds",
			Help:    "Comparison run duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
		},
	)

	// PairsCompared counts scored pairs by outcome
	PairsCompared = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cheatcheck_pairs_total",
			Help: "Total number of document pairs compared",
		},
		[]string{"outcome"},
	)

	// SubmissionsIngested counts stream messages by outcome
	SubmissionsIngested = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cheatcheck_submissions_ingested_total",
			Help: "Total number of submissions consumed from the stream",
		},
		[]string{"status"},
	)
)

// InitPrometheus registers all collectors with the default registry
func InitPrometheus() {
	Register(prometheus.DefaultRegisterer)
}

// Register registers all collectors with reg
func Register(reg prometheus.Registerer) {
	reg.MustRegister(RequestCount, RequestDuration, RunCount, RunDuration, PairsCompared, SubmissionsIngested)
}

// MetricsHandler returns Prometheus metrics handler
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

// GinMiddleware records request count and latency per route
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		RequestCount.WithLabelValues(c.Request.Method, endpoint, strconv.Itoa(c.Writer.Status())).Inc()
		RequestDuration.WithLabelValues(c.Request.Method, endpoint).Observe(time.Since(start).Seconds())
	}
}

// ObserveRun records a finished run; result may be nil when the run never started
func ObserveRun(result *plagiarism.RunResult, err error) {
	status := "completed"
	switch {
	case errors.Is(err, plagiarism.ErrTimeout):
		status = "timeout"
	case errors.Is(err, plagiarism.ErrComparisonFailed):
		status = "aborted"
	case err != nil:
		status = "failed"
	}
	RunCount.WithLabelValues(status).Inc()

	if result == nil {
		return
	}
	RunDuration.Observe(result.Duration.Seconds())
	PairsCompared.WithLabelValues("scored").Add(float64(result.Compared - len(result.Failures)))
	PairsCompared.WithLabelValues("failed").Add(float64(len(result.Failures)))
}
