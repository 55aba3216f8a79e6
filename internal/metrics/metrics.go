package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// EventsGenerated counts game events synthesized, partitioned by type.
	EventsGenerated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lanerush_events_generated_total",
		Help: "Total game events synthesized by the stream controller",
	}, []string{"type"})

	// EventsSuppressed counts events discarded by an active global modifier.
	EventsSuppressed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lanerush_events_suppressed_total",
		Help: "Market events discarded because a global modifier was active",
	}, []string{"modifier"})

	// EnrichmentFailures counts failed enrichment calls by source.
	EnrichmentFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lanerush_enrichment_failures_total",
		Help: "External enrichment calls that degraded to a fallback",
	}, []string{"source"})

	// EnrichmentLatency tracks enrichment pipeline duration.
	EnrichmentLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "lanerush_enrichment_duration_seconds",
		Help:    "Time from provisional event push to enrichment patch",
		Buckets: prometheus.DefBuckets,
	})

	// FeedReconnects counts stream reconnection attempts.
	FeedReconnects = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lanerush_feed_reconnects_total",
		Help: "Market-data stream reconnection attempts",
	})

	// WebSocketClients tracks connected UI clients.
	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "lanerush_websocket_clients",
		Help: "Number of connected UI WebSocket clients",
	})

	// QuizOutcomes counts resolved quizzes by correctness.
	QuizOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lanerush_quiz_outcomes_total",
		Help: "Quizzes resolved, partitioned by outcome",
	}, []string{"outcome"})

	// TradesExecuted counts lane events the player executed.
	TradesExecuted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lanerush_trades_executed_total",
		Help: "Lane events executed by the player",
	}, []string{"type"})

	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lanerush_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and path.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "lanerush_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "path"})
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware returns an HTTP middleware that records request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: 200}
		next.ServeHTTP(wrapped, r)
		duration := time.Since(start).Seconds()

		path := r.URL.Path
		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
