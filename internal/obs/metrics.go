package obs

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Shared HTTP metrics.
var (
	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

// Access-flow outcome counters.
var (
	loginOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "accessflow_login_total",
			Help: "Login attempts by outcome.",
		},
		[]string{"outcome"},
	)

	invitesCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "accessflow_invitations_created_total",
		Help: "Invitations successfully created.",
	})

	invitesAccepted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "accessflow_invitations_accepted_total",
		Help: "Invitations successfully accepted.",
	})

	mfaVerifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "accessflow_mfa_verifications_total",
			Help: "MFA verification attempts by outcome.",
		},
		[]string{"outcome"},
	)
)

// Init registers metrics in the default registry.
func Init() {
	prometheus.MustRegister(
		httpInFlight, httpRequestsTotal, httpRequestDuration,
		loginOutcomes, invitesCreated, invitesAccepted, mfaVerifications,
	)
}

// Handler exposes the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// CountLogin records a login attempt outcome ("setup", "otp", "totp", "denied").
func CountLogin(outcome string) {
	loginOutcomes.WithLabelValues(outcome).Inc()
}

// CountInviteCreated records a successful invitation.
func CountInviteCreated() { invitesCreated.Inc() }

// CountInviteAccepted records a consumed invitation.
func CountInviteAccepted() { invitesAccepted.Inc() }

// CountMFAVerification records an MFA verification outcome ("ok", "rejected").
func CountMFAVerification(outcome string) {
	mfaVerifications.WithLabelValues(outcome).Inc()
}

// Instrument wraps a handler with RPS/latency/in-flight measurements.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		method := r.Method

		httpInFlight.Inc()
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, code: 200}
		next.ServeHTTP(sw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(sw.code)

		httpRequestDuration.WithLabelValues(method, path, status).Observe(duration)
		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpInFlight.Dec()
	})
}

// statusWriter captures the response code for labeling.
type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
