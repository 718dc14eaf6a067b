package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autopilot_requests_total",
			Help: "Total HTTP requests",
		}, []string{"code"},
	)
	Latency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "autopilot_request_duration_seconds",
		Help:    "Request latency seconds",
		Buckets: prometheus.DefBuckets,
	})
	InFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "autopilot_in_flight",
		Help: "In-flight HTTP requests",
	})

	PassesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "autopilot_passes_total",
		Help: "Evaluation passes started",
	})
	PassDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "autopilot_pass_duration_seconds",
		Help:    "Evaluation pass duration seconds",
		Buckets: prometheus.DefBuckets,
	})
	ActionsCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "autopilot_actions_created_total",
		Help: "Actions created by the rule engine",
	})
	ActionsExecuted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autopilot_actions_executed_total",
			Help: "Actions driven to a terminal state, by status",
		}, []string{"status"},
	)
)

func init() {
	prometheus.MustRegister(RequestsTotal, Latency, InFlight,
		PassesTotal, PassDuration, ActionsCreated, ActionsExecuted)
}

func MetricsHandler() http.Handler { return promhttp.Handler() }

// PassTimer times one evaluation pass into PassDuration.
func PassTimer() *prometheus.Timer { return prometheus.NewTimer(PassDuration) }

type rec struct {
	http.ResponseWriter
	code int
}

func (r *rec) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

func Measure(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		InFlight.Inc()
		defer InFlight.Dec()

		rr := &rec{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(rr, r)

		Latency.Observe(time.Since(start).Seconds())
		RequestsTotal.WithLabelValues(strconv.Itoa(rr.code)).Inc()
	})
}
