// Package metrics holds the console's Prometheus metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"maintenance-manager/console/internal/platform/rbac"
	"maintenance-manager/console/internal/toast"
)

const namespace = "console"

// ConsoleMetrics holds all Prometheus metrics for the console server.
type ConsoleMetrics struct {
	RequestDuration *prometheus.HistogramVec
	GateDecisions   *prometheus.CounterVec
	ToastsTotal     *prometheus.CounterVec
	APIDuration     *prometheus.HistogramVec
	LoginAttempts   *prometheus.CounterVec

	reg prometheus.Registerer
}

// NewConsoleMetrics creates the metrics and registers them with reg.
// Pass prometheus.DefaultRegisterer in production and a fresh registry in tests.
func NewConsoleMetrics(reg prometheus.Registerer) *ConsoleMetrics {
	f := promauto.With(reg)
	return &ConsoleMetrics{
		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of console HTTP requests by route pattern and status code.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "code"}),
		GateDecisions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gate",
			Name:      "decisions_total",
			Help:      "Authorization gate decisions by route and outcome.",
		}, []string{"route", "decision"}), // decision: pending, unauthenticated, forbidden, authorized
		ToastsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "toast",
			Name:      "added_total",
			Help:      "Toasts shown by kind.",
		}, []string{"kind"}),
		APIDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "Duration of maintenance API calls by operation and status (0 = no response).",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation", "status"}),
		LoginAttempts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "login_attempts_total",
			Help:      "Login attempts by result.",
		}, []string{"result"}), // result: success, failure, invalid, rate_limited
		reg: reg,
	}
}

// ObserveGate counts a gate decision. Matches rbac.GateOptions.OnDecision.
func (m *ConsoleMetrics) ObserveGate(route string, d rbac.Decision) {
	m.GateDecisions.WithLabelValues(route, d.String()).Inc()
}

// ObserveToast counts an added toast. Matches toast.Observer.
func (m *ConsoleMetrics) ObserveToast(kind toast.Kind) {
	m.ToastsTotal.WithLabelValues(string(kind)).Inc()
}

// ObserveAPI records an API call. Matches gateway.Observer.
func (m *ConsoleMetrics) ObserveAPI(operation string, status int, elapsed time.Duration) {
	m.APIDuration.WithLabelValues(operation, strconv.Itoa(status)).Observe(elapsed.Seconds())
}

// ObserveLogin counts a login attempt.
func (m *ConsoleMetrics) ObserveLogin(result string) {
	m.LoginAttempts.WithLabelValues(result).Inc()
}

// ObserveRequest records a served HTTP request.
func (m *ConsoleMetrics) ObserveRequest(method, route string, code int, elapsed time.Duration) {
	m.RequestDuration.WithLabelValues(method, route, strconv.Itoa(code)).Observe(elapsed.Seconds())
}

// RegisterSessionGauge exports the number of client session stores held in memory.
func (m *ConsoleMetrics) RegisterSessionGauge(count func() int) {
	promauto.With(m.reg).NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "session",
		Name:      "stores_active",
		Help:      "Client session stores currently held in memory.",
	}, func() float64 { return float64(count()) })
}
