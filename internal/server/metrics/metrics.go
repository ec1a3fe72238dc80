// Package metrics содержит Prometheus коллекторы сервера.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Исходы попытки аутентификации
const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
)

var (
	// AuthAttemptsTotal считает попытки аутентификации по стратегии, исходу и причине отказа.
	// Для успешных попыток reason пустой.
	AuthAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "custadmin_auth_attempts_total",
			Help: "Authentication attempts",
		},
		[]string{"strategy", "outcome", "reason"},
	)

	// RequestsTotal считает HTTP запросы по методу, шаблону маршрута и классу статуса.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "custadmin_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	// RequestDuration длительность HTTP запроса в секундах.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "custadmin_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

func init() {
	prometheus.MustRegister(
		AuthAttemptsTotal,
		RequestsTotal,
		RequestDuration,
	)
}
