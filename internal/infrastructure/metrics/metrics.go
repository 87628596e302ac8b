package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RegistrationsTotal tracks accepted registration requests
	RegistrationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "licensehub_registrations_total",
		Help: "Total number of new registration requests persisted",
	})

	// DecisionsTotal tracks administrator approve/reject decisions
	DecisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "licensehub_decisions_total",
		Help: "Total number of registration decisions",
	}, []string{"action"})

	// BroadcastSignalsTotal tracks change signals published to sessions
	BroadcastSignalsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "licensehub_broadcast_signals_total",
		Help: "Total number of change signals broadcast to admin sessions",
	})

	// SSESessions tracks currently connected dashboard event streams
	SSESessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "licensehub_sse_sessions",
		Help: "Number of currently connected admin event streams",
	})

	// HTTPRequestsTotal tracks API traffic by route and status class
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "licensehub_http_requests_total",
		Help: "Total number of HTTP requests served",
	}, []string{"route", "code"})
)
