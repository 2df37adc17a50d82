package token

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	refreshAttempts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "qrenso_admin",
		Subsystem: "token",
		Name:      "refresh_attempts_total",
		Help:      "Number of refresh calls actually issued to the backend.",
	})
	refreshFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "qrenso_admin",
		Subsystem: "token",
		Name:      "refresh_failures_total",
		Help:      "Number of refresh calls that failed and collapsed the session.",
	})
	refreshCoalesced = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "qrenso_admin",
		Subsystem: "token",
		Name:      "refresh_coalesced_total",
		Help:      "Number of callers that joined an already outstanding refresh.",
	})
	retriedRequests = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "qrenso_admin",
		Subsystem: "token",
		Name:      "retried_requests_total",
		Help:      "Number of requests re-issued after a successful refresh.",
	})
)
