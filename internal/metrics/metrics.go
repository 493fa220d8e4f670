// Package metrics holds the process wide Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "skill_exchange"

var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by method, route pattern and status code.",
	}, []string{"method", "route", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by method and route pattern.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	// AuthAttemptsTotal counts auth operations (signup, login, logout, refresh) by outcome.
	AuthAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_attempts_total",
		Help:      "Auth operations by operation and outcome.",
	}, []string{"op", "status"})

	RateLimitedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rate_limited_total",
		Help:      "Requests rejected by the rate limiter, by route.",
	}, []string{"route"})

	MessagesPostedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "messages_posted_total",
		Help:      "Messages persisted through the REST API.",
	})

	// DeliveriesTotal counts real-time pushes: delivered, offline or failed.
	DeliveriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "deliveries_total",
		Help:      "Real-time message pushes by outcome.",
	}, []string{"outcome"})

	OnlineUsers = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "online_users",
		Help:      "Users currently bound to a live connection.",
	})

	// ConnectionRequestsTotal counts connection request actions: sent, accepted or rejected.
	ConnectionRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "connection_requests_total",
		Help:      "Connection request actions by kind.",
	}, []string{"action"})

	CleanupRowsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cleanup_rows_total",
		Help:      "Rows affected by background cleanup jobs.",
	}, []string{"job"})
)

const (
	StatusSuccess = "success"
	StatusFailure = "failure"

	OutcomeDelivered = "delivered"
	OutcomeOffline   = "offline"
	OutcomeFailed    = "failed"

	ActionSent     = "sent"
	ActionAccepted = "accepted"
	ActionRejected = "rejected"
)
