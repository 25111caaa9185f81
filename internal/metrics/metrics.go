// Package metrics holds the Prometheus collectors shared by the HTTP layer,
// the RSVP services and the email worker.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "townhall_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "townhall_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// RSVP metrics
	RsvpTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "townhall_rsvp_transitions_total",
			Help: "RSVP sessions entering each step",
		},
		[]string{"step"},
	)

	RsvpPaid = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "townhall_rsvp_paid_total",
			Help: "RSVP sessions that reached the paid state",
		},
	)

	RsvpConflicts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "townhall_rsvp_conflicts_total",
			Help: "RSVP steps rejected because the email already holds a seat",
		},
		[]string{"code"},
	)

	PendingSessionsExpired = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "townhall_rsvp_sessions_expired_total",
			Help: "Pending RSVP sessions removed by the janitor",
		},
	)

	WebhookEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "townhall_webhook_events_total",
			Help: "Verified payment webhook events by type",
		},
		[]string{"type"},
	)

	RendezvousWaits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "townhall_rendezvous_waits_total",
			Help: "Rendezvous waits by outcome",
		},
		[]string{"outcome"},
	)

	// Email metrics
	EmailsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "townhall_emails_total",
			Help: "Emails attempted by the worker",
		},
		[]string{"result"},
	)

	EmailsEnqueued = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "townhall_emails_enqueued_total",
			Help: "Emails added to the queue",
		},
	)
)
