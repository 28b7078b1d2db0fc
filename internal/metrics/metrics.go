package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WebhookEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_total",
		Help: "Signature-verified provider webhook events by type and outcome.",
	}, []string{"event_type", "outcome"})

	CheckoutSessions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_sessions_created_total",
		Help: "Hosted checkout sessions created, by mode.",
	}, []string{"mode"})

	Refunds = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "refunds_total",
		Help: "Refund attempts by outcome.",
	}, []string{"outcome"})

	IntegrityWarnings = promauto.NewCounter(prometheus.CounterOpts{
		Name: "webhook_integrity_warnings_total",
		Help: "Non-fatal mismatches detected during webhook reconciliation.",
	})
)
