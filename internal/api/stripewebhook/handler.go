package stripewebhook

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"course-marketplace/internal/domain/billing"
	"course-marketplace/internal/infra/stripeclient"
	"course-marketplace/internal/metrics"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/stripe/stripe-go/v75"
	"github.com/stripe/stripe-go/v75/webhook"
	"gorm.io/gorm"
)

// Processor reconciles asynchronous provider events into local payment,
// enrollment, subscription and certificate state. Delivery is at-least-once
// and possibly reordered, so every write below is create-if-not-exists or
// an idempotent update to a known target state.
type Processor struct {
	db            *gorm.DB
	gateway       stripeclient.Gateway
	webhookSecret string
}

func NewProcessor(db *gorm.DB, gateway stripeclient.Gateway, webhookSecret string) *Processor {
	return &Processor{db: db, gateway: gateway, webhookSecret: webhookSecret}
}

// POST /webhooks/stripe
//
// Once the signature verifies, the endpoint always acknowledges with 200 so
// the provider does not endlessly retry events whose domain processing hit
// a recoverable inconsistency. Every swallowed error is logged.
func (p *Processor) Handle(c *gin.Context) {
	payload, err := readBody(c, 65536)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Error reading request body"})
		return
	}

	event, err := webhook.ConstructEventWithOptions(
		payload,
		c.GetHeader("Stripe-Signature"),
		p.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true},
	)
	if err != nil {
		// Security-relevant: an unverifiable payload is never processed and
		// never enters the audit log.
		log.Warn().Err(err).Str("remote_addr", c.ClientIP()).
			Msg("stripe signature verification failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Signature verification failed"})
		return
	}

	// Write-ahead audit: every verified event is persisted before dispatch,
	// unconditionally, so a processing bug never silently loses an event.
	entry := billing.WebhookLog{
		Provider:   "stripe",
		EventID:    event.ID,
		EventType:  string(event.Type),
		Payload:    string(payload),
		ReceivedAt: time.Now(),
	}
	if err := p.db.Create(&entry).Error; err != nil {
		log.Error().Err(err).Str("event_id", event.ID).
			Msg("failed to persist webhook audit log entry")
	}

	if err := p.dispatch(&event); err != nil {
		metrics.WebhookEvents.WithLabelValues(string(event.Type), "error").Inc()
		log.Error().Err(err).
			Str("event_id", event.ID).
			Str("event_type", string(event.Type)).
			Msg("webhook processing failed; event acknowledged, see audit log")
	} else {
		metrics.WebhookEvents.WithLabelValues(string(event.Type), "ok").Inc()
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}

func (p *Processor) dispatch(event *stripe.Event) error {
	switch event.Type {
	case "checkout.session.completed":
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return err
		}
		if session.Mode == stripe.CheckoutSessionModeSubscription {
			return p.handleSubscriptionCheckoutCompleted(&session)
		}
		return p.handleCourseCheckoutCompleted(&session)

	case "invoice.payment_succeeded":
		return p.handleInvoicePayment(event, true)

	case "invoice.payment_failed":
		return p.handleInvoicePayment(event, false)

	case "customer.subscription.updated", "customer.subscription.deleted":
		return p.handleSubscriptionLifecycle(event)

	case "customer.created":
		return p.handleCustomerCreated(event)

	default:
		// Unknown event types are audit-logged and acknowledged; the
		// provider adds types over time.
		return nil
	}
}

func readBody(c *gin.Context, maxBytes int64) ([]byte, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
	return io.ReadAll(c.Request.Body)
}

func userIDFromMetadata(md map[string]string) uint {
	if md == nil {
		return 0
	}
	s := md["user_id"]
	if s == "" {
		return 0
	}
	uid, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0
	}
	return uint(uid)
}

func parseCourseIDs(s string) []uint {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	ids := make([]uint, 0, len(parts))
	for _, part := range parts {
		id, err := strconv.ParseUint(strings.TrimSpace(part), 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, uint(id))
	}
	return ids
}

// integrityWarn records a non-fatal mismatch with enough context for manual
// investigation; processing continues for unaffected parts of the event.
func integrityWarn(msg string, fields map[string]interface{}) {
	metrics.IntegrityWarnings.Inc()
	ev := log.Warn()
	for k, v := range fields {
		ev = ev.Interface(k, v)
	}
	ev.Msg(msg)
}
