package stripewebhook

import (
	"encoding/json"

	"course-marketplace/internal/domain/billing"

	"github.com/stripe/stripe-go/v75"
)

// handleInvoicePayment reacts to recurring billing cycles. It only flips the
// subscription's liveness flag; it never creates or deletes Payments.
func (p *Processor) handleInvoicePayment(event *stripe.Event, succeeded bool) error {
	var invoice stripe.Invoice
	if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
		return err
	}

	if invoice.Subscription == nil || invoice.Subscription.ID == "" {
		// One-off invoices carry no subscription; nothing to reconcile.
		return nil
	}
	subscriptionID := invoice.Subscription.ID

	var sub billing.Subscription
	if err := p.db.
		Where("stripe_subscription_id = ?", subscriptionID).
		First(&sub).Error; err != nil {
		integrityWarn("invoice references unknown subscription", map[string]interface{}{
			"event_id":        event.ID,
			"subscription_id": subscriptionID,
		})
		return nil
	}

	if err := p.db.Model(&sub).Update("active", succeeded).Error; err != nil {
		return err
	}

	// Subscription-mode checkout sessions carry no payment intent; the
	// first invoice does. Backfill it so the owning payment stays
	// refundable through the provider.
	if succeeded && invoice.PaymentIntent != nil && invoice.PaymentIntent.ID != "" {
		return p.db.Model(&billing.Payment{}).
			Where("stripe_subscription_id = ? AND stripe_payment_intent_id IS NULL", subscriptionID).
			Update("stripe_payment_intent_id", invoice.PaymentIntent.ID).Error
	}
	return nil
}
