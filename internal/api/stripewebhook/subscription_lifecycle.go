package stripewebhook

import (
	"encoding/json"
	"time"

	"course-marketplace/internal/domain/billing"
	"course-marketplace/internal/infra/stripeclient"

	"github.com/stripe/stripe-go/v75"
)

// handleSubscriptionLifecycle syncs provider-initiated changes (end-of-term
// cancellation, dunning) onto the local row. Events may arrive out of order;
// the documented policy is last-applied-wins on the Active flag, with no
// attempt at event-sequence reconstruction.
func (p *Processor) handleSubscriptionLifecycle(event *stripe.Event) error {
	var remote stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &remote); err != nil {
		return err
	}
	if remote.ID == "" {
		return nil
	}

	var sub billing.Subscription
	if err := p.db.
		Where("stripe_subscription_id = ?", remote.ID).
		First(&sub).Error; err != nil {
		integrityWarn("lifecycle event for unknown subscription", map[string]interface{}{
			"event_id":        event.ID,
			"event_type":      string(event.Type),
			"subscription_id": remote.ID,
		})
		return nil
	}

	updates := map[string]interface{}{
		"active":               stripeclient.IsLiveStatus(string(remote.Status)),
		"cancel_at_period_end": remote.CancelAtPeriodEnd,
	}
	if remote.CurrentPeriodStart > 0 {
		updates["current_period_start"] = time.Unix(remote.CurrentPeriodStart, 0)
	}
	if remote.CurrentPeriodEnd > 0 {
		updates["current_period_end"] = time.Unix(remote.CurrentPeriodEnd, 0)
	}

	return p.db.Model(&sub).Updates(updates).Error
}
