package stripewebhook

import (
	"encoding/json"

	"course-marketplace/internal/domain/users"

	"github.com/stripe/stripe-go/v75"
)

// handleCustomerCreated keeps the checkout builder's customer cache correct
// when a customer is created out-of-band (dashboard, API). Customers without
// a user_id in their metadata are not ours to track.
func (p *Processor) handleCustomerCreated(event *stripe.Event) error {
	var customer stripe.Customer
	if err := json.Unmarshal(event.Data.Raw, &customer); err != nil {
		return err
	}

	userID := userIDFromMetadata(customer.Metadata)
	if userID == 0 || customer.ID == "" {
		return nil
	}

	return p.db.Model(&users.User{}).
		Where("id = ?", userID).
		Update("stripe_customer_id", customer.ID).Error
}
