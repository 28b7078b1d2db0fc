// Package stripeclient wraps the Stripe SDK calls the payment core depends
// on behind a small interface so checkout, webhook and refund logic can be
// exercised against fakes.
package stripeclient

// CheckoutLineItem describes one priced entry on the hosted checkout page.
// AmountCents is authoritative; it has already been through the discount
// calculator.
type CheckoutLineItem struct {
	Name         string
	Description  string
	ThumbnailURL string
	AmountCents  int64
	Currency     string
}

const (
	ModePayment      = "payment"
	ModeSubscription = "subscription"
)

// CheckoutSessionParams is everything needed to request a hosted checkout
// session. Metadata is the only channel tying the later asynchronous event
// back to domain entities, so callers must encode buyer and course ids here.
type CheckoutSessionParams struct {
	Mode              string
	CustomerID        string
	LineItems         []CheckoutLineItem
	RecurringInterval string // subscription mode only, e.g. "month"
	Metadata          map[string]string
	ClientReferenceID string
	SuccessURL        string
	CancelURL         string
}

type CheckoutSession struct {
	ID  string
	URL string
}

// SessionLineItem is the provider's record of what was actually charged for
// one line of a completed session.
type SessionLineItem struct {
	Description string
	AmountCents int64
	Currency    string
}

type Customer struct {
	ID      string
	Deleted bool
}

type RefundResult struct {
	ID     string
	Status string
}

// Gateway is the payment-provider contract consumed by the core handlers.
type Gateway interface {
	CreateCheckoutSession(params CheckoutSessionParams) (*CheckoutSession, error)
	CreateCustomer(email, name string, metadata map[string]string) (*Customer, error)
	RetrieveCustomer(customerID string) (*Customer, error)
	ListSessionLineItems(sessionID string) ([]SessionLineItem, error)
	CreateRefund(paymentIntentID string, amountCents int64, reason string) (*RefundResult, error)
	CancelSubscriptionAtPeriodEnd(subscriptionID string) error
}
