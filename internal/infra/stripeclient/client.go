package stripeclient

import (
	"fmt"

	"github.com/stripe/stripe-go/v75"
	checkoutsession "github.com/stripe/stripe-go/v75/checkout/session"
	"github.com/stripe/stripe-go/v75/customer"
	"github.com/stripe/stripe-go/v75/refund"
	"github.com/stripe/stripe-go/v75/subscription"
)

// Client is the real Gateway backed by stripe-go.
type Client struct{}

// New sets the package-level Stripe key and returns a Client. The key is
// set once at startup rather than per request.
func New(secretKey string) *Client {
	stripe.Key = secretKey
	return &Client{}
}

func (cl *Client) CreateCheckoutSession(params CheckoutSessionParams) (*CheckoutSession, error) {
	p := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(params.Mode),
		SuccessURL: stripe.String(params.SuccessURL),
		CancelURL:  stripe.String(params.CancelURL),
	}
	if params.CustomerID != "" {
		p.Customer = stripe.String(params.CustomerID)
	}
	if params.ClientReferenceID != "" {
		p.ClientReferenceID = stripe.String(params.ClientReferenceID)
	}
	for k, v := range params.Metadata {
		p.AddMetadata(k, v)
	}

	for _, item := range params.LineItems {
		priceData := &stripe.CheckoutSessionLineItemPriceDataParams{
			Currency:   stripe.String(item.Currency),
			UnitAmount: stripe.Int64(item.AmountCents),
			ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
				Name: stripe.String(item.Name),
			},
		}
		if item.Description != "" {
			priceData.ProductData.Description = stripe.String(item.Description)
		}
		if item.ThumbnailURL != "" {
			priceData.ProductData.Images = []*string{stripe.String(item.ThumbnailURL)}
		}
		if params.Mode == ModeSubscription {
			priceData.Recurring = &stripe.CheckoutSessionLineItemPriceDataRecurringParams{
				Interval: stripe.String(params.RecurringInterval),
			}
		}
		p.LineItems = append(p.LineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: priceData,
			Quantity:  stripe.Int64(1),
		})
	}

	if params.Mode == ModeSubscription {
		p.SubscriptionData = &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: params.Metadata,
		}
	}

	s, err := checkoutsession.New(p)
	if err != nil {
		return nil, fmt.Errorf("create checkout session: %w", err)
	}
	return &CheckoutSession{ID: s.ID, URL: s.URL}, nil
}

func (cl *Client) CreateCustomer(email, name string, metadata map[string]string) (*Customer, error) {
	params := &stripe.CustomerParams{
		Email: stripe.String(email),
		Name:  stripe.String(name),
	}
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}
	cus, err := customer.New(params)
	if err != nil {
		return nil, fmt.Errorf("create customer: %w", err)
	}
	return &Customer{ID: cus.ID}, nil
}

func (cl *Client) RetrieveCustomer(customerID string) (*Customer, error) {
	cus, err := customer.Get(customerID, nil)
	if err != nil {
		return nil, fmt.Errorf("retrieve customer %s: %w", customerID, err)
	}
	return &Customer{ID: cus.ID, Deleted: cus.Deleted}, nil
}

func (cl *Client) ListSessionLineItems(sessionID string) ([]SessionLineItem, error) {
	params := &stripe.CheckoutSessionListLineItemsParams{
		Session: stripe.String(sessionID),
	}
	it := checkoutsession.ListLineItems(params)

	var items []SessionLineItem
	for it.Next() {
		li := it.LineItem()
		items = append(items, SessionLineItem{
			Description: li.Description,
			AmountCents: li.AmountTotal,
			Currency:    string(li.Currency),
		})
	}
	if err := it.Err(); err != nil {
		return nil, fmt.Errorf("list session line items: %w", err)
	}
	return items, nil
}

func (cl *Client) CreateRefund(paymentIntentID string, amountCents int64, reason string) (*RefundResult, error) {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(paymentIntentID),
		Amount:        stripe.Int64(amountCents),
	}
	if reason != "" {
		params.Reason = stripe.String(reason)
	}
	r, err := refund.New(params)
	if err != nil {
		return nil, fmt.Errorf("create refund: %w", err)
	}
	return &RefundResult{ID: r.ID, Status: string(r.Status)}, nil
}

func (cl *Client) CancelSubscriptionAtPeriodEnd(subscriptionID string) error {
	_, err := subscription.Update(subscriptionID, &stripe.SubscriptionParams{
		CancelAtPeriodEnd: stripe.Bool(true),
	})
	if err != nil {
		return fmt.Errorf("cancel subscription %s at period end: %w", subscriptionID, err)
	}
	return nil
}
