package billing

import "time"

const (
	PaymentStatusPending   = "PENDING"
	PaymentStatusSucceeded = "SUCCEEDED"
	PaymentStatusFailed    = "FAILED"
	PaymentStatusRefunded  = "REFUNDED"
)

// Payment records one charged line item. Course purchases get one row per
// course in the checkout session; subscription activations get one row with
// a nil CourseID. Rows are created only by the webhook processor and moved
// to REFUNDED only by the refund handler.
//
// Idempotency anchors:
//   - (stripe_session_id, course_id) is unique, so redelivered
//     checkout.session.completed events cannot insert twice.
//   - stripe_subscription_id is unique (NULLs exempt), so a subscription
//     activation gets exactly one payment row even under concurrent
//     duplicate delivery, where course_id is NULL and the session index
//     cannot bite.
//   - a partial unique index on (user_id, course_id) WHERE
//     status = 'SUCCEEDED' (created in database.Migrate) is the
//     storage-level guarantee that a buyer never holds two live purchases
//     of one course.
type Payment struct {
	ID                    uint  `gorm:"primaryKey"`
	UserID                uint  `gorm:"index;not null"`
	CourseID              *uint `gorm:"uniqueIndex:idx_payments_session_course"`
	StripeSessionID       string `gorm:"uniqueIndex:idx_payments_session_course"`
	StripePaymentIntentID *string
	StripeSubscriptionID  *string `gorm:"uniqueIndex:idx_payments_subscription"`
	AmountCents           int64   `gorm:"not null"`
	Currency              string  `gorm:"type:varchar(10);not null;default:'usd'"`
	Status                string  `gorm:"type:varchar(20);not null;default:'PENDING'"`

	CreatedAt time.Time
	UpdatedAt time.Time
}
