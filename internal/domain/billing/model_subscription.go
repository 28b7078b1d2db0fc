package billing

import "time"

// Subscription mirrors the provider-side recurring subscription. Active is
// flipped by invoice and subscription lifecycle webhooks with a
// last-write-wins policy; no event ordering is reconstructed.
type Subscription struct {
	ID                   uint   `gorm:"primaryKey"`
	UserID               uint   `gorm:"index;not null"`
	PaymentID            uint   `gorm:"index"`
	StripeSubscriptionID string `gorm:"uniqueIndex;not null"`
	CurrentPeriodStart   time.Time
	CurrentPeriodEnd     time.Time
	Active               bool `gorm:"not null;default:false"`
	CancelAtPeriodEnd    bool `gorm:"not null;default:false"`

	CreatedAt time.Time
	UpdatedAt time.Time
}
