package billing

import "time"

// WebhookLog is the append-only audit trail of every signature-verified
// provider event. It is written before dispatch and never read by business
// logic; it exists for replay diagnosis when reconciliation goes wrong.
type WebhookLog struct {
	ID         uint   `gorm:"primaryKey"`
	Provider   string `gorm:"type:varchar(30);not null"`
	EventID    string `gorm:"index"`
	EventType  string `gorm:"index"`
	Payload    string `gorm:"type:text"`
	ReceivedAt time.Time
}
