package learning

import "time"

// Certificate is permanent proof of completion. Issued once, the first time
// an enrollment reaches 100% progress, and never deleted afterwards: not
// when progress later drops, not when the purchase is refunded.
type Certificate struct {
	ID       uint `gorm:"primaryKey"`
	UserID   uint `gorm:"not null;uniqueIndex:idx_certificates_user_course"`
	CourseID uint `gorm:"not null;uniqueIndex:idx_certificates_user_course"`
	IssuedAt time.Time

	CreatedAt time.Time
}
