package learning

import "time"

// Enrollment tracks a buyer's access to a course and their progress through
// it. Invariant maintained by every writer: CompletedAt is set iff
// Progress >= 100. The refund handler deletes the row outright; certificates
// survive that deletion.
type Enrollment struct {
	ID             uint `gorm:"primaryKey"`
	UserID         uint `gorm:"not null;uniqueIndex:idx_enrollments_user_course"`
	CourseID       uint `gorm:"not null;uniqueIndex:idx_enrollments_user_course"`
	Progress       int  `gorm:"not null;default:0"` // 0-100
	CompletedAt    *time.Time
	LastAccessedAt time.Time
	PaymentID      *uint

	CreatedAt time.Time
	UpdatedAt time.Time
}
