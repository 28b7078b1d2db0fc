package catalog

import "time"

// Course is the purchasable catalog entry. PriceCents is the current list
// price; payment records snapshot the actually-charged amount at purchase
// time, so editing a course price never rewrites history.
type Course struct {
	ID           uint `gorm:"primaryKey"`
	Title        string
	Description  string
	ThumbnailURL string
	PriceCents   int64  `gorm:"not null"`
	Currency     string `gorm:"type:varchar(10);not null;default:'usd'"`
	Published    bool   `gorm:"not null;default:false"`
	Premium      bool   `gorm:"not null;default:false"`
	InstructorID uint   `gorm:"index;not null"`

	CreatedAt time.Time
	UpdatedAt time.Time
}
