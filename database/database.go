package database

import (
	"fmt"
	"log"

	"course-marketplace/config"
	"course-marketplace/internal/domain/billing"
	"course-marketplace/internal/domain/catalog"
	"course-marketplace/internal/domain/learning"
	"course-marketplace/internal/domain/users"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

func InitDB() {
	if config.DB_URL == "" {
		log.Fatal("DB_URL not set")
	}

	db, err := gorm.Open(postgres.Open(config.DB_URL), &gorm.Config{})
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	DB = db

	if err := DB.Exec(`CREATE EXTENSION IF NOT EXISTS pgcrypto;`).Error; err != nil {
		log.Fatal("Failed to enable pgcrypto extension:", err)
	}

	if err := Migrate(DB); err != nil {
		log.Fatal("AutoMigrate error:", err)
	}

	fmt.Println("Connected and migrated successfully")
}

// Migrate runs AutoMigrate for all domain models plus the partial unique
// indexes gorm tags cannot express. Split out so tests can run it against
// their own database handle and hit the same storage-level constraints.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&users.User{},
		&users.VerificationToken{},

		&catalog.Course{},

		&billing.Payment{},
		&billing.Subscription{},
		&billing.WebhookLog{},

		&learning.Enrollment{},
		&learning.Certificate{},
	); err != nil {
		return err
	}

	// Storage-level source of truth for "a buyer never holds two live
	// purchases of one course". The handler pre-checks are an optimization;
	// this index is the guarantee under concurrent checkouts.
	if err := db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_payments_live_user_course
		ON payments (user_id, course_id)
		WHERE status = 'SUCCEEDED' AND course_id IS NOT NULL;`).Error; err != nil {
		return err
	}

	// Same pattern for "one active subscription per buyer": the checkout
	// builder's conflict response is a courtesy, this index holds under two
	// racing activations.
	return db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_subscriptions_live_user
		ON subscriptions (user_id)
		WHERE active;`).Error
}
