package database

import (
	"testing"
	"time"

	"course-marketplace/internal/domain/billing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, Migrate(db))
	return db
}

func succeededPayment(userID uint, courseID *uint, sessionID string, subscriptionID *string) billing.Payment {
	return billing.Payment{
		UserID:               userID,
		CourseID:             courseID,
		StripeSessionID:      sessionID,
		StripeSubscriptionID: subscriptionID,
		AmountCents:          1999,
		Currency:             "usd",
		Status:               billing.PaymentStatusSucceeded,
	}
}

// The pre-checks in the webhook processor are racy by nature; these indexes
// are what actually holds under concurrent duplicate delivery.

func TestOnePaymentPerSubscriptionActivation(t *testing.T) {
	db := openTestDB(t)
	subID := "sub_race"

	first := succeededPayment(1, nil, "cs_first", &subID)
	require.NoError(t, db.Create(&first).Error)

	second := succeededPayment(1, nil, "cs_second", &subID)
	assert.Error(t, db.Create(&second).Error)

	var count int64
	db.Model(&billing.Payment{}).Where("stripe_subscription_id = ?", subID).Count(&count)
	assert.Equal(t, int64(1), count)

	// Course payments carry no subscription id; any number of them coexist.
	courseA, courseB := uint(7), uint(8)
	require.NoError(t, db.Create(&billing.Payment{
		UserID: 1, CourseID: &courseA, StripeSessionID: "cs_a",
		AmountCents: 3000, Currency: "usd", Status: billing.PaymentStatusSucceeded,
	}).Error)
	require.NoError(t, db.Create(&billing.Payment{
		UserID: 1, CourseID: &courseB, StripeSessionID: "cs_b",
		AmountCents: 3000, Currency: "usd", Status: billing.PaymentStatusSucceeded,
	}).Error)
}

func TestOneLivePurchasePerCourse(t *testing.T) {
	db := openTestDB(t)
	courseID := uint(7)

	require.NoError(t, db.Create(&billing.Payment{
		UserID: 1, CourseID: &courseID, StripeSessionID: "cs_one",
		AmountCents: 3000, Currency: "usd", Status: billing.PaymentStatusSucceeded,
	}).Error)

	dup := billing.Payment{
		UserID: 1, CourseID: &courseID, StripeSessionID: "cs_two",
		AmountCents: 3000, Currency: "usd", Status: billing.PaymentStatusSucceeded,
	}
	assert.Error(t, db.Create(&dup).Error)

	// A refunded purchase does not block buying the course again.
	require.NoError(t, db.Model(&billing.Payment{}).
		Where("stripe_session_id = ?", "cs_one").
		Update("status", billing.PaymentStatusRefunded).Error)
	fresh := billing.Payment{
		UserID: 1, CourseID: &courseID, StripeSessionID: "cs_three",
		AmountCents: 3000, Currency: "usd", Status: billing.PaymentStatusSucceeded,
	}
	assert.NoError(t, db.Create(&fresh).Error)
}

func TestOneActiveSubscriptionPerBuyer(t *testing.T) {
	db := openTestDB(t)
	now := time.Now()

	require.NoError(t, db.Create(&billing.Subscription{
		UserID:               1,
		StripeSubscriptionID: "sub_one",
		CurrentPeriodStart:   now,
		CurrentPeriodEnd:     now.AddDate(0, 1, 0),
		Active:               true,
	}).Error)

	second := billing.Subscription{
		UserID:               1,
		StripeSubscriptionID: "sub_two",
		CurrentPeriodStart:   now,
		CurrentPeriodEnd:     now.AddDate(0, 1, 0),
		Active:               true,
	}
	assert.Error(t, db.Create(&second).Error)

	// A lapsed subscription does not block resubscribing.
	require.NoError(t, db.Model(&billing.Subscription{}).
		Where("stripe_subscription_id = ?", "sub_one").
		Update("active", false).Error)
	assert.NoError(t, db.Create(&second).Error)
}
