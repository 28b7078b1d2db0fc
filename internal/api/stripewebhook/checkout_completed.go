package stripewebhook

import (
	"errors"
	"time"

	"course-marketplace/internal/domain/billing"
	"course-marketplace/internal/domain/catalog"
	"course-marketplace/internal/domain/learning"
	"course-marketplace/internal/infra/stripeclient"

	"github.com/rs/zerolog/log"
	"github.com/stripe/stripe-go/v75"
	"gorm.io/gorm"
)

// handleCourseCheckoutCompleted reconciles a completed one-time purchase.
// Each course in the session is processed independently: one course failing
// (deleted from the catalog, write error) must not prevent siblings in the
// same event from getting their Payment and Enrollment.
func (p *Processor) handleCourseCheckoutCompleted(session *stripe.CheckoutSession) error {
	userID := userIDFromMetadata(session.Metadata)
	if userID == 0 {
		integrityWarn("checkout completed without user_id metadata", map[string]interface{}{
			"session_id": session.ID,
		})
		return nil
	}

	courseIDs := parseCourseIDs(session.Metadata["course_ids"])
	if len(courseIDs) == 0 {
		integrityWarn("checkout completed without course_ids metadata", map[string]interface{}{
			"session_id": session.ID,
			"user_id":    userID,
		})
		return nil
	}

	// The charged line-item amounts are authoritative; the catalog price may
	// have changed since purchase. Line items were created in course-id
	// order, so they are matched back by position.
	items, err := p.gateway.ListSessionLineItems(session.ID)
	if err != nil {
		integrityWarn("line items unavailable, falling back to catalog prices", map[string]interface{}{
			"session_id": session.ID,
			"err":        err.Error(),
		})
		items = nil
	}

	var paymentIntentID *string
	if session.PaymentIntent != nil && session.PaymentIntent.ID != "" {
		paymentIntentID = &session.PaymentIntent.ID
	}

	for i, courseID := range courseIDs {
		var item *stripeclient.SessionLineItem
		if i < len(items) {
			item = &items[i]
		}
		if err := p.reconcileCoursePurchase(session.ID, userID, courseID, item, paymentIntentID); err != nil {
			log.Error().Err(err).
				Str("session_id", session.ID).
				Uint("user_id", userID).
				Uint("course_id", courseID).
				Msg("failed to reconcile course purchase; continuing with remaining courses")
		}
	}
	return nil
}

func (p *Processor) reconcileCoursePurchase(sessionID string, userID, courseID uint, item *stripeclient.SessionLineItem, paymentIntentID *string) error {
	// Duplicate delivery of this session, or a prior live purchase from an
	// earlier session: idempotent no-op.
	var existing billing.Payment
	if err := p.db.
		Where("stripe_session_id = ? AND course_id = ?", sessionID, courseID).
		First(&existing).Error; err == nil {
		return nil
	}
	if err := p.db.
		Where("user_id = ? AND course_id = ? AND status = ?", userID, courseID, billing.PaymentStatusSucceeded).
		First(&existing).Error; err == nil {
		return nil
	}

	var course catalog.Course
	if err := p.db.First(&course, courseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			integrityWarn("purchased course no longer exists in catalog", map[string]interface{}{
				"session_id": sessionID,
				"user_id":    userID,
				"course_id":  courseID,
			})
			return nil
		}
		return err
	}

	amountCents := course.PriceCents
	currency := course.Currency
	if item != nil && item.AmountCents >= 0 {
		amountCents = item.AmountCents
		currency = item.Currency
	} else {
		integrityWarn("line-item amount unavailable, using current catalog price", map[string]interface{}{
			"session_id": sessionID,
			"course_id":  courseID,
		})
	}

	payment := billing.Payment{
		UserID:                userID,
		CourseID:              &course.ID,
		StripeSessionID:       sessionID,
		StripePaymentIntentID: paymentIntentID,
		AmountCents:           amountCents,
		Currency:              currency,
		Status:                billing.PaymentStatusSucceeded,
	}
	if err := p.db.Create(&payment).Error; err != nil {
		// A concurrent delivery may have won the unique index race; the
		// enrollment below is still ensured.
		log.Warn().Err(err).
			Str("session_id", sessionID).
			Uint("course_id", courseID).
			Msg("payment insert conflicted, treating as duplicate delivery")
	}

	// Enrollment creation is idempotent and independent of payment-row
	// ordering: a stale pre-existing enrollment and a fresh payment may
	// legitimately coexist under retried delivery.
	enrollment := learning.Enrollment{
		UserID:         userID,
		CourseID:       course.ID,
		LastAccessedAt: time.Now(),
	}
	if payment.ID != 0 {
		enrollment.PaymentID = &payment.ID
	}
	return p.db.
		Where(learning.Enrollment{UserID: userID, CourseID: course.ID}).
		FirstOrCreate(&enrollment).Error
}

// handleSubscriptionCheckoutCompleted activates a premium subscription. The
// provider subscription id is the dedupe key for redelivered events.
func (p *Processor) handleSubscriptionCheckoutCompleted(session *stripe.CheckoutSession) error {
	if session.Subscription == nil || session.Subscription.ID == "" {
		integrityWarn("subscription checkout completed without subscription id", map[string]interface{}{
			"session_id": session.ID,
		})
		return nil
	}
	subscriptionID := session.Subscription.ID

	userID := userIDFromMetadata(session.Metadata)
	if userID == 0 {
		integrityWarn("subscription checkout completed without user_id metadata", map[string]interface{}{
			"session_id":      session.ID,
			"subscription_id": subscriptionID,
		})
		return nil
	}

	var existing billing.Payment
	if err := p.db.
		Where("stripe_subscription_id = ?", subscriptionID).
		First(&existing).Error; err == nil {
		return nil // duplicate delivery
	}

	payment := billing.Payment{
		UserID:               userID,
		StripeSessionID:      session.ID,
		StripeSubscriptionID: &subscriptionID,
		AmountCents:          session.AmountTotal,
		Currency:             string(session.Currency),
		Status:               billing.PaymentStatusSucceeded,
	}
	if err := p.db.Create(&payment).Error; err != nil {
		// The unique index on stripe_subscription_id means a concurrent
		// delivery beat the pre-check; the subscription below is still
		// ensured.
		log.Warn().Err(err).
			Str("session_id", session.ID).
			Str("subscription_id", subscriptionID).
			Msg("subscription payment insert conflicted, treating as duplicate delivery")
	}

	now := time.Now()
	subscription := billing.Subscription{
		UserID:               userID,
		StripeSubscriptionID: subscriptionID,
		CurrentPeriodStart:   now,
		CurrentPeriodEnd:     now.AddDate(0, 1, 0), // one billing cycle out
		Active:               true,
	}
	if payment.ID != 0 {
		subscription.PaymentID = payment.ID
	}
	return p.db.
		Where(billing.Subscription{StripeSubscriptionID: subscriptionID}).
		FirstOrCreate(&subscription).Error
}
