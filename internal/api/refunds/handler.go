package refunds

import (
	"net/http"
	"strings"

	"course-marketplace/internal/domain/billing"
	"course-marketplace/internal/domain/learning"
	"course-marketplace/internal/infra/stripeclient"
	"course-marketplace/internal/metrics"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Handler processes full refunds of a buyer's own payments. The provider
// refund happens first; local state is rolled back second. A failure after
// the provider refund succeeded is the one genuinely dangerous case and is
// logged for manual reconciliation, never swallowed.
type Handler struct {
	db      *gorm.DB
	gateway stripeclient.Gateway
}

func NewHandler(db *gorm.DB, gateway stripeclient.Gateway) *Handler {
	return &Handler{db: db, gateway: gateway}
}

// POST /refunds
//
// The payment id is the primary input; amount/currency, when supplied, are
// cross-checked against the located payment rather than used to find it.
func (h *Handler) CreateRefund(c *gin.Context) {
	var body struct {
		PaymentID   uint    `json:"paymentId"`
		AmountCents *int64  `json:"amountCents"`
		Currency    *string `json:"currency"`
		Reason      string  `json:"reason"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.PaymentID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing or invalid paymentId"})
		return
	}

	userID := c.GetUint("user_id")
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var payment billing.Payment
	if err := h.db.
		Where("id = ? AND user_id = ? AND status = ?", body.PaymentID, userID, billing.PaymentStatusSucceeded).
		First(&payment).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No matching payment found"})
		return
	}

	if body.AmountCents != nil && *body.AmountCents != payment.AmountCents {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Amount does not match the payment"})
		return
	}
	if body.Currency != nil && !strings.EqualFold(*body.Currency, payment.Currency) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Currency does not match the payment"})
		return
	}

	if payment.StripePaymentIntentID == nil || *payment.StripePaymentIntentID == "" {
		c.JSON(http.StatusConflict, gin.H{"error": "Payment has no refundable charge yet, try again later"})
		return
	}

	reason := body.Reason
	if reason == "" {
		reason = "requested_by_customer"
	}

	// Provider refund first. A rejection leaves local state untouched.
	result, err := h.gateway.CreateRefund(*payment.StripePaymentIntentID, payment.AmountCents, reason)
	if err != nil {
		metrics.Refunds.WithLabelValues("provider_rejected").Inc()
		log.Error().Err(err).Uint("payment_id", payment.ID).Msg("provider refund failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "Refund could not be processed, please try again"})
		return
	}

	if err := h.applyLocalRefund(&payment); err != nil {
		// Money is already back with the buyer but local records still say
		// SUCCEEDED. Loud log for the operational reconciliation job.
		metrics.Refunds.WithLabelValues("local_state_failed").Inc()
		log.Error().Err(err).
			Uint("payment_id", payment.ID).
			Uint("user_id", userID).
			Str("refund_id", result.ID).
			Bool("manual_reconciliation_required", true).
			Msg("provider refund succeeded but local rollback failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Refund processed but account update failed, support has been notified"})
		return
	}

	metrics.Refunds.WithLabelValues("ok").Inc()
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"refund":  gin.H{"id": result.ID, "status": result.Status},
	})
}

func (h *Handler) applyLocalRefund(payment *billing.Payment) error {
	if err := h.db.Model(payment).
		Update("status", billing.PaymentStatusRefunded).Error; err != nil {
		return err
	}

	if payment.CourseID != nil {
		// The learner loses access immediately. Certificates already issued
		// stay: completion proof is permanent once earned.
		if err := h.db.
			Where("user_id = ? AND course_id = ?", payment.UserID, *payment.CourseID).
			Delete(&learning.Enrollment{}).Error; err != nil {
			return err
		}
	}

	if payment.StripeSubscriptionID != nil {
		if err := h.db.Model(&billing.Subscription{}).
			Where("stripe_subscription_id = ?", *payment.StripeSubscriptionID).
			Update("cancel_at_period_end", true).Error; err != nil {
			return err
		}
		// Best effort: the refund already succeeded and must not be rolled
		// back because a secondary provider call failed.
		if err := h.gateway.CancelSubscriptionAtPeriodEnd(*payment.StripeSubscriptionID); err != nil {
			log.Warn().Err(err).
				Str("subscription_id", *payment.StripeSubscriptionID).
				Msg("provider-side cancel-at-period-end failed after refund")
		}
	}
	return nil
}
