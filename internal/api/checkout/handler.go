package checkout

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"course-marketplace/internal/domain/billing"
	"course-marketplace/internal/domain/catalog"
	"course-marketplace/internal/domain/learning"
	"course-marketplace/internal/domain/pricing"
	"course-marketplace/internal/domain/users"
	"course-marketplace/internal/infra/stripeclient"
	"course-marketplace/internal/metrics"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Handler builds hosted checkout sessions. It mutates no purchase state:
// the purchase only becomes real when the asynchronous
// checkout.session.completed event is reconciled by the webhook processor.
type Handler struct {
	db      *gorm.DB
	gateway stripeclient.Gateway
	pricing pricing.Config
	appURL  string

	premiumPriceCents int64
	premiumCurrency   string
}

func NewHandler(db *gorm.DB, gateway stripeclient.Gateway, pricingCfg pricing.Config, appURL string, premiumPriceCents int64, premiumCurrency string) *Handler {
	return &Handler{
		db:                db,
		gateway:           gateway,
		pricing:           pricingCfg,
		appURL:            appURL,
		premiumPriceCents: premiumPriceCents,
		premiumCurrency:   premiumCurrency,
	}
}

// POST /checkout
func (h *Handler) CreateCheckoutSession(c *gin.Context) {
	var body struct {
		CourseIDs        []uint `json:"courseIds"`
		CouponPercentage *int   `json:"couponPercentage"`
		Source           string `json:"source"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || len(body.CourseIDs) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing or invalid courseIds"})
		return
	}
	if body.Source != "cart" && body.Source != "direct" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "source must be \"cart\" or \"direct\""})
		return
	}
	if body.CouponPercentage != nil && !pricing.ValidPercent(*body.CouponPercentage) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "couponPercentage must be between 0 and 100"})
		return
	}

	user, ok := h.requireUser(c)
	if !ok {
		return
	}

	// All referenced courses must exist and be published.
	courses := make([]catalog.Course, 0, len(body.CourseIDs))
	for _, id := range body.CourseIDs {
		var course catalog.Course
		if err := h.db.First(&course, id).Error; err != nil || !course.Published {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Course %d is not available for purchase", id)})
			return
		}
		courses = append(courses, course)
	}

	// Pre-check ownership. The partial unique index on succeeded payments is
	// the real guarantee under concurrent checkouts; this just gives the
	// buyer a readable conflict instead of a failed webhook later.
	for _, course := range courses {
		var count int64
		h.db.Model(&billing.Payment{}).
			Where("user_id = ? AND course_id = ? AND status = ?", user.ID, course.ID, billing.PaymentStatusSucceeded).
			Count(&count)
		if count == 0 {
			h.db.Model(&learning.Enrollment{}).
				Where("user_id = ? AND course_id = ?", user.ID, course.ID).
				Count(&count)
		}
		if count > 0 {
			c.JSON(http.StatusConflict, gin.H{"error": fmt.Sprintf("You already own %q", course.Title)})
			return
		}
	}

	customerID, err := h.ensureStripeCustomer(&user)
	if err != nil {
		log.Error().Err(err).Uint("user_id", user.ID).Msg("failed to ensure stripe customer")
		c.JSON(http.StatusBadGateway, gin.H{"error": "Payment provider unavailable, please try again"})
		return
	}

	courseIDStrs := make([]string, 0, len(courses))
	lineItems := make([]stripeclient.CheckoutLineItem, 0, len(courses))
	for _, course := range courses {
		quote := h.pricing.EffectivePrice(course.PriceCents, body.CouponPercentage)
		lineItems = append(lineItems, stripeclient.CheckoutLineItem{
			Name:         course.Title,
			Description:  course.Description,
			ThumbnailURL: course.ThumbnailURL,
			AmountCents:  quote.DiscountedCents,
			Currency:     course.Currency,
		})
		courseIDStrs = append(courseIDStrs, strconv.FormatUint(uint64(course.ID), 10))
	}

	session, err := h.gateway.CreateCheckoutSession(stripeclient.CheckoutSessionParams{
		Mode:       stripeclient.ModePayment,
		CustomerID: customerID,
		LineItems:  lineItems,
		Metadata: map[string]string{
			"user_id":         strconv.FormatUint(uint64(user.ID), 10),
			"course_ids":      strings.Join(courseIDStrs, ","),
			"purchase_source": body.Source,
		},
		ClientReferenceID: strconv.FormatUint(uint64(user.ID), 10),
		SuccessURL:        h.appURL + "/purchases/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:         h.appURL + "/cart?canceled=1",
	})
	if err != nil {
		log.Error().Err(err).Uint("user_id", user.ID).Msg("checkout session creation failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "Payment provider unavailable, please try again"})
		return
	}

	metrics.CheckoutSessions.WithLabelValues(stripeclient.ModePayment).Inc()
	c.JSON(http.StatusOK, gin.H{"sessionId": session.ID, "url": session.URL})
}

// POST /subscriptions/checkout
func (h *Handler) CreateSubscriptionCheckout(c *gin.Context) {
	var body struct {
		Plan string `json:"plan"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.Plan != "premium" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown plan"})
		return
	}

	user, ok := h.requireUser(c)
	if !ok {
		return
	}

	var active int64
	h.db.Model(&billing.Subscription{}).
		Where("user_id = ? AND active = ?", user.ID, true).
		Count(&active)
	if active > 0 {
		c.JSON(http.StatusConflict, gin.H{
			"error":                 "You already have an active subscription",
			"hasActiveSubscription": true,
		})
		return
	}

	customerID, err := h.ensureStripeCustomer(&user)
	if err != nil {
		log.Error().Err(err).Uint("user_id", user.ID).Msg("failed to ensure stripe customer")
		c.JSON(http.StatusBadGateway, gin.H{"error": "Payment provider unavailable, please try again"})
		return
	}

	session, err := h.gateway.CreateCheckoutSession(stripeclient.CheckoutSessionParams{
		Mode:       stripeclient.ModeSubscription,
		CustomerID: customerID,
		LineItems: []stripeclient.CheckoutLineItem{{
			Name:        "Premium subscription",
			Description: "Unlimited access to all premium courses",
			AmountCents: h.premiumPriceCents,
			Currency:    h.premiumCurrency,
		}},
		RecurringInterval: "month",
		Metadata: map[string]string{
			"user_id": strconv.FormatUint(uint64(user.ID), 10),
			"plan":    "premium",
		},
		ClientReferenceID: strconv.FormatUint(uint64(user.ID), 10),
		SuccessURL:        h.appURL + "/account?subscribed=1",
		CancelURL:         h.appURL + "/account?canceled=1",
	})
	if err != nil {
		log.Error().Err(err).Uint("user_id", user.ID).Msg("subscription checkout creation failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "Payment provider unavailable, please try again"})
		return
	}

	metrics.CheckoutSessions.WithLabelValues(stripeclient.ModeSubscription).Inc()
	c.JSON(http.StatusOK, gin.H{"sessionId": session.ID, "url": session.URL})
}

// GET /subscriptions/status
func (h *Handler) SubscriptionStatus(c *gin.Context) {
	userID := c.GetUint("user_id")
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var sub billing.Subscription
	if err := h.db.Where("user_id = ?", userID).
		Order("updated_at DESC").
		First(&sub).Error; err != nil {
		c.JSON(http.StatusOK, gin.H{"active": false})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"active":            sub.Active,
		"cancelAtPeriodEnd": sub.CancelAtPeriodEnd,
		"currentPeriodEnd":  sub.CurrentPeriodEnd,
	})
}

func (h *Handler) requireUser(c *gin.Context) (users.User, bool) {
	userID := c.GetUint("user_id")
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not identified"})
		return users.User{}, false
	}

	var user users.User
	if err := h.db.First(&user, userID).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found"})
		return users.User{}, false
	}
	if !user.IsVerified {
		c.JSON(http.StatusForbidden, gin.H{"error": "Please verify your email first"})
		return users.User{}, false
	}
	return user, true
}

// ensureStripeCustomer resolves the provider customer for a buyer,
// create-if-missing, verify-if-present. A stale stored id (customer deleted
// on the provider side) triggers recreation rather than a hard failure.
func (h *Handler) ensureStripeCustomer(user *users.User) (string, error) {
	if user.StripeCustomerID != nil && *user.StripeCustomerID != "" {
		cus, err := h.gateway.RetrieveCustomer(*user.StripeCustomerID)
		if err == nil && !cus.Deleted {
			return cus.ID, nil
		}
		log.Warn().Uint("user_id", user.ID).Str("customer_id", *user.StripeCustomerID).
			Msg("stored stripe customer is stale, recreating")
	}

	cus, err := h.gateway.CreateCustomer(user.Email, user.Name, map[string]string{
		"user_id": strconv.FormatUint(uint64(user.ID), 10),
	})
	if err != nil {
		return "", err
	}

	if err := h.db.Model(&users.User{}).
		Where("id = ?", user.ID).
		Update("stripe_customer_id", cus.ID).Error; err != nil {
		return "", err
	}
	user.StripeCustomerID = &cus.ID
	return cus.ID, nil
}
