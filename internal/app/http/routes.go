package routes

import (
	authapi "course-marketplace/internal/api/auth"
	billingapi "course-marketplace/internal/api/billing"
	"course-marketplace/internal/api/checkout"
	coursesapi "course-marketplace/internal/api/courses"
	"course-marketplace/internal/api/enrollments"
	"course-marketplace/internal/api/refunds"
	"course-marketplace/internal/api/stripewebhook"
	usersapi "course-marketplace/internal/api/users"
	"course-marketplace/internal/app/http/middleware"
	"course-marketplace/internal/domain/pricing"

	"course-marketplace/config"
	"course-marketplace/database"
	"course-marketplace/internal/infra/stripeclient"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func RegisterRoutes(r *gin.Engine) {
	gateway := stripeclient.New(config.STRIPE_SECRET_KEY)

	pricingCfg := pricing.Config{
		GlobalDiscountActive:  config.DISCOUNT_ACTIVE,
		GlobalDiscountPercent: config.DISCOUNT_PERCENT,
	}

	checkoutHandler := checkout.NewHandler(
		database.DB, gateway, pricingCfg, config.APP_URL,
		config.PREMIUM_PRICE_CENTS, config.PREMIUM_CURRENCY,
	)
	webhookProcessor := stripewebhook.NewProcessor(database.DB, gateway, config.STRIPE_WEBHOOK_SECRET)
	refundHandler := refunds.NewHandler(database.DB, gateway)
	courseHandler := coursesapi.NewHandler(pricingCfg)

	// The webhook route must see the raw body; no sanitization middleware.
	r.POST("/webhooks/stripe", webhookProcessor.Handle)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	public := r.Group("/")
	public.Use(middleware.SanitizeInputMiddleware())

	public.POST("/register", authapi.Register)
	public.POST("/login", authapi.Login)
	public.GET("/verify", usersapi.VerifyEmail)
	public.GET("/courses", courseHandler.ListCourses)
	public.GET("/courses/:id", courseHandler.GetCourse)

	if config.GOOGLE_CLIENT_ID != "" {
		public.GET("/auth/google", authapi.GoogleStart)
		public.GET("/auth/google/callback", authapi.GoogleCallback)
	}

	// Authenticated
	auth := r.Group("/")
	auth.Use(middleware.AuthMiddleware())
	auth.GET("/me", usersapi.GetCurrentUser)
	auth.GET("/payments", billingapi.GetPaymentHistory)

	auth.POST("/checkout", checkoutHandler.CreateCheckoutSession)
	auth.POST("/subscriptions/checkout", checkoutHandler.CreateSubscriptionCheckout)
	auth.GET("/subscriptions/status", checkoutHandler.SubscriptionStatus)
	auth.POST("/refunds", refundHandler.CreateRefund)

	auth.GET("/enrollments", enrollments.ListEnrollments)
	auth.PUT("/enrollments/:courseId/progress", enrollments.UpdateProgress)
	auth.GET("/certificates", enrollments.ListCertificates)

	// Instructor routes
	instructor := auth.Group("/")
	instructor.Use(middleware.RequireRole("instructor"))
	instructor.POST("/courses", courseHandler.CreateCourse)
	instructor.POST("/courses/:id/publish", courseHandler.SetPublished(true))
	instructor.POST("/courses/:id/unpublish", courseHandler.SetPublished(false))

	// Premium subscribers
	premium := auth.Group("/")
	premium.Use(middleware.RequireActiveSubscription())
	premium.GET("/premium/courses", courseHandler.ListPremiumCourses)
}
