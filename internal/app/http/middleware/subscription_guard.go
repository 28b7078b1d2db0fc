package middleware

import (
	"net/http"
	"time"

	"course-marketplace/database"
	"course-marketplace/internal/domain/billing"

	"github.com/gin-gonic/gin"
)

// RequireActiveSubscription gates premium-only routes on a live subscription
// row. The Active flag is maintained by the webhook processor; the period
// end check catches the window between expiry and the provider's
// subscription.deleted delivery.
func RequireActiveSubscription() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("user_id")
		if userID == 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		var sub billing.Subscription
		if err := database.DB.
			Where("user_id = ? AND active = ?", userID, true).
			First(&sub).Error; err != nil {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "An active premium subscription is required",
			})
			return
		}

		if time.Now().After(sub.CurrentPeriodEnd) {
			c.AbortWithStatusJSON(http.StatusPaymentRequired, gin.H{
				"error": "Your subscription has expired",
			})
			return
		}

		c.Next()
	}
}
