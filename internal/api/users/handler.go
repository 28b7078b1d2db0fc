package users

import (
	"net/http"
	"time"

	"course-marketplace/database"
	"course-marketplace/internal/domain/billing"
	"course-marketplace/internal/domain/learning"
	"course-marketplace/internal/domain/users"

	"github.com/gin-gonic/gin"
)

// GET /me
func GetCurrentUser(c *gin.Context) {
	userID := c.GetUint("user_id")
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var user users.User
	if err := database.DB.First(&user, userID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	var sub billing.Subscription
	hasSubscription := database.DB.
		Where("user_id = ? AND active = ?", userID, true).
		First(&sub).Error == nil

	var enrollmentCount int64
	database.DB.Model(&learning.Enrollment{}).
		Where("user_id = ?", userID).
		Count(&enrollmentCount)

	resp := gin.H{
		"user": gin.H{
			"id":         user.ID,
			"email":      user.Email,
			"name":       user.Name,
			"role":       user.Role,
			"isVerified": user.IsVerified,
		},
		"enrollmentCount": enrollmentCount,
		"subscription":    gin.H{"active": false},
	}
	if hasSubscription {
		resp["subscription"] = gin.H{
			"active":            true,
			"cancelAtPeriodEnd": sub.CancelAtPeriodEnd,
			"currentPeriodEnd":  sub.CurrentPeriodEnd,
		}
	}

	c.JSON(http.StatusOK, resp)
}

// GET /verify
func VerifyEmail(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing token"})
		return
	}

	var t users.VerificationToken
	if err := database.DB.Where("token = ?", token).First(&t).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid or expired token"})
		return
	}
	if time.Now().After(t.ExpiresAt) {
		database.DB.Delete(&t)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid or expired token"})
		return
	}

	if err := database.DB.Model(&users.User{}).Where("id = ?", t.UserID).Update("is_verified", true).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to verify user"})
		return
	}

	database.DB.Delete(&t)

	c.JSON(http.StatusOK, gin.H{"message": "Email verified, you can sign in now"})
}
