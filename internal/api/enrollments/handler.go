package enrollments

import (
	"net/http"
	"time"

	"course-marketplace/database"
	"course-marketplace/internal/domain/learning"

	"github.com/gin-gonic/gin"
)

// GET /enrollments
func ListEnrollments(c *gin.Context) {
	userID := c.GetUint("user_id")
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var enrollments []learning.Enrollment
	if err := database.DB.
		Where("user_id = ?", userID).
		Order("last_accessed_at DESC").
		Find(&enrollments).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load enrollments"})
		return
	}
	c.JSON(http.StatusOK, enrollments)
}

// PUT /enrollments/:courseId/progress
//
// Maintains the invariant that CompletedAt is set iff progress >= 100, and
// issues the certificate exactly once, the first time 100% is reached.
// Dropping below 100 afterwards clears CompletedAt but never revokes the
// certificate.
func UpdateProgress(c *gin.Context) {
	userID := c.GetUint("user_id")
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var body struct {
		Progress *int `json:"progress" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.Progress == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing progress"})
		return
	}
	progress := *body.Progress
	if progress < 0 || progress > 100 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "progress must be between 0 and 100"})
		return
	}

	var enrollment learning.Enrollment
	if err := database.DB.
		Where("user_id = ? AND course_id = ?", userID, c.Param("courseId")).
		First(&enrollment).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Enrollment not found"})
		return
	}

	now := time.Now()
	updates := map[string]interface{}{
		"progress":         progress,
		"last_accessed_at": now,
	}
	if progress >= 100 {
		if enrollment.CompletedAt == nil {
			updates["completed_at"] = now
		}
	} else {
		updates["completed_at"] = nil
	}

	if err := database.DB.Model(&enrollment).Updates(updates).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update progress"})
		return
	}

	if progress >= 100 {
		cert := learning.Certificate{
			UserID:   userID,
			CourseID: enrollment.CourseID,
			IssuedAt: now,
		}
		if err := database.DB.
			Where(learning.Certificate{UserID: userID, CourseID: enrollment.CourseID}).
			FirstOrCreate(&cert).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to issue certificate"})
			return
		}
	}

	database.DB.First(&enrollment, enrollment.ID)
	c.JSON(http.StatusOK, enrollment)
}

// GET /certificates
func ListCertificates(c *gin.Context) {
	userID := c.GetUint("user_id")
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var certificates []learning.Certificate
	if err := database.DB.
		Where("user_id = ?", userID).
		Order("issued_at DESC").
		Find(&certificates).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load certificates"})
		return
	}
	c.JSON(http.StatusOK, certificates)
}
