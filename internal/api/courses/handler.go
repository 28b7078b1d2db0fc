package courses

import (
	"net/http"

	"course-marketplace/database"
	"course-marketplace/internal/domain/catalog"
	"course-marketplace/internal/domain/pricing"

	"github.com/gin-gonic/gin"
)

// Handler serves the course catalog. The pricing config is injected so the
// displayed discount always matches what checkout will actually charge.
type Handler struct {
	pricing pricing.Config
}

func NewHandler(pricingCfg pricing.Config) *Handler {
	return &Handler{pricing: pricingCfg}
}

type courseDTO struct {
	ID              uint    `json:"id"`
	Title           string  `json:"title"`
	Description     string  `json:"description"`
	ThumbnailURL    string  `json:"thumbnailUrl"`
	Currency        string  `json:"currency"`
	Premium         bool    `json:"premium"`
	Published       bool    `json:"published"`
	OriginalPrice   float64 `json:"originalPrice"`
	DiscountedPrice float64 `json:"discountedPrice"`
	AppliedPercent  int     `json:"appliedPercentage"`
	ShowDiscount    bool    `json:"showDiscount"`
}

func (h *Handler) toDTO(course catalog.Course) courseDTO {
	quote := h.pricing.EffectivePrice(course.PriceCents, nil)
	return courseDTO{
		ID:              course.ID,
		Title:           course.Title,
		Description:     course.Description,
		ThumbnailURL:    course.ThumbnailURL,
		Currency:        course.Currency,
		Premium:         course.Premium,
		Published:       course.Published,
		OriginalPrice:   pricing.Major(quote.OriginalCents),
		DiscountedPrice: pricing.Major(quote.DiscountedCents),
		AppliedPercent:  quote.AppliedPercent,
		ShowDiscount:    quote.ShowDiscount,
	}
}

// GET /courses
func (h *Handler) ListCourses(c *gin.Context) {
	var courses []catalog.Course
	if err := database.DB.
		Where("published = ? AND premium = ?", true, false).
		Order("created_at DESC").
		Find(&courses).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load courses"})
		return
	}

	out := make([]courseDTO, 0, len(courses))
	for _, course := range courses {
		out = append(out, h.toDTO(course))
	}
	c.JSON(http.StatusOK, out)
}

// GET /premium/courses
func (h *Handler) ListPremiumCourses(c *gin.Context) {
	var courses []catalog.Course
	if err := database.DB.
		Where("published = ? AND premium = ?", true, true).
		Order("created_at DESC").
		Find(&courses).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load courses"})
		return
	}

	out := make([]courseDTO, 0, len(courses))
	for _, course := range courses {
		out = append(out, h.toDTO(course))
	}
	c.JSON(http.StatusOK, out)
}

// GET /courses/:id
func (h *Handler) GetCourse(c *gin.Context) {
	var course catalog.Course
	if err := database.DB.First(&course, c.Param("id")).Error; err != nil || !course.Published {
		c.JSON(http.StatusNotFound, gin.H{"error": "Course not found"})
		return
	}
	c.JSON(http.StatusOK, h.toDTO(course))
}

// POST /courses (instructor)
func (h *Handler) CreateCourse(c *gin.Context) {
	var body struct {
		Title        string `json:"title" binding:"required"`
		Description  string `json:"description"`
		ThumbnailURL string `json:"thumbnailUrl"`
		PriceCents   int64  `json:"priceCents" binding:"required"`
		Currency     string `json:"currency"`
		Premium      bool   `json:"premium"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.PriceCents < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid course payload"})
		return
	}

	currency := body.Currency
	if currency == "" {
		currency = "usd"
	}

	course := catalog.Course{
		Title:        body.Title,
		Description:  body.Description,
		ThumbnailURL: body.ThumbnailURL,
		PriceCents:   body.PriceCents,
		Currency:     currency,
		Premium:      body.Premium,
		InstructorID: c.GetUint("user_id"),
	}
	if err := database.DB.Create(&course).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create course"})
		return
	}
	c.JSON(http.StatusCreated, h.toDTO(course))
}

// POST /courses/:id/publish and /courses/:id/unpublish
func (h *Handler) SetPublished(published bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		var course catalog.Course
		if err := database.DB.First(&course, c.Param("id")).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Course not found"})
			return
		}
		if course.InstructorID != c.GetUint("user_id") {
			c.JSON(http.StatusForbidden, gin.H{"error": "Not your course"})
			return
		}
		if err := database.DB.Model(&course).Update("published", published).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update course"})
			return
		}
		c.JSON(http.StatusOK, h.toDTO(course))
	}
}
