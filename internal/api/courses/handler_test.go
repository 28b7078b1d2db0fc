package courses

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"course-marketplace/database"
	"course-marketplace/internal/domain/catalog"
	"course-marketplace/internal/domain/pricing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.Migrate(db))

	prev := database.DB
	database.DB = db
	t.Cleanup(func() { database.DB = prev })
	return db
}

func newRouter(h *Handler, userID uint) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if userID != 0 {
			c.Set("user_id", userID)
		}
		c.Next()
	})
	r.GET("/courses", h.ListCourses)
	r.GET("/courses/:id", h.GetCourse)
	r.GET("/premium/courses", h.ListPremiumCourses)
	r.POST("/courses", h.CreateCourse)
	r.POST("/courses/:id/publish", h.SetPublished(true))
	r.POST("/courses/:id/unpublish", h.SetPublished(false))
	return r
}

func seedCourse(t *testing.T, db *gorm.DB, title string, priceCents int64, published, premium bool) catalog.Course {
	t.Helper()
	course := catalog.Course{
		Title:      title,
		PriceCents: priceCents,
		Currency:   "usd",
		Published:  published,
		Premium:    premium,
	}
	require.NoError(t, db.Create(&course).Error)
	return course
}

func TestListCoursesAppliesGlobalDiscount(t *testing.T) {
	db := setupTestDB(t)
	seedCourse(t, db, "Go Basics", 5000, true, false)
	seedCourse(t, db, "Draft", 5000, false, false)
	seedCourse(t, db, "Premium Deep Dive", 9900, true, true)
	h := NewHandler(pricing.Config{GlobalDiscountActive: true, GlobalDiscountPercent: 40})
	r := newRouter(h, 0)

	req := httptest.NewRequest(http.MethodGet, "/courses", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var rows []courseDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rows))
	require.Len(t, rows, 1, "drafts and premium courses stay off the public list")
	assert.Equal(t, "Go Basics", rows[0].Title)
	assert.Equal(t, 50.0, rows[0].OriginalPrice)
	assert.Equal(t, 30.0, rows[0].DiscountedPrice)
	assert.Equal(t, 40, rows[0].AppliedPercent)
	assert.True(t, rows[0].ShowDiscount)
}

func TestListCoursesWithoutDiscount(t *testing.T) {
	db := setupTestDB(t)
	seedCourse(t, db, "Go Basics", 5000, true, false)
	h := NewHandler(pricing.Config{})
	r := newRouter(h, 0)

	req := httptest.NewRequest(http.MethodGet, "/courses", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var rows []courseDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, rows[0].OriginalPrice, rows[0].DiscountedPrice)
	assert.False(t, rows[0].ShowDiscount)
}

func TestListPremiumCourses(t *testing.T) {
	db := setupTestDB(t)
	seedCourse(t, db, "Go Basics", 5000, true, false)
	seedCourse(t, db, "Premium Deep Dive", 9900, true, true)
	h := NewHandler(pricing.Config{})
	r := newRouter(h, 0)

	req := httptest.NewRequest(http.MethodGet, "/premium/courses", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var rows []courseDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "Premium Deep Dive", rows[0].Title)
}

func TestGetCourseHidesDrafts(t *testing.T) {
	db := setupTestDB(t)
	published := seedCourse(t, db, "Go Basics", 5000, true, false)
	draft := seedCourse(t, db, "Draft", 5000, false, false)
	h := NewHandler(pricing.Config{})
	r := newRouter(h, 0)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, fmt.Sprintf("/courses/%d", published.ID), nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, fmt.Sprintf("/courses/%d", draft.ID), nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateAndPublishCourse(t *testing.T) {
	db := setupTestDB(t)
	h := NewHandler(pricing.Config{})
	r := newRouter(h, 10)

	raw, _ := json.Marshal(gin.H{"title": "New Course", "priceCents": 2500})
	req := httptest.NewRequest(http.MethodPost, "/courses", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code)

	var created courseDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.False(t, created.Published, "new courses start as drafts")
	assert.Equal(t, "usd", created.Currency)

	var course catalog.Course
	require.NoError(t, db.First(&course, created.ID).Error)
	assert.Equal(t, uint(10), course.InstructorID)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, fmt.Sprintf("/courses/%d/publish", created.ID), nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, db.First(&course, created.ID).Error)
	assert.True(t, course.Published)

	// Another instructor cannot unpublish it.
	other := newRouter(h, 11)
	w = httptest.NewRecorder()
	other.ServeHTTP(w, httptest.NewRequest(http.MethodPost, fmt.Sprintf("/courses/%d/unpublish", created.ID), nil))
	assert.Equal(t, http.StatusForbidden, w.Code)
}
