package enrollments

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"course-marketplace/database"
	"course-marketplace/internal/domain/learning"

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

func newRouter(userID uint) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("user_id", userID)
		c.Next()
	})
	r.GET("/enrollments", ListEnrollments)
	r.PUT("/enrollments/:courseId/progress", UpdateProgress)
	r.GET("/certificates", ListCertificates)
	return r
}

func putProgress(t *testing.T, r *gin.Engine, courseID uint, body gin.H) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPut, fmt.Sprintf("/enrollments/%d/progress", courseID), bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func seedEnrollment(t *testing.T, db *gorm.DB, userID, courseID uint) learning.Enrollment {
	t.Helper()
	e := learning.Enrollment{UserID: userID, CourseID: courseID, LastAccessedAt: time.Now()}
	require.NoError(t, db.Create(&e).Error)
	return e
}

func TestUpdateProgressCompletesAndIssuesCertificate(t *testing.T) {
	db := setupTestDB(t)
	seedEnrollment(t, db, 1, 7)
	r := newRouter(1)

	w := putProgress(t, r, 7, gin.H{"progress": 55})
	require.Equal(t, http.StatusOK, w.Code)

	var e learning.Enrollment
	require.NoError(t, db.Where("user_id = ? AND course_id = ?", 1, 7).First(&e).Error)
	assert.Equal(t, 55, e.Progress)
	assert.Nil(t, e.CompletedAt)

	var certs int64
	db.Model(&learning.Certificate{}).Count(&certs)
	assert.Zero(t, certs)

	w = putProgress(t, r, 7, gin.H{"progress": 100})
	require.Equal(t, http.StatusOK, w.Code)

	require.NoError(t, db.Where("user_id = ? AND course_id = ?", 1, 7).First(&e).Error)
	require.NotNil(t, e.CompletedAt)

	db.Model(&learning.Certificate{}).Count(&certs)
	assert.Equal(t, int64(1), certs)
}

func TestUpdateProgressCertificateSurvivesRegression(t *testing.T) {
	db := setupTestDB(t)
	seedEnrollment(t, db, 1, 7)
	r := newRouter(1)

	require.Equal(t, http.StatusOK, putProgress(t, r, 7, gin.H{"progress": 100}).Code)

	// The learner rewatches a section: completion timestamp clears, the
	// certificate stays.
	require.Equal(t, http.StatusOK, putProgress(t, r, 7, gin.H{"progress": 80}).Code)

	var e learning.Enrollment
	require.NoError(t, db.Where("user_id = ? AND course_id = ?", 1, 7).First(&e).Error)
	assert.Equal(t, 80, e.Progress)
	assert.Nil(t, e.CompletedAt)

	var certs int64
	db.Model(&learning.Certificate{}).Count(&certs)
	assert.Equal(t, int64(1), certs)

	// Completing again does not mint a second certificate.
	require.Equal(t, http.StatusOK, putProgress(t, r, 7, gin.H{"progress": 100}).Code)
	db.Model(&learning.Certificate{}).Count(&certs)
	assert.Equal(t, int64(1), certs)
}

func TestUpdateProgressValidation(t *testing.T) {
	db := setupTestDB(t)
	seedEnrollment(t, db, 1, 7)
	r := newRouter(1)

	assert.Equal(t, http.StatusBadRequest, putProgress(t, r, 7, gin.H{"progress": -1}).Code)
	assert.Equal(t, http.StatusBadRequest, putProgress(t, r, 7, gin.H{"progress": 101}).Code)
	assert.Equal(t, http.StatusBadRequest, putProgress(t, r, 7, gin.H{}).Code)

	var e learning.Enrollment
	require.NoError(t, db.Where("user_id = ? AND course_id = ?", 1, 7).First(&e).Error)
	assert.Zero(t, e.Progress)
}

func TestUpdateProgressUnknownEnrollment(t *testing.T) {
	setupTestDB(t)
	r := newRouter(1)
	assert.Equal(t, http.StatusNotFound, putProgress(t, r, 99, gin.H{"progress": 10}).Code)
}

func TestListEnrollmentsScopedToUser(t *testing.T) {
	db := setupTestDB(t)
	seedEnrollment(t, db, 1, 7)
	seedEnrollment(t, db, 2, 7)
	r := newRouter(1)

	req := httptest.NewRequest(http.MethodGet, "/enrollments", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var rows []learning.Enrollment
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, uint(1), rows[0].UserID)
}

func TestListCertificates(t *testing.T) {
	db := setupTestDB(t)
	require.NoError(t, db.Create(&learning.Certificate{UserID: 1, CourseID: 7, IssuedAt: time.Now()}).Error)
	require.NoError(t, db.Create(&learning.Certificate{UserID: 2, CourseID: 7, IssuedAt: time.Now()}).Error)
	r := newRouter(1)

	req := httptest.NewRequest(http.MethodGet, "/certificates", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var rows []learning.Certificate
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, uint(7), rows[0].CourseID)
}
