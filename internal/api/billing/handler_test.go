package billing

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"course-marketplace/database"
	"course-marketplace/internal/domain/billing"

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
		if userID != 0 {
			c.Set("user_id", userID)
		}
		c.Next()
	})
	r.GET("/payments", GetPaymentHistory)
	return r
}

func TestGetPaymentHistoryScopedToUser(t *testing.T) {
	db := setupTestDB(t)
	courseID := uint(7)
	require.NoError(t, db.Create(&billing.Payment{
		UserID: 1, CourseID: &courseID, StripeSessionID: "cs_mine",
		AmountCents: 3000, Currency: "usd", Status: billing.PaymentStatusSucceeded,
	}).Error)
	require.NoError(t, db.Create(&billing.Payment{
		UserID: 1, CourseID: nil, StripeSessionID: "cs_mine_refunded",
		AmountCents: 1999, Currency: "usd", Status: billing.PaymentStatusRefunded,
	}).Error)
	require.NoError(t, db.Create(&billing.Payment{
		UserID: 2, CourseID: &courseID, StripeSessionID: "cs_theirs",
		AmountCents: 3000, Currency: "usd", Status: billing.PaymentStatusSucceeded,
	}).Error)
	r := newRouter(1)

	req := httptest.NewRequest(http.MethodGet, "/payments", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var rows []billing.Payment
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rows))
	require.Len(t, rows, 2, "refunded history stays visible, other buyers' rows do not")
	for _, row := range rows {
		assert.Equal(t, uint(1), row.UserID)
	}
}

func TestGetPaymentHistoryRequiresUser(t *testing.T) {
	setupTestDB(t)
	r := newRouter(0)

	req := httptest.NewRequest(http.MethodGet, "/payments", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
