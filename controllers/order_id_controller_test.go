package controllers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heritageplates/backend/entity"
	"github.com/heritageplates/backend/middlewares"
	"github.com/heritageplates/backend/pkg/logger"
	"github.com/heritageplates/backend/pkg/testdb"
	"github.com/heritageplates/backend/repository"
	"github.com/heritageplates/backend/services"
)

func init() { gin.SetMode(gin.TestMode) }

func newEdgeRouter(t *testing.T, burst int) (*gin.Engine, *services.OrderIDService) {
	t.Helper()
	db := testdb.Open(t)
	log := logger.Discard()
	svc := services.NewOrderIDService(repository.NewOrderIDCounterRepository(db), log)
	svc.Now = func() time.Time { return time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC) }

	r := gin.New()
	r.Use(middlewares.CORSMiddleware(nil))
	limiter := middlewares.NewRateLimiter(0.001, burst, log)
	fn := r.Group("/functions/v1", middlewares.EdgeCORS(), limiter.Handler())
	fn.Any("/generate-order-id", NewOrderIDController(svc, log).Generate)
	return r, svc
}

func TestGenerateOrderIDPreflight(t *testing.T) {
	r, _ := newEdgeRouter(t, 5)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/functions/v1/generate-order-id", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, middlewares.EdgeCORSHeaders, w.Header().Get("Access-Control-Allow-Headers"))
}

func TestGenerateOrderIDResponse(t *testing.T) {
	r, _ := newEdgeRouter(t, 5)

	for i := 1; i <= 2; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/functions/v1/generate-order-id", nil))
		require.Equal(t, http.StatusOK, w.Code)

		var body map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Len(t, body, 3)
		assert.Equal(t, services.FormatOrderID(2025, int64(i)), body["order_id"])
		assert.EqualValues(t, 2025, body["year"])
		assert.EqualValues(t, i, body["sequence_number"])
		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	}
}

func TestGenerateOrderIDFailureShape(t *testing.T) {
	r, svc := newEdgeRouter(t, 5)
	require.NoError(t, svc.Repo.DB.Create(&entity.OrderIDCounter{Year: 2025, CurrentNumber: services.MaxOrderSequence}).Error)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/functions/v1/generate-order-id", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Contains(t, body["error"], "exhausted")
}

func TestGenerateOrderIDRateLimited(t *testing.T) {
	r, _ := newEdgeRouter(t, 2)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/functions/v1/generate-order-id", nil))
		codes = append(codes, w.Code)
		if w.Code == http.StatusTooManyRequests {
			assert.Equal(t, "1", w.Header().Get("Retry-After"))
			assert.JSONEq(t, `{"error":"rate limit exceeded"}`, w.Body.String())
		}
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}
