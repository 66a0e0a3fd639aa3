package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dukerupert/parkwatch"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRateLimiter_Allow(t *testing.T) {
	rl := NewRateLimiter(discardLogger(), RateLimitConfig{Rate: 0.001, Burst: 2})
	defer rl.Shutdown()

	assert.True(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.1"))
	assert.False(t, rl.Allow("10.0.0.1"))

	// Buckets are per key.
	assert.True(t, rl.Allow("10.0.0.2"))
}

func TestRateLimiter_Middleware(t *testing.T) {
	rl := NewRateLimiter(discardLogger(), RateLimitConfig{Rate: 0.001, Burst: 1})
	defer rl.Shutdown()

	e := echo.New()
	h := rl.Middleware()(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	newCtx := func() (echo.Context, *httptest.ResponseRecorder) {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
		req.RemoteAddr = "192.0.2.10:5555"
		rec := httptest.NewRecorder()
		return e.NewContext(req, rec), rec
	}

	c, rec := newCtx()
	require.NoError(t, h(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	c, rec = newCtx()
	err := h(c)
	assert.True(t, parkwatch.IsErrorCode(err, parkwatch.ERATELIMIT))
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
}

func TestRateLimiter_Cleanup(t *testing.T) {
	rl := NewRateLimiter(discardLogger(), RateLimitConfig{Rate: 1, Burst: 1, IdleTimeout: time.Minute})
	defer rl.Shutdown()

	rl.Allow("a")
	assert.Equal(t, 0, rl.cleanup(time.Now()))
	assert.Equal(t, 1, rl.cleanup(time.Now().Add(2*time.Minute)))
}

func TestRequestID(t *testing.T) {
	e := echo.New()
	var ctxID string
	h := RequestID(discardLogger())(func(c echo.Context) error {
		ctxID = parkwatch.RequestIDFromContext(c.Request().Context())
		assert.NotNil(t, GetRequestLogger(c))
		return nil
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	require.NoError(t, h(e.NewContext(req, rec)))
	assert.NotEmpty(t, ctxID)
	assert.Equal(t, ctxID, rec.Header().Get(echo.HeaderXRequestID))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderXRequestID, "camera-42")
	rec = httptest.NewRecorder()
	require.NoError(t, h(e.NewContext(req, rec)))
	assert.Equal(t, "camera-42", ctxID)
}

func TestMetrics_Middleware(t *testing.T) {
	m := NewMetrics()
	e := echo.New()
	e.Use(m.Middleware())
	e.GET("/api/fines/:id", func(c echo.Context) error {
		if c.Param("id") == "0" {
			return echo.NewHTTPError(http.StatusNotFound)
		}
		return c.String(http.StatusOK, "ok")
	})
	e.GET("/metrics", echo.WrapHandler(m.Handler()))

	for _, id := range []string{"1", "2", "0"} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/fines/"+id, nil))
	}

	m.RecordJob(parkwatch.JobTypeDistrictResolve, time.Millisecond, nil)
	m.RecordDistrictLookup(true)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `http_requests_total{method="GET",path="/api/fines/:id",status="200"} 2`))
	assert.True(t, strings.Contains(body, `http_requests_total{method="GET",path="/api/fines/:id",status="404"} 1`))
	assert.True(t, strings.Contains(body, `queue_jobs_total{job_type="district_resolve",status="success"} 1`))
	assert.True(t, strings.Contains(body, `district_resolutions_total{outcome="found"} 1`))
}
