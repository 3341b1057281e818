package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/store-locator/internal/config"
)

func limiterConfig(capacity int) config.RateLimitConfig {
	return config.RateLimitConfig{
		Enabled:        true,
		Capacity:       capacity,
		RefillTokens:   1,
		RefillInterval: time.Minute,
		TTL:            10 * time.Minute,
		KeyStrategy:    "ip_route",
		Prefix:         "rl",
	}
}

func hitOnce(e *echo.Echo) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/search", nil)
	req.RemoteAddr = "203.0.113.7:4711"
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func newLimitedEcho(t *testing.T, capacity int) *echo.Echo {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	e := echo.New()
	e.POST("/search", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	}, NewTokenBucket(limiterConfig(capacity), rdb))
	return e
}

func TestTokenBucketAllowsUnderCapacity(t *testing.T) {
	e := newLimitedEcho(t, 3)

	for i := 0; i < 3; i++ {
		rec := hitOnce(e)
		require.Equal(t, http.StatusOK, rec.Code, "request %d should pass", i+1)
	}
}

func TestTokenBucketRejectsWhenExhausted(t *testing.T) {
	e := newLimitedEcho(t, 2)

	hitOnce(e)
	hitOnce(e)
	rec := hitOnce(e)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "rate limit exceeded")
}

func TestTokenBucketSetsHeaders(t *testing.T) {
	e := newLimitedEcho(t, 5)

	rec := hitOnce(e)
	assert.Equal(t, "5", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "4", rec.Header().Get("X-RateLimit-Remaining"))
}

func TestTokenBucketDisabledPassesThrough(t *testing.T) {
	cfg := limiterConfig(1)
	cfg.Enabled = false

	e := echo.New()
	e.POST("/search", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	}, NewTokenBucket(cfg, nil))

	for i := 0; i < 5; i++ {
		rec := hitOnce(e)
		require.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestBuildRateKeyStrategies(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/stores", nil)
	req.RemoteAddr = "198.51.100.1:9999"
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/stores")

	cfg := limiterConfig(1)

	cfg.KeyStrategy = "ip"
	assert.Equal(t, "rl:ip:198.51.100.1", buildRateKey(cfg, c))

	cfg.KeyStrategy = "route"
	assert.Equal(t, "rl:route:GET /stores", buildRateKey(cfg, c))

	cfg.KeyStrategy = "ip_user_route"
	assert.Equal(t, "rl:ip:198.51.100.1:user:anon:route:GET /stores", buildRateKey(cfg, c))
}
