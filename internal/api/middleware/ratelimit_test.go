package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/SufyanAli56/Task-Manager/internal/pkg/metrics"
	"github.com/SufyanAli56/Task-Manager/internal/pkg/ratelimit"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	metrics.InitMetrics(1)
	os.Exit(m.Run())
}

func newLimitedRouter(limiter *ratelimit.Limiter) *gin.Engine {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := gin.New()
	r.Use(RateLimit(limiter, logger))
	r.POST("/login", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return r
}

func postLogin(r http.Handler) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req.RemoteAddr = "10.0.0.1:12345"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimitRejectsBeyondBurst(t *testing.T) {
	s := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	limiter := ratelimit.NewRedisLimiter(rdb, logger, "test:mw:", 1, 2)
	r := newLimitedRouter(limiter)

	for i := 0; i < 2; i++ {
		if w := postLogin(r); w.Code != http.StatusOK {
			t.Fatalf("request %d within burst: expected 200, got %d", i, w.Code)
		}
	}

	w := postLogin(r)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 beyond burst, got %d", w.Code)
	}
}

func TestRateLimitFailsOpenOnRedisError(t *testing.T) {
	s := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	limiter := ratelimit.NewRedisLimiter(rdb, logger, "test:mw:", 1, 1)
	r := newLimitedRouter(limiter)

	s.Close()

	// Redis 宕机时放行请求
	if w := postLogin(r); w.Code != http.StatusOK {
		t.Errorf("expected fail-open 200, got %d", w.Code)
	}
}
