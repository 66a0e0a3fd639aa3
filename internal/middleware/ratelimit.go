package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dukerupert/parkwatch"
	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

// RateLimitConfig configures a RateLimiter. Rate is in events per second.
type RateLimitConfig struct {
	Rate  float64
	Burst int

	// Entries idle for longer than IdleTimeout are dropped every
	// CleanupInterval.
	CleanupInterval time.Duration
	IdleTimeout     time.Duration
}

// DefaultLoginRateLimit allows 5 login attempts per minute per client with a
// burst of 10.
func DefaultLoginRateLimit() RateLimitConfig {
	return RateLimitConfig{
		Rate:            5.0 / 60.0,
		Burst:           10,
		CleanupInterval: time.Hour,
		IdleTimeout:     time.Hour,
	}
}

// RateLimiter throttles requests per client IP with a token bucket each.
type RateLimiter struct {
	limiters sync.Map // IP address -> *limiterEntry
	logger   *slog.Logger
	config   RateLimitConfig
	cancel   context.CancelFunc
}

type limiterEntry struct {
	limiter    *rate.Limiter
	lastAccess atomic.Int64 // unix seconds
}

// NewRateLimiter starts a cleanup goroutine that runs until Shutdown.
func NewRateLimiter(logger *slog.Logger, cfg RateLimitConfig) *RateLimiter {
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = time.Hour
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = time.Hour
	}
	ctx, cancel := context.WithCancel(context.Background())
	rl := &RateLimiter{logger: logger, config: cfg, cancel: cancel}
	go rl.cleanupLoop(ctx)
	return rl
}

func (rl *RateLimiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ip := c.RealIP()
			limit := fmt.Sprintf("%.0f", rl.config.Rate*60)
			c.Response().Header().Set("X-RateLimit-Limit", limit)

			if !rl.Allow(ip) {
				rl.logger.Warn("rate limit exceeded",
					slog.String("ip", ip),
					slog.String("path", c.Path()),
					slog.String("method", c.Request().Method))
				c.Response().Header().Set("Retry-After", "60")
				c.Response().Header().Set("X-RateLimit-Remaining", "0")
				return parkwatch.Errorf(parkwatch.ERATELIMIT, "Too many attempts, please try again later")
			}
			return next(c)
		}
	}
}

// Allow reports whether key may proceed now.
func (rl *RateLimiter) Allow(key string) bool {
	return rl.limiter(key).Allow()
}

func (rl *RateLimiter) limiter(key string) *rate.Limiter {
	now := time.Now().Unix()
	if v, ok := rl.limiters.Load(key); ok {
		e := v.(*limiterEntry)
		e.lastAccess.Store(now)
		return e.limiter
	}

	e := &limiterEntry{limiter: rate.NewLimiter(rate.Limit(rl.config.Rate), rl.config.Burst)}
	e.lastAccess.Store(now)
	actual, _ := rl.limiters.LoadOrStore(key, e)
	return actual.(*limiterEntry).limiter
}

func (rl *RateLimiter) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := rl.cleanup(time.Now()); n > 0 {
				rl.logger.Info("cleaned up idle rate limiters", slog.Int("removed", n))
			}
		}
	}
}

func (rl *RateLimiter) cleanup(now time.Time) int {
	cutoff := now.Add(-rl.config.IdleTimeout).Unix()
	var removed int
	rl.limiters.Range(func(key, value any) bool {
		if value.(*limiterEntry).lastAccess.Load() < cutoff {
			rl.limiters.Delete(key)
			removed++
		}
		return true
	})
	return removed
}

func (rl *RateLimiter) Shutdown() {
	rl.cancel()
}
