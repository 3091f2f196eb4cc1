package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/sweetshop/sweet-shop/internal/api/metrics"
)

// MsgRateLimited is the message of a 429 response.
const MsgRateLimited = "Too many requests, please try again later"

// RateCounter counts hits of key inside a fixed window.
type RateCounter interface {
	Hit(ctx context.Context, key string, window time.Duration) (count int64, resetIn time.Duration, err error)
}

// KeyFunc builds a rate-limit key from the request.
type KeyFunc func(c echo.Context) string

// KeyByIPAndPath limits each client IP separately on every route.
func KeyByIPAndPath() KeyFunc {
	return func(c echo.Context) string {
		ip := c.RealIP()
		if ip == "" {
			ip = "unknown"
		}
		path := c.Path()
		if path == "" {
			path = c.Request().URL.Path
		}
		return "rl:path:" + path + ":ip:" + ip
	}
}

// RateLimit rejects requests beyond max per window with 429 and reports the
// window state in X-RateLimit-* headers. Counter failures let the request
// through.
func RateLimit(counter RateCounter, max int, window time.Duration, keyFn KeyFunc, log zerolog.Logger) echo.MiddlewareFunc {
	if counter == nil || max <= 0 || window <= 0 || keyFn == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().Method == http.MethodOptions {
				return next(c)
			}

			key := keyFn(c)
			count, resetIn, err := counter.Hit(c.Request().Context(), key, window)
			if err != nil {
				log.Warn().Err(err).Str("key", key).Msg("rate limiter unavailable, allowing request")
				return next(c)
			}

			resetSec := int((resetIn + time.Second - 1) / time.Second)
			remaining := max - int(count)
			if remaining < 0 {
				remaining = 0
			}

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(max))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			h.Set("X-RateLimit-Reset", strconv.Itoa(resetSec))

			if int(count) > max {
				if resetSec > 0 {
					h.Set("Retry-After", strconv.Itoa(resetSec))
				}
				metrics.RateLimitedTotal.Inc()
				return echo.NewHTTPError(http.StatusTooManyRequests, MsgRateLimited)
			}
			return next(c)
		}
	}
}
