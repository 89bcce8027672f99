package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Allower decides whether key may spend one token.
type Allower interface {
	Allow(key string, capacity, refillPerSec float64) bool
}

// RateLimit applies a per-client token bucket keyed by the client IP.
// A non-positive capacity disables limiting.
func RateLimit(a Allower, capacity, refillPerSec float64) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		if a == nil || capacity <= 0 {
			return next
		}
		return func(c echo.Context) error {
			if !a.Allow(c.RealIP()+" "+c.Path(), capacity, refillPerSec) {
				c.Response().Header().Set("Retry-After", "1")
				return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
			}
			return next(c)
		}
	}
}
