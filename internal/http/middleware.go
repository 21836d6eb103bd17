package http

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"bilancio/internal/core"
)

const (
	// HeaderUserID carries the caller's user id. Authentication happens
	// upstream of this service.
	HeaderUserID     = "X-User-ID"
	contextUserIDKey = "user_id"

	defaultRateLimitPerMinute = 60
	defaultRateLimitBurst     = 10
)

// UserMiddleware resolves the user from X-User-ID and stores it in the context.
func UserMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := strings.TrimSpace(c.Request().Header.Get(HeaderUserID))
			if raw == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing "+HeaderUserID+" header")
			}
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil || id <= 0 {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid "+HeaderUserID+" header")
			}
			c.Set(contextUserIDKey, core.UserID(id))
			return next(c)
		}
	}
}

// UserIDFromContext returns the user stored by UserMiddleware.
func UserIDFromContext(c echo.Context) (core.UserID, bool) {
	id, ok := c.Get(contextUserIDKey).(core.UserID)
	return id, ok
}

// rateLimiter limits each user (or client IP when unknown) to the
// configured requests per minute.
func rateLimiter(opts Options) echo.MiddlewareFunc {
	perMinute := opts.RateLimitPerMinute
	if perMinute <= 0 {
		perMinute = defaultRateLimitPerMinute
	}
	burst := opts.RateLimitBurst
	if burst <= 0 {
		burst = defaultRateLimitBurst
	}
	store := middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(float64(perMinute) / 60.0),
		Burst:     burst,
		ExpiresIn: 3 * time.Minute,
	})

	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			if id, ok := UserIDFromContext(c); ok {
				return "user:" + strconv.FormatInt(int64(id), 10), nil
			}
			return "ip:" + c.RealIP(), nil
		},
	})
}
