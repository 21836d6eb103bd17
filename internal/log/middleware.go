package log

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// ContextKey type for context keys
type ContextKey string

const (
	// LoggerContextKey is the context key for the logger
	LoggerContextKey ContextKey = "logger"
)

// WithContext stores logger in ctx
func WithContext(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, LoggerContextKey, logger)
}

// FromContext extracts a logger from the request context
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(LoggerContextKey).(*Logger); ok {
		return logger
	}
	// Return default logger if not found
	return &Logger{
		Logger:    slog.Default(),
		component: "unknown",
	}
}

// ContextMiddleware puts a request scoped logger, tagged with the echo
// request ID, into the request context.
func ContextMiddleware(logger *Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			l := logger
			if id := c.Response().Header().Get(echo.HeaderXRequestID); id != "" {
				l = logger.With(FieldRequestID, id)
			}
			req := c.Request()
			c.SetRequest(req.WithContext(WithContext(req.Context(), l)))
			return next(c)
		}
	}
}

// RequestLogger logs one line per completed request. 4xx are warnings and
// 5xx errors.
func RequestLogger(logger *Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:       true,
		LogMethod:    true,
		LogStatus:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogUserAgent: true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := NewFields().
				WithComponent(ComponentHTTP).
				WithRequestID(v.RequestID).
				WithHTTPRequest(v.Method, v.URI, c.QueryString(), v.UserAgent).
				WithHTTPResponse(v.Status, v.Latency.Milliseconds(), v.Status < http.StatusBadRequest).
				WithError(v.Error)
			fields[FieldClientIP] = v.RemoteIP

			level := slog.LevelInfo
			switch {
			case v.Status >= http.StatusInternalServerError:
				level = slog.LevelError
			case v.Status >= http.StatusBadRequest:
				level = slog.LevelWarn
			}
			logger.Logger.Log(c.Request().Context(), level, "HTTP request completed", fields.ToSlice()...)
			return nil
		},
	})
}
