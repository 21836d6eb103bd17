// Package http exposes the report engine as a JSON API.
package http

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"bilancio/internal/amqp"
	"bilancio/internal/core"
	"bilancio/internal/log"
	"bilancio/internal/report"
)

// ReportService is the part of report.Generator served over HTTP.
type ReportService interface {
	Generate(ctx context.Context, user core.UserID, req report.Request) (core.Report, error)
	Regenerate(ctx context.Context, user core.UserID, req report.Request) (core.Report, error)
	List(ctx context.Context, user core.UserID) ([]core.Report, error)
	Get(ctx context.Context, user core.UserID, id uuid.UUID) (core.Report, error)
	Delete(ctx context.Context, user core.UserID, id uuid.UUID) error
}

type StatisticsService interface {
	LastActiveMonth(ctx context.Context, user core.UserID) (report.MonthActivity, error)
}

// RequestPublisher queues asynchronous report requests.
type RequestPublisher interface {
	PublishReportRequest(ctx context.Context, msg *amqp.ReportRequestMessage) error
}

// Dependencies are the services behind the API. Requests may be nil, in
// which case asynchronous generation answers 503.
type Dependencies struct {
	Reports    ReportService
	Statistics StatisticsService
	Requests   RequestPublisher
}

type Options struct {
	RateLimitPerMinute int
	RateLimitBurst     int
}

// New builds the echo router with middleware and routes.
func New(deps Dependencies, opts Options, logger *log.Logger) *echo.Echo {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = NewValidator()
	e.HTTPErrorHandler = errorHandler(logger)

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(log.RequestLogger(logger))
	e.Use(log.ContextMiddleware(logger))
	e.Use(securityHeaders())
	e.Use(middleware.BodyLimit("64K"))

	h := &ReportHandler{
		reports:  deps.Reports,
		stats:    deps.Statistics,
		requests: deps.Requests,
	}
	registerRoutes(e, h, UserMiddleware(), rateLimiter(opts))
	return e
}

func registerRoutes(e *echo.Echo, h *ReportHandler, userMiddleware, limiter echo.MiddlewareFunc) {
	e.GET("/health", Health)

	api := e.Group("/api/v1", userMiddleware, limiter)

	reports := api.Group("/reports")
	reports.POST("", h.Generate)
	reports.POST("/regenerate", h.Regenerate)
	reports.POST("/requests", h.Request)
	reports.GET("", h.List)
	reports.GET("/:id", h.Get)
	reports.DELETE("/:id", h.Delete)
	reports.GET("/:id/categories", h.Categories)
	reports.GET("/:id/timeseries", h.TimeSeries)
	reports.GET("/:id/export/xlsx", h.ExportXLSX)

	api.GET("/statistics/last-month", h.LastMonth)
}

// NewHTTPServer wraps handler in a net/http server with sane timeouts.
func NewHTTPServer(port string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

func securityHeaders() echo.MiddlewareFunc {
	return middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		HSTSMaxAge:            31536000,
		ContentSecurityPolicy: "default-src 'none'; frame-ancestors 'none'",
		ReferrerPolicy:        "strict-origin-when-cross-origin",
	})
}

type HealthResponse struct {
	Status string `json:"status"`
}

func Health(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}
