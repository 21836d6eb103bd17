package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"bilancio/internal/amqp"
	"bilancio/internal/core"
	"bilancio/internal/export"
	"bilancio/internal/log"
	"bilancio/internal/report"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type ReportHandler struct {
	reports  ReportService
	stats    StatisticsService
	requests RequestPublisher
}

// ReportRequest selects the period of a report. Dates are YYYY-MM-DD.
type ReportRequest struct {
	Type      string `json:"type" validate:"required"`
	Year      int    `json:"year" validate:"omitempty,min=1,max=9999"`
	Month     int    `json:"month" validate:"omitempty,min=1,max=12"`
	StartDate string `json:"startDate" validate:"omitempty,datetime=2006-01-02"`
	EndDate   string `json:"endDate" validate:"omitempty,datetime=2006-01-02"`
}

type RequestAccepted struct {
	RequestID string `json:"requestId"`
}

func (r ReportRequest) toRequest() (report.Request, error) {
	return report.ParseRequest(r.Type, r.Year, r.Month, r.StartDate, r.EndDate)
}

func bindRequest(c echo.Context) (ReportRequest, error) {
	var body ReportRequest
	if err := c.Bind(&body); err != nil {
		return ReportRequest{}, echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&body); err != nil {
		return ReportRequest{}, err
	}
	return body, nil
}

// Generate returns the stored report for the period or computes it.
func (h *ReportHandler) Generate(c echo.Context) error {
	return h.generate(c, h.reports.Generate)
}

// Regenerate replaces the stored report for the period with a fresh one.
func (h *ReportHandler) Regenerate(c echo.Context) error {
	return h.generate(c, h.reports.Regenerate)
}

func (h *ReportHandler) generate(c echo.Context, fn func(ctx context.Context, user core.UserID, req report.Request) (core.Report, error)) error {
	user, _ := UserIDFromContext(c)
	body, err := bindRequest(c)
	if err != nil {
		return err
	}
	req, err := body.toRequest()
	if err != nil {
		return err
	}
	r, err := fn(c.Request().Context(), user, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, r)
}

// Request queues an asynchronous generation.
func (h *ReportHandler) Request(c echo.Context) error {
	if h.requests == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "asynchronous generation is not enabled")
	}
	user, _ := UserIDFromContext(c)
	body, err := bindRequest(c)
	if err != nil {
		return err
	}
	req, err := body.toRequest()
	if err != nil {
		return err
	}
	if _, err := report.Resolve(req); err != nil {
		return err
	}

	msg := amqp.NewReportRequestMessage(int64(user), string(req.Kind), body.Year, body.Month, body.StartDate, body.EndDate)
	ctx := c.Request().Context()
	if err := h.requests.PublishReportRequest(ctx, msg); err != nil {
		log.FromContext(ctx).ErrorContext(ctx, "Failed to queue report request",
			log.FieldUserID, user, log.FieldError, err.Error())
		return echo.NewHTTPError(http.StatusServiceUnavailable, "could not queue report request")
	}
	return c.JSON(http.StatusAccepted, RequestAccepted{RequestID: msg.RequestID})
}

// List returns the user's reports, newest first.
func (h *ReportHandler) List(c echo.Context) error {
	user, _ := UserIDFromContext(c)
	reports, err := h.reports.List(c.Request().Context(), user)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, reports)
}

func (h *ReportHandler) Get(c echo.Context) error {
	r, err := h.load(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, r)
}

func (h *ReportHandler) Delete(c echo.Context) error {
	user, _ := UserIDFromContext(c)
	id, err := reportID(c)
	if err != nil {
		return err
	}
	if err := h.reports.Delete(c.Request().Context(), user, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Categories serves the category breakdown chart data.
func (h *ReportHandler) Categories(c echo.Context) error {
	r, err := h.load(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, report.CategoryDetailsView(r))
}

// TimeSeries serves the cumulative line chart data.
func (h *ReportHandler) TimeSeries(c echo.Context) error {
	r, err := h.load(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, report.TimeSeriesView(r))
}

func (h *ReportHandler) ExportXLSX(c echo.Context) error {
	r, err := h.load(c)
	if err != nil {
		return err
	}
	data, err := export.XLSX(r)
	if err != nil {
		return err
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, "attachment; filename=\""+export.FileName(r)+"\"")
	return c.Blob(http.StatusOK, xlsxContentType, data)
}

// LastMonth returns the daily spending of the latest month with expenses.
func (h *ReportHandler) LastMonth(c echo.Context) error {
	user, _ := UserIDFromContext(c)
	activity, err := h.stats.LastActiveMonth(c.Request().Context(), user)
	if errors.Is(err, core.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "no expenses recorded")
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, activity)
}

func (h *ReportHandler) load(c echo.Context) (core.Report, error) {
	user, _ := UserIDFromContext(c)
	id, err := reportID(c)
	if err != nil {
		return core.Report{}, err
	}
	r, err := h.reports.Get(c.Request().Context(), user, id)
	if errors.Is(err, core.ErrNotFound) {
		return core.Report{}, echo.NewHTTPError(http.StatusNotFound, "report not found")
	}
	return r, err
}

func reportID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid report id")
	}
	return id, nil
}
