package http

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"bilancio/internal/core"
	"bilancio/internal/log"
	"bilancio/internal/report"
)

type ErrorResponse struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}

// statusOf maps domain errors to HTTP status codes.
func statusOf(err error) int {
	var he *echo.HTTPError
	var ve validator.ValidationErrors
	switch {
	case errors.As(err, &he):
		return he.Code
	case errors.As(err, &ve), report.IsRequestError(err):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func errorHandler(logger *log.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status := statusOf(err)
		body := ErrorResponse{Error: http.StatusText(status)}

		var he *echo.HTTPError
		var ve validator.ValidationErrors
		switch {
		case errors.As(err, &he):
			if msg, ok := he.Message.(string); ok {
				body.Error = msg
			}
		case errors.As(err, &ve):
			body.Error = "validation failed"
			for _, fe := range ve {
				body.Details = append(body.Details, fe.Field()+": "+fe.Tag())
			}
		case status == http.StatusInternalServerError:
			log.FromContext(c.Request().Context()).ErrorContext(c.Request().Context(), "Request failed",
				log.FieldPath, c.Path(), log.FieldError, err.Error())
			body.Error = "internal server error"
		default:
			body.Error = err.Error()
		}

		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(status)
		} else {
			werr = c.JSON(status, body)
		}
		if werr != nil {
			logger.Error("Failed to write error response", log.FieldError, werr.Error())
		}
	}
}
