// Package apierror turns categorized errors into JSON error bodies.
package apierror

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"riego/pkg/errors"
	"riego/pkg/logger"
)

// Response is the error body every handler returns.
type Response struct {
	Message       string `json:"mensaje"`
	Detail        string `json:"detalle,omitempty"`
	CorrelationID string `json:"correlation_id,omitempty"`
}

// StatusFor maps an error category to an HTTP status.
func StatusFor(err error) int {
	switch errors.CategoryOf(err) {
	case errors.CategoryValidation, errors.CategoryFileParsing, errors.CategoryStructural:
		return http.StatusBadRequest
	case errors.CategoryNotFound:
		return http.StatusNotFound
	case errors.CategoryConflict:
		return http.StatusConflict
	case errors.CategoryTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// Write logs err and replies with its mapped status. message is what the
// client reads; err.Error() goes to detalle.
func Write(c echo.Context, log *slog.Logger, err error, message string) error {
	return WriteStatus(c, log, err, message, StatusFor(err))
}

// WriteStatus is Write with an explicit status.
func WriteStatus(c echo.Context, log *slog.Logger, err error, message string, code int) error {
	resp := Response{Message: message, CorrelationID: uuid.NewString()[:8]}
	if err != nil {
		resp.Detail = err.Error()
	}
	l := logger.OrDiscard(log)
	attrs := []any{
		"correlation_id", resp.CorrelationID,
		"code", code,
		"path", c.Request().URL.Path,
		"method", c.Request().Method,
		"error", resp.Detail,
	}
	if code >= http.StatusInternalServerError {
		l.Error(message, attrs...)
	} else {
		l.Warn(message, attrs...)
	}
	return c.JSON(code, resp)
}
