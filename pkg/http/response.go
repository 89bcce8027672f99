package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	applogger "DiffPlot/pkg/logger"
)

// WriteEnvelope writes data in an Envelope, using status for both the HTTP
// code and the body.
func WriteEnvelope(c echo.Context, status int, data interface{}) error {
	return c.JSON(status, Envelope{
		Status:  status,
		Message: http.StatusText(status),
		Data:    data,
	})
}

func WriteOK(c echo.Context, data interface{}) error {
	return WriteEnvelope(c, http.StatusOK, data)
}

// WriteRaw writes body with 200 and no envelope.
func WriteRaw(c echo.Context, body interface{}) error {
	return c.JSON(http.StatusOK, body)
}

// WriteFieldErrors writes a 400 listing every rejected field.
func WriteFieldErrors(c echo.Context, errs []FieldError) error {
	return WriteEnvelope(c, http.StatusBadRequest, errs)
}

// WriteError maps err to its status. Errors that are not an AppError become
// an opaque 500.
func WriteError(c echo.Context, err error) error {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		appErr = Internal("Something went wrong", err)
	}
	return WriteEnvelope(c, appErr.Status, []*AppError{appErr})
}

// ErrorHandler renders errors that reach echo itself, such as unknown routes
// and recovered panics, in the same envelope as WriteError.
func ErrorHandler(l *applogger.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		var he *echo.HTTPError
		if errors.As(err, &he) {
			appErr := &AppError{Status: he.Code, Code: statusCode(he.Code), Message: http.StatusText(he.Code), Err: he.Internal}
			if msg, ok := he.Message.(string); ok && he.Code < http.StatusInternalServerError {
				appErr.Message = msg
			}
			err = appErr
		}
		if werr := WriteError(c, err); werr != nil {
			l.Warn("write error response", applogger.Error(werr))
		}
	}
}

// statusCode names a status as ERR_NOT_FOUND, ERR_METHOD_NOT_ALLOWED and so on.
func statusCode(status int) string {
	if status >= http.StatusInternalServerError {
		return CodeInternal
	}
	text := strings.ToUpper(http.StatusText(status))
	return "ERR_" + strings.NewReplacer(" ", "_", "-", "_", "'", "").Replace(text)
}
