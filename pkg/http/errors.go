package http

import (
	"fmt"
	"net/http"
)

// Error codes carried in response bodies.
const (
	CodeInvalidRequest = "ERR_INVALID_REQUEST"
	CodeInternal       = "ERR_INTERNAL"
)

// AppError is an error with the HTTP status it maps to. Message is shown to
// clients; Err is kept for logs only.
type AppError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

// Invalid reports a request rejected by the service. The cause's text is
// returned to the client.
func Invalid(err error) *AppError {
	return &AppError{
		Status:  http.StatusBadRequest,
		Code:    CodeInvalidRequest,
		Message: err.Error(),
		Err:     err,
	}
}

// Internal reports a server-side failure; the cause stays out of the body.
func Internal(message string, err error) *AppError {
	return &AppError{
		Status:  http.StatusInternalServerError,
		Code:    CodeInternal,
		Message: message,
		Err:     err,
	}
}
