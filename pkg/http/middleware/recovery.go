package middleware

import (
	"fmt"
	"net/http"
	"runtime"

	"github.com/labstack/echo/v4"

	applogger "DiffPlot/pkg/logger"
)

const stackLimit = 8 << 10

// Recover converts a panic in a later handler into a 500 handled by echo's
// error handler, logging the panic value and the goroutine stack.
func Recover(l *applogger.Logger) echo.MiddlewareFunc {
	if l == nil {
		l = applogger.Nop()
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				if r == http.ErrAbortHandler {
					panic(r)
				}
				cause, ok := r.(error)
				if !ok {
					cause = fmt.Errorf("panic: %v", r)
				}
				stack := make([]byte, stackLimit)
				stack = stack[:runtime.Stack(stack, false)]
				l.Error("handler panicked",
					applogger.String("method", c.Request().Method),
					applogger.String("path", c.Path()),
					applogger.Error(cause),
					applogger.String("stack", string(stack)),
				)
				err = echo.NewHTTPError(http.StatusInternalServerError).SetInternal(cause)
			}()
			return next(c)
		}
	}
}
