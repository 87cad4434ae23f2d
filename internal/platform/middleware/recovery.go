package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/nidipo/portal/internal/platform/auth"
)

// Recovery turns a panicking handler into a logged 500. The panic value,
// the request, and the acting user all land in the log line so a crash in
// the middle of a form submission can be traced to the entry that caused it.
func Recovery(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}

				evt := logger.Error().
					Str("panic", fmt.Sprintf("%v", r)).
					Str("method", c.Request().Method).
					Str("path", c.Request().URL.Path).
					Str("stack", string(debug.Stack()))
				if rid, ok := c.Get("request_id").(string); ok {
					evt = evt.Str("request_id", rid)
				}
				if uid := auth.UserID(c); uid != uuid.Nil {
					evt = evt.Str("user_id", uid.String())
				}
				evt.Msg("panic recovered")

				err = echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
			}()
			return next(c)
		}
	}
}
