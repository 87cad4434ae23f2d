package middleware

import (
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/nidipo/portal/internal/platform/auth"
)

// Logger emits one structured line per request. Lines for authenticated
// requests carry the acting user and their center, which is what ties an
// entry in the study database back to who typed it.
func Logger(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()

			err := next(c)

			evt := logger.Info()
			if err != nil {
				evt = logger.Error().Err(err)
			}

			rid, _ := c.Get("request_id").(string)
			evt = evt.
				Str("request_id", rid).
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Int("status", c.Response().Status).
				Int64("bytes_out", c.Response().Size).
				Dur("latency", time.Since(start)).
				Str("remote_ip", c.RealIP())

			// Auth runs inside this middleware, so the identity keys are
			// populated by the time the handler returns.
			if uid := auth.UserID(c); uid != uuid.Nil {
				evt = evt.Str("user_id", uid.String())
				if center := auth.CenterID(c); center != nil {
					evt = evt.Int64("center_id", *center)
				}
			}

			evt.Msg("request")
			return err
		}
	}
}
