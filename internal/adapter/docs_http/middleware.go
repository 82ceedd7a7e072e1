package docs_http

import (
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const (
	headerRequestID   = "X-Request-ID"
	headerProcessTime = "X-Process-Time-Ms"
)

// RequestTracking assigns a request ID when the caller did not send
// one and stamps the handling time on the response.
func RequestTracking(logger *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			requestID := c.Request().Header.Get(headerRequestID)
			if requestID == "" {
				requestID = uuid.NewString()
			}
			c.Response().Header().Set(headerRequestID, requestID)
			c.Response().Before(func() {
				c.Response().Header().Set(headerProcessTime,
					strconv.FormatInt(time.Since(start).Milliseconds(), 10))
			})

			err := next(c)

			logger.Info("request_handled",
				slog.String("request_id", requestID),
				slog.String("method", c.Request().Method),
				slog.String("path", c.Request().URL.Path),
				slog.Int("status", c.Response().Status),
				slog.Int64("elapsed_ms", time.Since(start).Milliseconds()))
			return err
		}
	}
}
