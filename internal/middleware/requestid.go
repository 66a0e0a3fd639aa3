package middleware

import (
	"log/slog"

	"github.com/dukerupert/parkwatch"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const loggerKey = "logger"

// RequestID assigns every request an id, reusing a client supplied
// X-Request-ID, and stores it with a request scoped logger.
func RequestID(logger *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := c.Request().Header.Get(echo.HeaderXRequestID)
			if id == "" || len(id) > 128 {
				id = uuid.New().String()
			}
			c.Response().Header().Set(echo.HeaderXRequestID, id)

			req := c.Request()
			c.SetRequest(req.WithContext(parkwatch.NewContextWithRequestID(req.Context(), id)))
			c.Set(loggerKey, logger.With(slog.String("request_id", id)))
			return next(c)
		}
	}
}

// GetRequestLogger returns the request scoped logger, or slog.Default
// outside RequestID.
func GetRequestLogger(c echo.Context) *slog.Logger {
	if l, ok := c.Get(loggerKey).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}
