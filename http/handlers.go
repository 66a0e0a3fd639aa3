package http

import (
	"context"
	"strconv"

	"github.com/dukerupert/parkwatch"
	"github.com/labstack/echo/v4"
)

// withTimeout derives the handler context from the request.
func withTimeout(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), DefaultTimeout)
}

// requireIDParam parses a positive integer route parameter.
func requireIDParam(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, parkwatch.Invalid("Invalid ID format")
	}
	return id, nil
}

// bind decodes the request body into v and validates it.
func bind(c echo.Context, v any) error {
	if err := c.Bind(v); err != nil {
		if parkwatch.ErrorCode(err) == parkwatch.EINVALID {
			return err
		}
		return parkwatch.Invalid("Invalid request body")
	}
	return c.Validate(v)
}

func requireUser(c echo.Context) (*parkwatch.User, error) {
	user := parkwatch.UserFromContext(c.Request().Context())
	if user == nil {
		return nil, parkwatch.Unauthorized("Authentication required")
	}
	return user, nil
}

func (s *Server) handleHealthCheck(c echo.Context) error {
	return RespondOK(c, map[string]string{"status": "ok"})
}

func (s *Server) handleLivenessCheck(c echo.Context) error {
	return RespondOK(c, map[string]string{"status": "alive"})
}

func (s *Server) handleReadinessCheck(c echo.Context) error {
	if s.db != nil {
		ctx, cancel := withTimeout(c)
		defer cancel()
		if err := s.db.Ping(ctx); err != nil {
			return parkwatch.Internal("Database unavailable", err)
		}
	}
	return RespondOK(c, map[string]string{"status": "ready"})
}
