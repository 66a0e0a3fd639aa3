package http

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/parkwatch"
	pwmiddleware "github.com/dukerupert/parkwatch/internal/middleware"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const (
	// SessionCookieName is the name of the session cookie.
	SessionCookieName = "session"

	// APIKeyHeader carries the ingest key of camera clients.
	APIKeyHeader = "X-API-Key"

	// DefaultTimeout bounds the work of every handler.
	DefaultTimeout = 5 * time.Second

	// maxBodySize leaves room for one photo plus multipart overhead.
	maxBodySize = "12M"
)

func (s *Server) registerMiddleware() {
	s.echo.Pre(middleware.RemoveTrailingSlash())

	s.echo.Use(middleware.Recover())
	s.echo.Use(pwmiddleware.RequestID(s.logger))
	s.echo.Use(s.requestLoggerMiddleware())
	s.echo.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     s.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, APIKeyHeader},
		AllowCredentials: !(len(s.CORSOrigins) == 1 && s.CORSOrigins[0] == "*"),
	}))
	s.echo.Use(middleware.BodyLimit(maxBodySize))
	if s.metrics != nil {
		s.echo.Use(s.metrics.Middleware())
	}

	s.echo.HTTPErrorHandler = s.httpErrorHandler
}

// requestLoggerMiddleware logs one line per request at a level matching
// the response status.
func (s *Server) requestLoggerMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			if err := next(c); err != nil {
				c.Error(err)
			}

			status := c.Response().Status
			attrs := []any{
				slog.String("method", c.Request().Method),
				slog.String("path", c.Path()),
				slog.Int("status", status),
				slog.Duration("latency", time.Since(start)),
			}

			logger := s.log(c)
			switch {
			case status >= 500:
				logger.Error("request completed with server error", attrs...)
			case status >= 400:
				logger.Warn("request completed with client error", attrs...)
			default:
				logger.Info("request completed", attrs...)
			}
			return nil
		}
	}
}

// SessionMiddleware resolves the session cookie and attaches the user and
// session to the request context. When required is false, requests with a
// missing or invalid session continue anonymously.
func (s *Server) SessionMiddleware(required bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cookie, err := c.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				if required {
					return parkwatch.Unauthorized("Authentication required")
				}
				return next(c)
			}

			ctx, cancel := withTimeout(c)
			session, err := s.sessionService.FindSessionByToken(ctx, cookie.Value)
			cancel()
			if err != nil {
				if !parkwatch.IsErrorCode(err, parkwatch.EUNAUTHORIZED) {
					return err
				}
				s.clearSessionCookie(c)
				if required {
					return parkwatch.Unauthorized("Invalid session")
				}
				return next(c)
			}

			rctx := parkwatch.NewContextWithUser(c.Request().Context(), session.User)
			rctx = parkwatch.NewContextWithSession(rctx, session)
			c.SetRequest(c.Request().WithContext(rctx))

			return next(c)
		}
	}
}

func (s *Server) RequireAuth() echo.MiddlewareFunc {
	return s.SessionMiddleware(true)
}

func (s *Server) OptionalAuth() echo.MiddlewareFunc {
	return s.SessionMiddleware(false)
}

// RequireAdmin must run after RequireAuth.
func (s *Server) RequireAdmin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user := parkwatch.UserFromContext(c.Request().Context())
			if user == nil {
				return parkwatch.Unauthorized("Authentication required")
			}
			if !user.IsAdmin {
				return parkwatch.Forbidden("Admin privileges required")
			}
			return next(c)
		}
	}
}

// RequireIngestKey guards camera ingestion. It lets everything through
// when no key is configured.
func (s *Server) RequireIngestKey() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if s.IngestAPIKey == "" {
				return next(c)
			}
			key := c.Request().Header.Get(APIKeyHeader)
			if subtle.ConstantTimeCompare([]byte(key), []byte(s.IngestAPIKey)) != 1 {
				s.log(c).Warn("rejected ingest request", slog.String("ip", c.RealIP()))
				return parkwatch.Unauthorized("Invalid API key")
			}
			return next(c)
		}
	}
}

// log returns the request scoped logger.
func (s *Server) log(c echo.Context) *slog.Logger {
	if l, ok := c.Get("logger").(*slog.Logger); ok {
		return l
	}
	return s.logger
}
