package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/dukerupert/parkwatch"
	"github.com/labstack/echo/v4"
)

// errorStatusCode maps domain error codes to HTTP status codes.
func errorStatusCode(code string) int {
	switch code {
	case parkwatch.ENOTFOUND:
		return http.StatusNotFound
	case parkwatch.EINVALID:
		return http.StatusBadRequest
	case parkwatch.EUNAUTHORIZED:
		return http.StatusUnauthorized
	case parkwatch.EFORBIDDEN:
		return http.StatusForbidden
	case parkwatch.ECONFLICT:
		return http.StatusConflict
	case parkwatch.ERATELIMIT:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// statusErrorCode maps the status of an echo.HTTPError back to a code.
func statusErrorCode(status int) string {
	switch status {
	case http.StatusNotFound, http.StatusMethodNotAllowed:
		return parkwatch.ENOTFOUND
	case http.StatusUnauthorized:
		return parkwatch.EUNAUTHORIZED
	case http.StatusForbidden:
		return parkwatch.EFORBIDDEN
	case http.StatusConflict:
		return parkwatch.ECONFLICT
	case http.StatusTooManyRequests:
		return parkwatch.ERATELIMIT
	}
	if status >= 400 && status < 500 {
		return parkwatch.EINVALID
	}
	return parkwatch.EINTERNAL
}

// HandleError writes err as an error envelope. Internal errors are logged
// with their cause and reach the client only as the generic message.
func HandleError(c echo.Context, logger *slog.Logger, err error) error {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg, _ := he.Message.(string)
		if msg == "" {
			msg = http.StatusText(he.Code)
		}
		err = parkwatch.Errorf(statusErrorCode(he.Code), "%s", msg)
	}

	code := parkwatch.ErrorCode(err)
	message := parkwatch.ErrorMessage(err)
	status := errorStatusCode(code)

	if code == parkwatch.EINTERNAL {
		logger.Error("internal error",
			slog.String("error", err.Error()),
			slog.String("path", c.Path()),
			slog.String("method", c.Request().Method),
		)
		message = parkwatch.GenericErrorMessage()
	}

	return c.JSON(status, Response{
		Success: false,
		Message: message,
		Error:   code,
		Fields:  parkwatch.ErrorFields(err),
	})
}

func (s *Server) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	_ = HandleError(c, s.log(c), err)
}
