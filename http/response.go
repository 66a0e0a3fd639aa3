package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Response is the envelope every endpoint answers with.
type Response struct {
	Success bool              `json:"success"`
	Data    any               `json:"data,omitempty"`
	Message string            `json:"message,omitempty"`
	Error   string            `json:"error,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func RespondOK(c echo.Context, data any) error {
	return c.JSON(http.StatusOK, Response{Success: true, Data: data})
}

func RespondCreated(c echo.Context, message string, data any) error {
	return c.JSON(http.StatusCreated, Response{Success: true, Message: message, Data: data})
}

// RespondMessage sends a 200 with a message and optional data.
func RespondMessage(c echo.Context, message string, data any) error {
	return c.JSON(http.StatusOK, Response{Success: true, Message: message, Data: data})
}

// list keeps empty results serialised as [] rather than null.
func list[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
