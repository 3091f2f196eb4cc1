package handler

import (
	"github.com/labstack/echo/v4"
)

// Envelope is the uniform body of every API response.
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
	Count   *int   `json:"count,omitempty"`
}

func respond(c echo.Context, status int, data any, message string) error {
	return c.JSON(status, Envelope{Success: true, Data: data, Message: message})
}

func respondList[T any](c echo.Context, status int, items []T) error {
	if items == nil {
		items = []T{}
	}
	n := len(items)
	return c.JSON(status, Envelope{Success: true, Data: items, Count: &n})
}

// Fail renders an unsuccessful envelope.
func Fail(c echo.Context, status int, message string) error {
	return c.JSON(status, Envelope{Success: false, Message: message})
}
