// Package middleware holds the echo middleware shared by the JSON API and
// the inbound SOAP surface: request ids, request logging, panic recovery,
// and the inbound throttle guard.
package middleware

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// RequestIDKey is the context key the other middleware read the id from.
const RequestIDKey = "request_id"

// RequestID assigns every request a fresh id, honoring one supplied by the
// caller via X-Request-Id.
func RequestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			rid := c.Request().Header.Get("X-Request-Id")
			if rid == "" {
				rid = uuid.NewString()
			}
			c.Set(RequestIDKey, rid)
			c.Response().Header().Set("X-Request-Id", rid)
			return next(c)
		}
	}
}
