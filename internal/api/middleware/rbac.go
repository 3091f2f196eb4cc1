package middleware

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sweetshop/sweet-shop/internal/core/domain"
)

// RequireRole lets the request through only when the caller attached by Auth
// holds exactly role. It must run after Auth.
func RequireRole(role domain.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			caller, ok := CallerFrom(c)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, MsgNotAuthorized)
			}
			if caller.Role != role {
				return echo.NewHTTPError(http.StatusForbidden,
					fmt.Sprintf("User role %s is not authorized to access this route", caller.Role)).
					SetInternal(domain.ErrForbidden)
			}
			return next(c)
		}
	}
}
