package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/sweetshop/sweet-shop/internal/core/domain"
	"github.com/sweetshop/sweet-shop/internal/core/ports"
)

const callerKey = "caller"

// MsgNotAuthorized is returned for every authentication failure so that the
// response never reveals which check failed.
const MsgNotAuthorized = "Not authorized to access this route"

// UserFinder loads the current state of an account.
type UserFinder interface {
	FindByID(ctx context.Context, id string) (*domain.User, error)
}

// Auth verifies the bearer token, reloads the account it was issued for and
// attaches the caller's id and current role to the context.
func Auth(verifier ports.TokenVerifier, users UserFinder) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, ok := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, MsgNotAuthorized)
			}

			userID, err := verifier.Verify(token)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, MsgNotAuthorized).SetInternal(err)
			}

			user, err := users.FindByID(c.Request().Context(), userID)
			if err != nil {
				if errors.Is(err, domain.ErrUserNotFound) {
					return echo.NewHTTPError(http.StatusUnauthorized, MsgNotAuthorized).SetInternal(err)
				}
				return fmt.Errorf("auth: load caller: %w", err)
			}

			c.Set(callerKey, ports.Caller{UserID: user.ID, Role: user.Role})
			return next(c)
		}
	}
}

// CallerFrom returns the identity attached by Auth.
func CallerFrom(c echo.Context) (ports.Caller, bool) {
	caller, ok := c.Get(callerKey).(ports.Caller)
	if !ok || caller.UserID == "" {
		return ports.Caller{}, false
	}
	return caller, true
}

// SetCaller attaches caller to c the way Auth does.
func SetCaller(c echo.Context, caller ports.Caller) {
	c.Set(callerKey, caller)
}

func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}
