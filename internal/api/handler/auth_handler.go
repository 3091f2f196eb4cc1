package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sweetshop/sweet-shop/internal/api/metrics"
	"github.com/sweetshop/sweet-shop/internal/api/middleware"
	"github.com/sweetshop/sweet-shop/internal/core/domain"
	"github.com/sweetshop/sweet-shop/internal/core/ports"
)

type AuthHandler struct {
	authService ports.AuthService
	tokens      ports.TokenIssuer
}

func NewAuthHandler(authService ports.AuthService, tokens ports.TokenIssuer) *AuthHandler {
	return &AuthHandler{authService: authService, tokens: tokens}
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Token string       `json:"token"`
	User  *domain.User `json:"user"`
}

type meResponse struct {
	User *domain.User `json:"user"`
}

// Register creates a new user account and signs the caller in.
//
// @Summary      Register a new user
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      registerRequest  true  "Account details"
// @Success      201   {object}  Envelope{data=authResponse}
// @Failure      400   {object}  Envelope
// @Failure      429   {object}  Envelope
// @Router       /api/auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return invalidBody(err)
	}

	user, err := h.authService.Register(c.Request().Context(), ports.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		metrics.AuthAttemptsTotal.WithLabelValues("register", attemptResult(err)).Inc()
		return err
	}

	token, err := h.tokens.Issue(user.ID)
	if err != nil {
		metrics.AuthAttemptsTotal.WithLabelValues("register", "error").Inc()
		return err
	}

	metrics.AuthAttemptsTotal.WithLabelValues("register", "ok").Inc()
	return respond(c, http.StatusCreated, authResponse{Token: token, User: user}, "")
}

// Login verifies credentials and returns a bearer token.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  Envelope{data=authResponse}
// @Failure      400   {object}  Envelope  "Malformed body"
// @Failure      401   {object}  Envelope
// @Failure      429   {object}  Envelope
// @Router       /api/auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return invalidBody(err)
	}

	user, err := h.authService.VerifyCredentials(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		metrics.AuthAttemptsTotal.WithLabelValues("login", attemptResult(err)).Inc()
		return err
	}

	token, err := h.tokens.Issue(user.ID)
	if err != nil {
		metrics.AuthAttemptsTotal.WithLabelValues("login", "error").Inc()
		return err
	}

	metrics.AuthAttemptsTotal.WithLabelValues("login", "ok").Inc()
	return respond(c, http.StatusOK, authResponse{Token: token, User: user}, "")
}

// Me returns the account of the authenticated caller.
//
// @Summary      Current user
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  Envelope{data=meResponse}
// @Failure      401  {object}  Envelope
// @Router       /api/auth/me [get]
func (h *AuthHandler) Me(c echo.Context) error {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		return domain.ErrUnauthenticated
	}

	user, err := h.authService.FindByID(c.Request().Context(), caller.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.ErrUnauthenticated
		}
		return err
	}
	return respond(c, http.StatusOK, meResponse{User: user}, "")
}

func attemptResult(err error) string {
	switch {
	case errors.Is(err, domain.ErrValidationFailed),
		errors.Is(err, domain.ErrDuplicateEmail),
		errors.Is(err, domain.ErrInvalidCredentials):
		return "rejected"
	default:
		return "error"
	}
}

func invalidBody(err error) error {
	return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body").SetInternal(err)
}
