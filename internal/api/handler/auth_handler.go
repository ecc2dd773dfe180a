package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/civicore/community-api/internal/api/metrics"
	"github.com/civicore/community-api/internal/api/middleware"
	"github.com/civicore/community-api/internal/core/domain"
	"github.com/civicore/community-api/internal/core/ports"
)

// AuthHandler handles registration, login, logout, and account endpoints. The
// session token travels in an HttpOnly cookie, never in the response body.
type AuthHandler struct {
	authService ports.AuthService
	secure      bool
}

// NewAuthHandler builds an AuthHandler. secure toggles the cookie Secure
// attribute; it is off in development so plain-HTTP testing works.
func NewAuthHandler(authService ports.AuthService, secure bool) *AuthHandler {
	return &AuthHandler{authService: authService, secure: secure}
}

type credentialsRequest struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
	Password string `json:"password" validate:"required,min=6,max=128"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=6,max=128"`
}

type identityResponse struct {
	User *domain.Identity `json:"user"`
}

// Register creates a new member account and logs it in.
//
// @Summary      Register a new account
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      credentialsRequest  true  "Desired credentials"
// @Success      201   {object}  identityResponse
// @Failure      400   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Failure      422   {object}  map[string]string
// @Router       /auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req credentialsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	identity, session, err := h.authService.Register(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrDuplicateUsername):
			metrics.RegistrationsTotal.WithLabelValues("duplicate").Inc()
		case errors.Is(err, domain.ErrReservedName):
			metrics.RegistrationsTotal.WithLabelValues("reserved").Inc()
		default:
			metrics.RegistrationsTotal.WithLabelValues("rejected").Inc()
		}
		return err
	}
	metrics.RegistrationsTotal.WithLabelValues("ok").Inc()

	h.setSessionCookie(c, session)
	return c.JSON(http.StatusCreated, identityResponse{User: identity})
}

// Login authenticates and rotates the session.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      credentialsRequest  true  "Credentials"
// @Success      200   {object}  identityResponse
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req credentialsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}

	identity, session, err := h.authService.Login(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		metrics.LoginsTotal.WithLabelValues("rejected").Inc()
		return err
	}
	metrics.LoginsTotal.WithLabelValues("ok").Inc()

	h.setSessionCookie(c, session)
	return c.JSON(http.StatusOK, identityResponse{User: identity})
}

// Logout destroys the current session and clears the cookie. The route sits
// behind OptionalSession, so a stale or missing cookie still gets a 204 and a
// cleared cookie; a double-click on "log out" never errors.
//
// @Summary      Logout
// @Tags         auth
// @Produce      json
// @Success      204  "session destroyed"
// @Router       /auth/logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	if token, _ := c.Get(middleware.CtxToken).(string); token != "" {
		if err := h.authService.Logout(c.Request().Context(), token); err == nil {
			metrics.SessionsDestroyedTotal.Inc()
		}
	}

	h.clearSessionCookie(c)
	return c.NoContent(http.StatusNoContent)
}

// Me returns the account behind the current session.
//
// @Summary      Current account
// @Tags         auth
// @Produce      json
// @Security     SessionCookie
// @Success      200  {object}  identityResponse
// @Failure      401  {object}  map[string]string
// @Router       /auth/me [get]
func (h *AuthHandler) Me(c echo.Context) error {
	subject, err := requireSubject(c)
	if err != nil {
		return err
	}

	identity, err := h.authService.CurrentIdentity(c.Request().Context(), subject.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, identityResponse{User: identity})
}

// ChangePassword updates the password and revokes every session of the
// account, including the one making this request.
//
// @Summary      Change password
// @Tags         auth
// @Accept       json
// @Produce      json
// @Security     SessionCookie
// @Param        body  body      changePasswordRequest  true  "Current and new password"
// @Success      204   "password changed, all sessions revoked"
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Router       /auth/password [put]
func (h *AuthHandler) ChangePassword(c echo.Context) error {
	subject, err := requireSubject(c)
	if err != nil {
		return err
	}

	var req changePasswordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := h.authService.ChangePassword(c.Request().Context(), subject.ID, req.CurrentPassword, req.NewPassword); err != nil {
		return err
	}
	metrics.SessionsDestroyedTotal.Inc()

	h.clearSessionCookie(c)
	return c.NoContent(http.StatusNoContent)
}

func (h *AuthHandler) setSessionCookie(c echo.Context, session *domain.Session) {
	c.SetCookie(&http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    session.Token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) clearSessionCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
