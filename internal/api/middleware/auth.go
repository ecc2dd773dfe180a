package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/civicore/community-api/internal/core/domain"
	"github.com/civicore/community-api/internal/core/ports"
)

// SessionCookie is the cookie carrying the opaque session token.
const SessionCookie = "community_session"

// Context keys populated by the session middleware.
const (
	CtxIdentityID = "identity_id"
	CtxUsername   = "username"
	CtxRole       = "role"
	CtxToken      = "session_token"
)

// Session resolves the session cookie against the registry and injects the
// principal into context. Requests without a valid session are rejected with
// 401; routes that tolerate anonymous callers use OptionalSession instead.
func Session(registry ports.SessionRegistry) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			session, err := resolve(c, registry)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
			}

			inject(c, session)
			return next(c)
		}
	}
}

// OptionalSession injects the principal when a valid session cookie is
// present and passes the request through anonymously otherwise. A stale or
// forged cookie is treated the same as no cookie at all.
func OptionalSession(registry ports.SessionRegistry) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if session, err := resolve(c, registry); err == nil {
				inject(c, session)
			}
			return next(c)
		}
	}
}

func resolve(c echo.Context, registry ports.SessionRegistry) (*domain.Session, error) {
	cookie, err := c.Cookie(SessionCookie)
	if err != nil || cookie.Value == "" {
		return nil, domain.ErrNoSession
	}
	return registry.Resolve(c.Request().Context(), cookie.Value)
}

func inject(c echo.Context, session *domain.Session) {
	c.Set(CtxIdentityID, session.IdentityID)
	c.Set(CtxUsername, session.Username)
	c.Set(CtxRole, session.Role)
	c.Set(CtxToken, session.Token)
}
