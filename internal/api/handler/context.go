package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/civicore/community-api/internal/api/middleware"
	"github.com/civicore/community-api/internal/core/policy"
)

// ctxSubject builds the policy subject from the principal injected by the
// session middleware. On routes behind middleware.Session the subject is
// always authenticated; behind middleware.OptionalSession it may be anonymous.
func ctxSubject(c echo.Context) policy.Subject {
	id, _ := c.Get(middleware.CtxIdentityID).(string)
	role, _ := c.Get(middleware.CtxRole).(string)
	return policy.Subject{
		ID:            id,
		Role:          role,
		Authenticated: id != "",
	}
}

// requireSubject is the fast-fail variant for routes that must never run
// anonymously. An empty identity id means the middleware did not run, which is
// a wiring bug, but the safe answer is still 401.
func requireSubject(c echo.Context) (policy.Subject, error) {
	subject := ctxSubject(c)
	if !subject.Authenticated {
		return policy.Subject{}, echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	return subject, nil
}
