package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/civicore/community-api/internal/core/domain"
)

// RBAC restricts a route to the given roles. It reads the role that Session
// stored in context, so it must be chained after Session. The denial is
// surfaced as domain.ErrForbidden and mapped by the central error handler.
func RBAC(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, _ := c.Get(CtxRole).(string)
			for _, allowed := range roles {
				if role == allowed {
					return next(c)
				}
			}
			return domain.ErrForbidden
		}
	}
}
