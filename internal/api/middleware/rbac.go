package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/mfgops/operations-dashboard/internal/core/domain"
	"github.com/mfgops/operations-dashboard/internal/pkg/metrics"
)

// RequireRoles admits requests whose identity carries one of roles.
// It must run after RequireAuth or OptionalAuth.
func RequireRoles(roles ...domain.Role) echo.MiddlewareFunc {
	allowed := make(map[domain.Role]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	denied := domain.NewForbidden(roles)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, ok := domain.IdentityFromContext(c.Request().Context())
			if !ok {
				metrics.AuthorizationDenialsTotal.WithLabelValues("anonymous").Inc()
				return domain.ErrAuthenticationRequired
			}
			if _, ok := allowed[id.Role]; !ok {
				metrics.AuthorizationDenialsTotal.WithLabelValues(string(id.Role)).Inc()
				return denied
			}
			return next(c)
		}
	}
}

func AdminOnly() echo.MiddlewareFunc { return RequireRoles(domain.AdminOnlyRoles...) }

func AdminOrSupervisor() echo.MiddlewareFunc {
	return RequireRoles(domain.AdminOrSupervisorRoles...)
}

func StaffOnly() echo.MiddlewareFunc { return RequireRoles(domain.StaffRoles...) }
