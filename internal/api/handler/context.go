package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/mfgops/operations-dashboard/internal/core/domain"
)

// requestMeta collects the transport details recorded in the audit trail.
// The request ID is the one written by echo's RequestID middleware.
func requestMeta(c echo.Context) domain.RequestMeta {
	rid := c.Response().Header().Get(echo.HeaderXRequestID)
	if rid == "" {
		rid = c.Request().Header.Get(echo.HeaderXRequestID)
	}
	return domain.RequestMeta{RemoteIP: c.RealIP(), RequestID: rid}
}

// ctxIdentity returns the identity attached by the auth gate. Routes behind
// RequireAuth always have one; its absence means the route was mis-wired.
func ctxIdentity(c echo.Context) (*domain.Identity, error) {
	id, ok := domain.IdentityFromContext(c.Request().Context())
	if !ok {
		return nil, domain.ErrAuthenticationRequired
	}
	return id, nil
}
