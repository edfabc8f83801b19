package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/mfgops/operations-dashboard/internal/core/domain"
	"github.com/mfgops/operations-dashboard/internal/core/ports"
	"github.com/mfgops/operations-dashboard/internal/pkg/metrics"
)

// RequireAuth verifies the session token and attaches the identity to the
// request context. Failures are returned as domain errors for the central
// error handler.
func RequireAuth(tokens ports.TokenService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if raw == "" {
				metrics.TokenVerificationsTotal.WithLabelValues("missing").Inc()
				return domain.ErrTokenRequired
			}

			id, err := tokens.Verify(c.Request().Context(), raw)
			if err != nil {
				metrics.TokenVerificationsTotal.WithLabelValues(verifyResult(err)).Inc()
				return err
			}

			metrics.TokenVerificationsTotal.WithLabelValues("valid").Inc()
			attachIdentity(c, id)
			return next(c)
		}
	}
}

// OptionalAuth attaches the identity when a valid token is present and
// otherwise lets the request through untouched.
func OptionalAuth(tokens ports.TokenService, log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if raw == "" {
				return next(c)
			}

			id, err := tokens.Verify(c.Request().Context(), raw)
			if err != nil {
				metrics.TokenVerificationsTotal.WithLabelValues(verifyResult(err)).Inc()
				log.Debug().Err(err).Msg("optional auth: ignoring unusable token")
				return next(c)
			}

			metrics.TokenVerificationsTotal.WithLabelValues("valid").Inc()
			attachIdentity(c, id)
			return next(c)
		}
	}
}

// bearerToken returns the second whitespace-separated field of the header.
// The scheme word itself is not checked.
func bearerToken(header string) string {
	fields := strings.Fields(header)
	if len(fields) < 2 {
		return ""
	}
	return fields[1]
}

func attachIdentity(c echo.Context, id *domain.Identity) {
	req := c.Request()
	c.SetRequest(req.WithContext(domain.ContextWithIdentity(req.Context(), id)))
}

func verifyResult(err error) string {
	if domain.KindOf(err) == domain.KindInvalidCredential {
		return "invalid"
	}
	return "error"
}
