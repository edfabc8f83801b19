package middleware

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/mfgops/operations-dashboard/internal/core/domain"
)

const tracerName = "github.com/mfgops/operations-dashboard/internal/api"

// Tracing starts a server span per request, continuing any incoming
// W3C trace context.
func Tracing() echo.MiddlewareFunc {
	tracer := otel.Tracer(tracerName)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			ctx := otel.GetTextMapPropagator().Extract(req.Context(), propagation.HeaderCarrier(req.Header))

			route := c.Path()
			ctx, span := tracer.Start(ctx, req.Method+" "+route,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					attribute.String("http.request.method", req.Method),
					attribute.String("http.route", route),
				),
			)
			defer span.End()

			c.SetRequest(req.WithContext(ctx))

			err := next(c)
			if err != nil {
				span.RecordError(err)
				if isServerFault(err) {
					span.SetStatus(codes.Error, err.Error())
				}
				return err
			}
			span.SetAttributes(attribute.Int("http.response.status_code", c.Response().Status))
			return nil
		}
	}
}

// isServerFault reports whether err should mark the span as failed. Rejected
// credentials and bad input are expected outcomes.
func isServerFault(err error) bool {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code >= http.StatusInternalServerError
	}
	return domain.KindOf(err) == domain.KindInternal
}
