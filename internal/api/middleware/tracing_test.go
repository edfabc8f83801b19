package middleware

import (
	"errors"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/mfgops/operations-dashboard/internal/core/domain"
)

func TestTracing_SpanStatus(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec)))
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	mw := Tracing()

	cases := []struct {
		name string
		err  error
		want codes.Code
	}{
		{"success", nil, codes.Unset},
		{"invalid credentials", domain.ErrInvalidCredentials, codes.Unset},
		{"missing token", domain.ErrTokenRequired, codes.Unset},
		{"forbidden", domain.NewForbidden(domain.AdminOnlyRoles), codes.Unset},
		{"echo not found", echo.ErrNotFound, codes.Unset},
		{"token verification failure", domain.ErrTokenVerification, codes.Error},
		{"unclassified error", errors.New("store down"), codes.Error},
		{"echo 500", echo.NewHTTPError(http.StatusInternalServerError, "boom"), codes.Error},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			before := len(rec.Ended())
			c, _ := newContext("")
			_ = mw(func(echo.Context) error { return tc.err })(c)

			ended := rec.Ended()
			if len(ended) != before+1 {
				t.Fatalf("expected one finished span, got %d", len(ended)-before)
			}
			if got := ended[len(ended)-1].Status().Code; got != tc.want {
				t.Fatalf("expected status %v, got %v", tc.want, got)
			}
		})
	}
}
