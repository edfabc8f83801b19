package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/mfgops/operations-dashboard/docs"
	"github.com/mfgops/operations-dashboard/internal/api/handler"
	"github.com/mfgops/operations-dashboard/internal/api/middleware"
	"github.com/mfgops/operations-dashboard/internal/core/ports"
)

// Deps carries everything the router needs. Registerer and Gatherer default
// to the global Prometheus registry.
type Deps struct {
	Auth               ports.AuthService
	Tokens             ports.TokenService
	Health             map[string]handler.Pinger
	Log                zerolog.Logger
	ExposeErrorDetails bool
	Registerer         prometheus.Registerer
	Gatherer           prometheus.Gatherer
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	if d.Registerer == nil {
		d.Registerer = prometheus.DefaultRegisterer
	}
	if d.Gatherer == nil {
		d.Gatherer = prometheus.DefaultGatherer
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Log, d.ExposeErrorDetails)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(middleware.RequestLogger(d.Log))
	e.Use(middleware.Tracing())
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "http",
		Registerer: d.Registerer,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/metrics"
		},
	}))

	authHandler := handler.NewAuthHandler(d.Auth)
	userHandler := handler.NewUserHandler(d.Auth)
	requireAuth := middleware.RequireAuth(d.Tokens)

	// --- Credential issuance ---
	e.POST("/signup", authHandler.Signup)
	e.POST("/login", authHandler.Login)

	// --- Session views ---
	e.GET("/me", userHandler.Me, requireAuth)
	e.GET("/session", userHandler.Session, middleware.OptionalAuth(d.Tokens, d.Log))

	// --- Role-gated directory ---
	e.GET("/users", userHandler.List, requireAuth, middleware.AdminOnly())
	e.GET("/users/:id", userHandler.Get, requireAuth, middleware.AdminOrSupervisor())
	e.GET("/roles", userHandler.Roles, requireAuth, middleware.StaffOnly())

	// --- Health probes (no auth required) ---
	health := handler.NewHealthHandler(d.Health)
	e.GET("/health", health.Liveness)
	e.GET("/health/ready", health.Readiness)

	// --- Ops ---
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: d.Gatherer}))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}
