// Package router builds the echo instance and registers the /v1 routes.
package router

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/iliyamo/account-service/internal/handler"
	"github.com/iliyamo/account-service/internal/middleware"
	"github.com/iliyamo/account-service/internal/service"
)

// New returns an echo instance with the validator, the error handler and
// the global middleware installed.
func New(log zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = handler.ErrorHandler(log)

	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger(log))
	return e
}

// RegisterHealth exposes the unauthenticated health probes. The system
// report goes through the response cache.
func RegisterHealth(e *echo.Echo, h *handler.HealthHandler, cache echo.MiddlewareFunc) {
	g := e.Group("/v1/health")
	g.GET("", h.Health)
	g.GET("/db", h.DB)
	g.GET("/storage", h.Storage)
	g.GET("/system", h.System, cache)
}

// RegisterAuth registers the session endpoints under /v1/auth. All of them
// are rate limited; none requires an existing session.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, limiter echo.MiddlewareFunc) {
	g := e.Group("/v1/auth", limiter)
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/logout", a.Logout)
	g.POST("/refresh", a.Refresh)
}

// RegisterUsers registers the caller's own profile endpoints.
func RegisterUsers(e *echo.Echo, h *handler.UsersHandler, gate *service.Gate) {
	g := e.Group("/v1/users", middleware.RequireUser(gate))
	g.GET("/me", h.Me)
	g.PUT("/me", h.UpdateMe)
	g.DELETE("/me", h.DeleteMe)
}
