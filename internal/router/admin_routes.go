package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/account-service/internal/handler"
	"github.com/iliyamo/account-service/internal/middleware"
	"github.com/iliyamo/account-service/internal/service"
)

// RegisterAdmin registers user management under /v1/admin. Every route
// requires an active admin.
func RegisterAdmin(e *echo.Echo, h *handler.AdminHandler, gate *service.Gate) {
	g := e.Group("/v1/admin", middleware.RequireAdmin(gate))
	g.GET("/users", h.List)
	g.GET("/users/:id", h.Get)
	g.PATCH("/users/:id", h.Update)
	g.PUT("/users/:id/role", h.ChangeRole)
	g.DELETE("/users/:id", h.Delete)
}
