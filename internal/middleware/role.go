package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/account-service/internal/service"
)

// RequireAdmin is RequireUser plus the admin role check. A non-admin caller
// gets service.ErrForbidden.
func RequireAdmin(gate *service.Gate) echo.MiddlewareFunc {
	return requirePolicy(gate, service.PolicyAdmin)
}
