package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/account-service/internal/service"
)

// RequireUser resolves the bearer token to an active account. Failures are
// returned as service errors and rendered by the HTTP error handler.
func RequireUser(gate *service.Gate) echo.MiddlewareFunc {
	return requirePolicy(gate, service.PolicyActive)
}

func requirePolicy(gate *service.Gate, p service.Policy) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			u, err := gate.Resolve(req.Context(), req.Header.Get(echo.HeaderAuthorization), p)
			if err != nil {
				return err
			}
			c.Set(userKey, u)
			c.SetRequest(req.WithContext(service.ContextWithActor(req.Context(), u.ID)))
			return next(c)
		}
	}
}
