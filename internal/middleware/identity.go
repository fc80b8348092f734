package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/account-service/internal/model"
)

// userKey is the echo context key under which RequireUser stores the caller.
const userKey = "user"

// CurrentUser returns the user resolved by RequireUser or RequireAdmin.
func CurrentUser(c echo.Context) (model.User, bool) {
	u, ok := c.Get(userKey).(model.User)
	return u, ok
}

// userID identifies the caller for rate limit keys. Unauthenticated
// requests share the "anon" bucket.
func userID(c echo.Context) string {
	if u, ok := CurrentUser(c); ok && u.ID != "" {
		return u.ID
	}
	return "anon"
}
