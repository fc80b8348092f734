package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/account-service/internal/auth"
	"github.com/iliyamo/account-service/internal/model"
	"github.com/iliyamo/account-service/internal/repository"
	"github.com/iliyamo/account-service/internal/service"
)

func newGate(t *testing.T) (*service.Gate, *service.Directory, *auth.TokenService) {
	t.Helper()
	hasher, err := auth.NewPasswordHasher("bcrypt", 4, 4)
	require.NoError(t, err)
	tokens, err := auth.NewTokenService(auth.TokenConfig{Secret: "s", AccessTTL: time.Minute, RefreshTTL: time.Hour})
	require.NoError(t, err)
	users := service.NewDirectory(repository.NewMemoryUserStore(), hasher, nil, zerolog.Nop())
	return service.NewGate(tokens, auth.NewMemoryRevocationSet(7 * 24 * time.Hour), users, zerolog.Nop()), users, tokens
}

func TestRequireUserAndAdmin(t *testing.T) {
	gate, users, tokens := newGate(t)
	ctx := context.Background()
	u, err := users.Create(ctx, model.NewUser{Email: "a@example.com", Password: "pw123", FirstName: "A", LastName: "B"})
	require.NoError(t, err)
	tok, err := tokens.IssueAccess(u.ID)
	require.NoError(t, err)

	var seen model.User
	e := echo.New()
	e.GET("/me", func(c echo.Context) error {
		seen, _ = CurrentUser(c)
		return c.NoContent(http.StatusOK)
	}, RequireUser(gate))
	e.GET("/admin", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, RequireAdmin(gate))

	do := func(path, header string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		if header != "" {
			req.Header.Set(echo.HeaderAuthorization, header)
		}
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusOK, do("/me", "Bearer "+tok.Value).Code)
	assert.Equal(t, u.ID, seen.ID)

	// the default echo error handler renders non-HTTP errors as 500; the
	// application installs its own mapping
	assert.NotEqual(t, http.StatusOK, do("/me", "").Code)
	assert.NotEqual(t, http.StatusOK, do("/admin", "Bearer "+tok.Value).Code)
}

func TestRequirePolicy_ReturnsServiceErrors(t *testing.T) {
	gate, users, tokens := newGate(t)
	ctx := context.Background()
	u, err := users.Create(ctx, model.NewUser{Email: "a@example.com", Password: "pw123", FirstName: "A", LastName: "B"})
	require.NoError(t, err)
	tok, err := tokens.IssueAccess(u.ID)
	require.NoError(t, err)

	e := echo.New()
	run := func(mw echo.MiddlewareFunc, header string) error {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(echo.HeaderAuthorization, header)
		c := e.NewContext(req, httptest.NewRecorder())
		return mw(func(c echo.Context) error { return nil })(c)
	}

	assert.ErrorIs(t, run(RequireUser(gate), ""), service.ErrUnauthenticated)
	assert.ErrorIs(t, run(RequireAdmin(gate), "Bearer "+tok.Value), service.ErrForbidden)
	assert.NoError(t, run(RequireUser(gate), "Bearer "+tok.Value))
}
