package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/account-service/internal/auth"
	"github.com/iliyamo/account-service/internal/model"
)

func TestAuthService_Flow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	sess, err := env.auth.Register(ctx, RegisterInput{
		Email: "alice@example.com", Password: "pw123", FirstName: "Alice", LastName: "Liddell",
	})
	require.NoError(t, err)
	assert.Equal(t, "bearer", sess.TokenType)
	assert.Equal(t, model.RoleUser, sess.User.Role)

	_, err = env.auth.Register(ctx, RegisterInput{
		Email: "alice@example.com", Password: "pw123", FirstName: "Alice", LastName: "Liddell",
	})
	assert.ErrorIs(t, err, ErrDuplicateEmail)

	_, err = env.auth.Login(ctx, "alice@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	login, err := env.auth.Login(ctx, "alice@example.com", "pw123")
	require.NoError(t, err)
	assert.Equal(t, sess.User.ID, login.User.ID)

	me, err := env.gate.Resolve(ctx, bearer(login.Access), PolicyActive)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", me.Email)

	access, err := env.auth.Refresh(ctx, login.Refresh.Value)
	require.NoError(t, err)
	_, err = env.gate.Resolve(ctx, bearer(access), PolicyActive)
	require.NoError(t, err)

	_, err = env.auth.Refresh(ctx, login.Access.Value)
	assert.ErrorIs(t, err, auth.ErrWrongTokenType)

	require.NoError(t, env.auth.Logout(ctx, login.Access.Value, login.Refresh.Value))

	_, err = env.gate.Resolve(ctx, bearer(login.Access), PolicyActive)
	assert.ErrorIs(t, err, ErrUnauthenticated)
	_, err = env.auth.Refresh(ctx, login.Refresh.Value)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)

	// tokens issued before logout but not presented stay valid
	_, err = env.gate.Resolve(ctx, bearer(sess.Access), PolicyActive)
	assert.NoError(t, err)
}

func TestAuthService_LoginInactive(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := createAlice(t, env)
	_, err := env.users.Update(ctx, u.ID, model.UserPatch{IsActive: ptr(false)})
	require.NoError(t, err)

	_, err = env.auth.Login(ctx, "alice@example.com", "pw123")
	assert.ErrorIs(t, err, ErrInactiveAccount)

	_, err = env.auth.Login(ctx, "alice@example.com", "nope")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthService_Logout(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	assert.ErrorIs(t, env.auth.Logout(ctx, "", "  "), ErrNoToken)

	// unverifiable tokens are still recorded
	require.NoError(t, env.auth.Logout(ctx, "garbage", ""))
	revoked, err := env.revoked.IsRevoked(ctx, "garbage")
	require.NoError(t, err)
	assert.True(t, revoked)
}

func TestAuthService_RefreshChecksAccount(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := createAlice(t, env)

	refresh, err := env.tokens.IssueRefresh(u.ID)
	require.NoError(t, err)

	_, err = env.auth.Refresh(ctx, "")
	assert.ErrorIs(t, err, ErrNoToken)

	_, err = env.users.Update(ctx, u.ID, model.UserPatch{IsActive: ptr(false)})
	require.NoError(t, err)
	_, err = env.auth.Refresh(ctx, refresh.Value)
	assert.ErrorIs(t, err, ErrInactiveAccount)

	ok, err := env.users.Delete(ctx, u.ID)
	require.NoError(t, err)
	require.True(t, ok)
	_, err = env.auth.Refresh(ctx, refresh.Value)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestAuthService_RegisterLoginUpdateScenario(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.auth.Register(ctx, RegisterInput{
		Email: "alice@example.com", Password: "pw123", FirstName: "Alice", LastName: "Liddell",
	})
	require.NoError(t, err)

	_, err = env.auth.Login(ctx, "alice@example.com", "wrongpw")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	sess, err := env.auth.Login(ctx, "alice@example.com", "pw123")
	require.NoError(t, err)
	require.NotEmpty(t, sess.Access.Value)
	require.NotEmpty(t, sess.Refresh.Value)

	me, err := env.gate.Resolve(ctx, bearer(sess.Access), PolicyActive)
	require.NoError(t, err)
	_, err = env.users.Update(ctx, me.ID, model.UserPatch{FirstName: ptr("Alicia")})
	require.NoError(t, err)

	got, err := env.users.FindByID(ctx, me.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alicia", got.FirstName)
}
