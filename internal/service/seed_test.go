package service

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/account-service/internal/model"
)

func TestEnsureAdmin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, EnsureAdmin(ctx, env.users, "", "", zerolog.Nop()))
	n, err := env.store.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, EnsureAdmin(ctx, env.users, "Admin@Example.com", "s3cret", zerolog.Nop()))
	u, err := env.users.FindByEmail(ctx, "admin@example.com")
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, u.Role)
	assert.True(t, u.IsActive)
	assert.True(t, u.IsVerified)

	// second run is a no-op
	require.NoError(t, EnsureAdmin(ctx, env.users, "admin@example.com", "other", zerolog.Nop()))
	n, err = env.store.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}
