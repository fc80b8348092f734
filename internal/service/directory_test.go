package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/account-service/internal/auth"
	"github.com/iliyamo/account-service/internal/model"
	"github.com/iliyamo/account-service/internal/queue"
)

func ptr[T any](v T) *T { return &v }

func createAlice(t *testing.T, env *testEnv) model.User {
	t.Helper()
	u, err := env.users.Create(context.Background(), model.NewUser{
		Email: "alice@example.com", Password: "pw123", FirstName: "Alice", LastName: "Liddell",
	})
	require.NoError(t, err)
	return u
}

func TestDirectory_Create(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	u, err := env.users.Create(ctx, model.NewUser{
		Email: "  Alice@Example.COM ", Password: "pw123", FirstName: " Alice ", LastName: "Liddell",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, u.ID)
	assert.Equal(t, "alice@example.com", u.Email)
	assert.Equal(t, "Alice", u.FirstName)
	assert.Equal(t, model.RoleUser, u.Role)
	assert.True(t, u.IsActive)
	assert.False(t, u.IsVerified)
	assert.NotEqual(t, "pw123", u.PasswordHash)
	assert.False(t, u.CreatedAt.IsZero())
	assert.Equal(t, u.CreatedAt, u.UpdatedAt)

	got, err := env.users.FindByEmail(ctx, "ALICE@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	assert.Equal(t, []string{queue.EventUserCreated}, env.events.types())
}

func TestDirectory_CreateRejects(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	createAlice(t, env)

	cases := []struct {
		name string
		in   model.NewUser
		want error
	}{
		{"duplicate email", model.NewUser{Email: "alice@example.com", Password: "pw123", FirstName: "A", LastName: "B"}, ErrDuplicateEmail},
		{"duplicate email other case", model.NewUser{Email: "ALICE@example.com", Password: "pw123", FirstName: "A", LastName: "B"}, ErrDuplicateEmail},
		{"missing first name", model.NewUser{Email: "b@example.com", Password: "pw123", LastName: "B"}, ErrValidation},
		{"missing email", model.NewUser{Password: "pw123", FirstName: "A", LastName: "B"}, ErrValidation},
		{"short password", model.NewUser{Email: "b@example.com", Password: "pw", FirstName: "A", LastName: "B"}, ErrValidation},
		{"unknown role", model.NewUser{Email: "b@example.com", Password: "pw123", FirstName: "A", LastName: "B", Role: "root"}, ErrValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.users.Create(ctx, tc.in)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestDirectory_CreateConcurrentSameEmail(t *testing.T) {
	env := newTestEnv(t)
	var ok, dup atomic.Int32
	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.users.Create(context.Background(), model.NewUser{
				Email: "race@example.com", Password: "pw123", FirstName: "R", LastName: "C",
			})
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, ErrDuplicateEmail):
				dup.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 1, ok.Load())
	assert.EqualValues(t, 9, dup.Load())
}

func TestDirectory_UpdatePatch(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := createAlice(t, env)

	later := u.CreatedAt.Add(time.Minute)
	env.users.now = func() time.Time { return later }

	got, err := env.users.Update(ctx, u.ID, model.UserPatch{FirstName: ptr("Alicia")})
	require.NoError(t, err)
	assert.Equal(t, "Alicia", got.FirstName)
	assert.Equal(t, "Liddell", got.LastName)
	assert.Equal(t, u.Email, got.Email)
	assert.Equal(t, u.PasswordHash, got.PasswordHash)
	assert.Equal(t, u.CreatedAt, got.CreatedAt)
	assert.True(t, got.UpdatedAt.Equal(later.UTC()))
	assert.False(t, got.UpdatedAt.Before(got.CreatedAt))

	// password goes through the hasher
	_, err = env.users.Update(ctx, u.ID, model.UserPatch{Password: ptr("newpass")})
	require.NoError(t, err)
	_, err = env.users.Authenticate(ctx, u.Email, "pw123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = env.users.Authenticate(ctx, u.Email, "newpass")
	assert.NoError(t, err)

	last := env.events.events[len(env.events.events)-1]
	assert.Equal(t, queue.EventUserUpdated, last.Type)
	assert.Equal(t, []string{"password"}, last.Fields)
}

func TestDirectory_UpdateRejects(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := createAlice(t, env)
	_, err := env.users.Create(ctx, model.NewUser{Email: "bob@example.com", Password: "pw123", FirstName: "Bob", LastName: "B"})
	require.NoError(t, err)

	_, err = env.users.Update(ctx, u.ID, model.UserPatch{Email: ptr("BOB@example.com")})
	assert.ErrorIs(t, err, ErrDuplicateEmail)

	_, err = env.users.Update(ctx, u.ID, model.UserPatch{LastName: ptr("  ")})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = env.users.Update(ctx, u.ID, model.UserPatch{Role: ptr(model.Role("owner"))})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = env.users.Update(ctx, "not-an-id", model.UserPatch{FirstName: ptr("x")})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = env.users.Update(ctx, "7c9e6679-7425-40de-944b-e07fc1f90ae7", model.UserPatch{FirstName: ptr("x")})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDirectory_Authenticate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := createAlice(t, env)

	got, err := env.users.Authenticate(ctx, "Alice@example.com", "pw123")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = env.users.Authenticate(ctx, "alice@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = env.users.Authenticate(ctx, "nobody@example.com", "pw123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestDirectory_Delete(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := createAlice(t, env)

	ok, err := env.users.Delete(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = env.users.FindByID(ctx, u.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	ok, err = env.users.Delete(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = env.users.Delete(ctx, "garbage")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Equal(t, []string{queue.EventUserCreated, queue.EventUserDeleted}, env.events.types())
}

func TestDirectory_List(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, email := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		at := base.Add(time.Duration(i) * time.Minute)
		env.users.now = func() time.Time { return at }
		_, err := env.users.Create(ctx, model.NewUser{Email: email, Password: "pw123", FirstName: "F", LastName: "L"})
		require.NoError(t, err)
	}

	users, total, err := env.users.List(ctx, 1, 1)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, users, 1)
	assert.Equal(t, "b@example.com", users[0].Email)
}

func TestDirectory_StoreFailure(t *testing.T) {
	hasher, err := auth.NewPasswordHasher("bcrypt", 4, 4)
	require.NoError(t, err)
	d := NewDirectory(failingStore{}, hasher, nil, zerolog.Nop())

	_, err = d.FindByEmail(context.Background(), "a@example.com")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, err, errDriver)

	_, err = d.Create(context.Background(), model.NewUser{Email: "a@example.com", Password: "pw123", FirstName: "A", LastName: "B"})
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestDirectory_PublishFailureIsNotFatal(t *testing.T) {
	env := newTestEnv(t)
	env.events.err = errors.New("broker down")

	ctx := ContextWithActor(context.Background(), "admin-1")
	u, err := env.users.Create(ctx, model.NewUser{Email: "a@example.com", Password: "pw123", FirstName: "A", LastName: "B"})
	require.NoError(t, err)
	assert.NotEmpty(t, u.ID)
	require.Len(t, env.events.events, 1)
	assert.Equal(t, "admin-1", env.events.events[0].ActorID)
}
