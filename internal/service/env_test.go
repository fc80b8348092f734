package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/account-service/internal/auth"
	"github.com/iliyamo/account-service/internal/model"
	"github.com/iliyamo/account-service/internal/queue"
	"github.com/iliyamo/account-service/internal/repository"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.UserEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev queue.UserEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

// failingStore makes every call fail with a driver-level error.
type failingStore struct{ repository.UserStore }

var errDriver = errors.New("connection refused")

func (failingStore) GetByEmail(context.Context, string) (model.User, error) {
	return model.User{}, errDriver
}

func (failingStore) Insert(context.Context, model.User) (model.User, error) {
	return model.User{}, errDriver
}

type testEnv struct {
	store   *repository.MemoryUserStore
	events  *recordingPublisher
	users   *Directory
	tokens  *auth.TokenService
	revoked *auth.MemoryRevocationSet
	gate    *Gate
	auth    *AuthService
	admin   *AdminUsers
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	hasher, err := auth.NewPasswordHasher("bcrypt", 4, 4)
	require.NoError(t, err)
	tokens, err := auth.NewTokenService(auth.TokenConfig{
		Secret:     "test-secret",
		Algorithm:  "HS256",
		AccessTTL:  30 * time.Minute,
		RefreshTTL: 7 * 24 * time.Hour,
	})
	require.NoError(t, err)

	env := &testEnv{
		store:   repository.NewMemoryUserStore(),
		events:  &recordingPublisher{},
		tokens:  tokens,
		revoked: auth.NewMemoryRevocationSet(7 * 24 * time.Hour),
	}
	log := zerolog.Nop()
	env.users = NewDirectory(env.store, hasher, env.events, log)
	env.gate = NewGate(tokens, env.revoked, env.users, log)
	env.auth = NewAuthService(env.users, tokens, env.revoked, log)
	env.admin = NewAdminUsers(env.users)
	return env
}

func bearer(tok auth.Token) string { return "Bearer " + tok.Value }
