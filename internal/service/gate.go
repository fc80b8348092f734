package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/iliyamo/account-service/internal/auth"
	"github.com/iliyamo/account-service/internal/model"
)

// Policy selects the predicate applied after the identity is loaded.
type Policy int

const (
	// PolicyActive admits any active account.
	PolicyActive Policy = iota
	// PolicyAdmin additionally requires the admin role.
	PolicyAdmin
)

// Gate derives the calling user from a bearer token. It holds no
// per-request state and is safe for concurrent use.
type Gate struct {
	tokens  *auth.TokenService
	revoked auth.RevocationSet
	users   *Directory
	log     zerolog.Logger
}

func NewGate(tokens *auth.TokenService, revoked auth.RevocationSet, users *Directory, log zerolog.Logger) *Gate {
	return &Gate{tokens: tokens, revoked: revoked, users: users, log: log}
}

// Authenticate resolves the Authorization header value to an active user.
// Missing, malformed, expired or revoked tokens and tokens for deleted users
// all yield ErrUnauthenticated; a disabled account yields
// ErrInactiveAccount.
func (g *Gate) Authenticate(ctx context.Context, header string) (model.User, error) {
	raw, ok := auth.BearerToken(header)
	if !ok {
		return model.User{}, fmt.Errorf("%w: %w", ErrUnauthenticated, ErrNoToken)
	}

	subject, err := g.tokens.VerifyAccess(raw)
	if err != nil {
		return model.User{}, fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}

	revoked, err := g.revoked.IsRevoked(ctx, raw)
	if err != nil {
		return model.User{}, fmt.Errorf("%w: revocation lookup: %w", ErrUnavailable, err)
	}
	if revoked {
		return model.User{}, fmt.Errorf("%w: token revoked", ErrUnauthenticated)
	}

	u, err := g.users.FindByID(ctx, subject)
	if errors.Is(err, ErrNotFound) {
		return model.User{}, fmt.Errorf("%w: unknown subject", ErrUnauthenticated)
	}
	if err != nil {
		return model.User{}, err
	}

	if !u.IsActive {
		return model.User{}, ErrInactiveAccount
	}
	return u, nil
}

// Authorize applies the policy to an already authenticated user.
func (g *Gate) Authorize(u model.User, p Policy) error {
	if p == PolicyAdmin && !u.IsAdmin() {
		g.log.Debug().Str("user_id", u.ID).Msg("admin access denied")
		return ErrForbidden
	}
	return nil
}

// Resolve runs Authenticate followed by Authorize.
func (g *Gate) Resolve(ctx context.Context, header string, p Policy) (model.User, error) {
	u, err := g.Authenticate(ctx, header)
	if err != nil {
		return model.User{}, err
	}
	if err := g.Authorize(u, p); err != nil {
		return model.User{}, err
	}
	return u, nil
}
