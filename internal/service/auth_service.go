package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/iliyamo/account-service/internal/auth"
	"github.com/iliyamo/account-service/internal/model"
)

// TokenType is reported to clients alongside issued tokens.
const TokenType = "bearer"

// Session is the result of a successful register or login.
type Session struct {
	User      model.User
	Access    auth.Token
	Refresh   auth.Token
	TokenType string
}

// RegisterInput is the self-service registration payload. Registration
// always creates a plain user.
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// AuthService implements register, login, logout and refresh on top of the
// directory and the token service.
type AuthService struct {
	users   *Directory
	tokens  *auth.TokenService
	revoked auth.RevocationSet
	log     zerolog.Logger
}

func NewAuthService(users *Directory, tokens *auth.TokenService, revoked auth.RevocationSet, log zerolog.Logger) *AuthService {
	return &AuthService{users: users, tokens: tokens, revoked: revoked, log: log}
}

func (s *AuthService) session(u model.User) (*Session, error) {
	access, err := s.tokens.IssueAccess(u.ID)
	if err != nil {
		return nil, err
	}
	refresh, err := s.tokens.IssueRefresh(u.ID)
	if err != nil {
		return nil, err
	}
	return &Session{User: u, Access: access, Refresh: refresh, TokenType: TokenType}, nil
}

// Register creates the account and signs the caller in.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	u, err := s.users.Create(ctx, model.NewUser{
		Email:     in.Email,
		Password:  in.Password,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Role:      model.RoleUser,
	})
	if err != nil {
		return nil, err
	}
	return s.session(u)
}

// Login checks credentials, then the active flag.
func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {
	u, err := s.users.Authenticate(ctx, email, password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			s.log.Info().Msg("login rejected")
		}
		return nil, err
	}
	if !u.IsActive {
		return nil, ErrInactiveAccount
	}
	s.log.Info().Str("user_id", u.ID).Msg("login")
	return s.session(u)
}

// Logout revokes every supplied token. Tokens are revoked even when they
// no longer verify, so a stolen copy cannot outlive the logout.
func (s *AuthService) Logout(ctx context.Context, accessToken, refreshToken string) error {
	var tokens []string
	for _, t := range []string{accessToken, refreshToken} {
		if t = strings.TrimSpace(t); t != "" {
			tokens = append(tokens, t)
		}
	}
	if len(tokens) == 0 {
		return ErrNoToken
	}
	for _, t := range tokens {
		if err := s.revoked.Revoke(ctx, t, s.tokens.ExpiresAt(t)); err != nil {
			return fmt.Errorf("%w: revoke: %w", ErrUnavailable, err)
		}
	}
	s.log.Info().Int("tokens", len(tokens)).Msg("logout")
	return nil
}

// Refresh exchanges a refresh token for a new access token. Revoked refresh
// tokens and tokens of deleted or disabled accounts are refused.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (auth.Token, error) {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return auth.Token{}, ErrNoToken
	}
	revoked, err := s.revoked.IsRevoked(ctx, refreshToken)
	if err != nil {
		return auth.Token{}, fmt.Errorf("%w: revocation lookup: %w", ErrUnavailable, err)
	}
	if revoked {
		return auth.Token{}, fmt.Errorf("%w: token revoked", auth.ErrInvalidToken)
	}

	subject, access, err := s.tokens.Refresh(refreshToken)
	if err != nil {
		return auth.Token{}, err
	}

	u, err := s.users.FindByID(ctx, subject)
	if errors.Is(err, ErrNotFound) {
		return auth.Token{}, fmt.Errorf("%w: unknown subject", auth.ErrInvalidToken)
	}
	if err != nil {
		return auth.Token{}, err
	}
	if !u.IsActive {
		return auth.Token{}, ErrInactiveAccount
	}
	return access, nil
}
