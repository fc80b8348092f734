package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token kinds carried in the "type" claim.
const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

// Claims are the JWT claims issued by TokenService. Subject holds the user
// id and ID a random jti, so two tokens issued in the same second differ.
type Claims struct {
	Type string `json:"type,omitempty"`
	jwt.RegisteredClaims
}

// TokenConfig is loaded once at startup and never changes afterwards.
type TokenConfig struct {
	Secret     string
	Algorithm  string // HS256, HS384 or HS512
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// Token is a signed token together with its expiry.
type Token struct {
	Value     string
	ExpiresAt time.Time
}

// TokenService issues and verifies signed access and refresh tokens.
// It is safe for concurrent use.
type TokenService struct {
	key        []byte
	method     jwt.SigningMethod
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewTokenService validates cfg and builds a service. Only HMAC algorithms
// are accepted.
func NewTokenService(cfg TokenConfig) (*TokenService, error) {
	if cfg.Secret == "" {
		return nil, errors.New("token secret is empty")
	}
	alg := cfg.Algorithm
	if alg == "" {
		alg = jwt.SigningMethodHS256.Alg()
	}
	method, ok := jwt.GetSigningMethod(alg).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, alg)
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("token lifetimes must be positive")
	}
	return &TokenService{
		key:        []byte(cfg.Secret),
		method:     method,
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		now:        time.Now,
	}, nil
}

// IssueAccess returns a short-lived access token for subject.
func (s *TokenService) IssueAccess(subject string) (Token, error) {
	return s.issue(subject, TypeAccess, s.accessTTL)
}

// IssueRefresh returns a long-lived refresh token for subject.
func (s *TokenService) IssueRefresh(subject string) (Token, error) {
	return s.issue(subject, TypeRefresh, s.refreshTTL)
}

func (s *TokenService) issue(subject, kind string, ttl time.Duration) (Token, error) {
	if subject == "" {
		return Token{}, ErrMissingSubject
	}
	now := s.now().UTC()
	exp := now.Add(ttl)
	claims := Claims{
		Type: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(s.method, claims).SignedString(s.key)
	if err != nil {
		return Token{}, fmt.Errorf("sign %s token: %w", kind, err)
	}
	return Token{Value: signed, ExpiresAt: exp.Truncate(time.Second)}, nil
}

// parse checks signature, algorithm and expiry. Any failure is reported as
// ErrInvalidToken wrapping the library error.
func (s *TokenService) parse(raw string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return s.key, nil
	},
		jwt.WithValidMethods([]string{s.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	return claims, nil
}

// Verify returns the subject of a valid token of either kind. Revocation is
// not consulted here.
func (s *TokenService) Verify(raw string) (string, error) {
	claims, err := s.parse(raw)
	if err != nil {
		return "", err
	}
	if claims.Subject == "" {
		return "", ErrMissingSubject
	}
	return claims.Subject, nil
}

// VerifyAccess is Verify restricted to access tokens: a refresh token is
// rejected with ErrWrongTokenType.
func (s *TokenService) VerifyAccess(raw string) (string, error) {
	claims, err := s.parse(raw)
	if err != nil {
		return "", err
	}
	if claims.Type == TypeRefresh {
		return "", ErrWrongTokenType
	}
	if claims.Subject == "" {
		return "", ErrMissingSubject
	}
	return claims.Subject, nil
}

// Refresh exchanges a valid refresh token for a new access token. It returns
// the subject alongside so callers can check the account still exists.
func (s *TokenService) Refresh(raw string) (string, Token, error) {
	claims, err := s.parse(raw)
	if err != nil {
		return "", Token{}, err
	}
	if claims.Type != TypeRefresh {
		return "", Token{}, ErrWrongTokenType
	}
	if claims.Subject == "" {
		return "", Token{}, ErrMissingSubject
	}
	access, err := s.IssueAccess(claims.Subject)
	if err != nil {
		return "", Token{}, err
	}
	return claims.Subject, access, nil
}

// ExpiresAt reads the exp claim without checking the signature. It is used
// to size revocation entries, so the result never lies further out than the
// longest lifetime any issued token could have; undecodable tokens get that
// bound too.
func (s *TokenService) ExpiresAt(raw string) time.Time {
	limit := s.now().Add(s.refreshTTL)
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err == nil && claims.ExpiresAt != nil {
		if exp := claims.ExpiresAt.Time; exp.Before(limit) {
			return exp
		}
	}
	return limit
}

// AccessTTL is the configured access token lifetime.
func (s *TokenService) AccessTTL() time.Duration { return s.accessTTL }

// RefreshTTL is the configured refresh token lifetime.
func (s *TokenService) RefreshTTL() time.Duration { return s.refreshTTL }

// BearerToken extracts the token from an Authorization header value. The
// scheme is matched case-insensitively.
func BearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
