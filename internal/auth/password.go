package auth

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/matthewhartstonge/argon2"
	"golang.org/x/crypto/bcrypt"
)

// Password hashing algorithms understood by NewPasswordHasher.
const (
	AlgBcrypt   = "bcrypt"
	AlgArgon2id = "argon2id"
)

// bcrypt ignores everything past 72 bytes, so longer input is refused.
const bcryptMaxBytes = 72

// Hasher hashes and verifies user passwords.
type Hasher interface {
	Hash(password string) (string, error)
	Verify(password, credential string) bool
}

// PasswordHasher produces salted one-way credentials. New credentials use the
// configured algorithm; Verify accepts both bcrypt and argon2id encodings so
// the algorithm can be switched without invalidating stored passwords.
type PasswordHasher struct {
	algorithm string
	cost      int
	minLength int
	argon     argon2.Config
}

// NewPasswordHasher validates the algorithm and returns a hasher. A cost
// outside bcrypt's range falls back to bcrypt.DefaultCost.
func NewPasswordHasher(algorithm string, cost, minLength int) (*PasswordHasher, error) {
	algorithm = strings.ToLower(strings.TrimSpace(algorithm))
	switch algorithm {
	case "", AlgBcrypt:
		algorithm = AlgBcrypt
	case "argon2", AlgArgon2id:
		algorithm = AlgArgon2id
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, algorithm)
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	if minLength < 1 {
		minLength = 1
	}
	return &PasswordHasher{
		algorithm: algorithm,
		cost:      cost,
		minLength: minLength,
		argon:     argon2.DefaultConfig(),
	}, nil
}

// Algorithm returns the algorithm used for new credentials.
func (h *PasswordHasher) Algorithm() string { return h.algorithm }

// Check applies the password policy without hashing.
func (h *PasswordHasher) Check(password string) error {
	if password == "" {
		return ErrEmptyPassword
	}
	if utf8.RuneCountInString(password) < h.minLength {
		return fmt.Errorf("%w: minimum is %d characters", ErrPasswordTooShort, h.minLength)
	}
	if h.algorithm == AlgBcrypt && len(password) > bcryptMaxBytes {
		return fmt.Errorf("%w: maximum is %d bytes", ErrPasswordTooLong, bcryptMaxBytes)
	}
	return nil
}

// Hash returns a new credential for password. Every call uses a fresh salt.
func (h *PasswordHasher) Hash(password string) (string, error) {
	if err := h.Check(password); err != nil {
		return "", err
	}
	if h.algorithm == AlgArgon2id {
		encoded, err := h.argon.HashEncoded([]byte(password))
		if err != nil {
			return "", fmt.Errorf("argon2 hash: %w", err)
		}
		return string(encoded), nil
	}
	b, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("bcrypt hash: %w", err)
	}
	return string(b), nil
}

// Verify reports whether password matches credential. Malformed or empty
// credentials simply do not match.
func (h *PasswordHasher) Verify(password, credential string) bool {
	if credential == "" {
		return false
	}
	if strings.HasPrefix(credential, "$argon2") {
		ok, err := argon2.VerifyEncoded([]byte(password), []byte(credential))
		return err == nil && ok
	}
	return bcrypt.CompareHashAndPassword([]byte(credential), []byte(password)) == nil
}
