package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/iliyamo/account-service/internal/model"
)

// EnsureAdmin creates an active, verified administrator unless an account
// with that email already exists. Empty arguments make it a no-op.
func EnsureAdmin(ctx context.Context, users *Directory, email, password string, log zerolog.Logger) error {
	if email == "" || password == "" {
		return nil
	}
	_, err := users.FindByEmail(ctx, email)
	if err == nil {
		log.Debug().Msg("admin account already present")
		return nil
	}
	if !errors.Is(err, ErrNotFound) {
		return err
	}
	u, err := users.Create(ctx, model.NewUser{
		Email:      email,
		Password:   password,
		FirstName:  "Admin",
		LastName:   "User",
		Role:       model.RoleAdmin,
		IsVerified: true,
	})
	if errors.Is(err, ErrDuplicateEmail) {
		return nil
	}
	if err != nil {
		return err
	}
	log.Info().Str("user_id", u.ID).Msg("admin account created")
	return nil
}
