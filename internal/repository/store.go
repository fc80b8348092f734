package repository

import (
	"context"
	"time"

	"github.com/iliyamo/account-service/internal/model"
)

// UserStore is implemented by every user backend. Each implementation
// enforces email uniqueness on its own and reports conflicts as
// ErrEmailExists; that guard is authoritative, not the caller's lookup.
type UserStore interface {
	// Insert assigns a fresh id and persists u.
	Insert(ctx context.Context, u model.User) (model.User, error)
	GetByID(ctx context.Context, id string) (model.User, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	// Update applies the non-nil fields of upd and returns the stored record.
	Update(ctx context.Context, id string, upd UserUpdate) (model.User, error)
	// Delete reports whether a record was removed.
	Delete(ctx context.Context, id string) (bool, error)
	List(ctx context.Context, skip, limit int) ([]model.User, error)
	Count(ctx context.Context) (int64, error)
	// ValidID reports whether id is well-formed for this backend.
	ValidID(id string) bool
	Ping(ctx context.Context) error
}

// UserUpdate is a storage-level patch. The password arrives already hashed.
type UserUpdate struct {
	Email        *string
	FirstName    *string
	LastName     *string
	PasswordHash *string
	IsActive     *bool
	IsVerified   *bool
	Role         *model.Role
	UpdatedAt    time.Time
}

// apply copies the set fields of upd onto u.
func (upd UserUpdate) apply(u *model.User) {
	if upd.Email != nil {
		u.Email = *upd.Email
	}
	if upd.FirstName != nil {
		u.FirstName = *upd.FirstName
	}
	if upd.LastName != nil {
		u.LastName = *upd.LastName
	}
	if upd.PasswordHash != nil {
		u.PasswordHash = *upd.PasswordHash
	}
	if upd.IsActive != nil {
		u.IsActive = *upd.IsActive
	}
	if upd.IsVerified != nil {
		u.IsVerified = *upd.IsVerified
	}
	if upd.Role != nil {
		u.Role = *upd.Role
	}
	u.UpdatedAt = upd.UpdatedAt
}
