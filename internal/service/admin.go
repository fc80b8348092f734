package service

import (
	"context"
	"fmt"

	"github.com/iliyamo/account-service/internal/model"
)

// AdminUsers wraps the directory with the rules that only apply to
// administrator-initiated changes.
type AdminUsers struct {
	users *Directory
}

func NewAdminUsers(users *Directory) *AdminUsers { return &AdminUsers{users: users} }

// checkID turns a malformed id into a validation error so callers can tell
// it apart from a well-formed id that does not exist.
func (a *AdminUsers) checkID(id string) error {
	if !a.users.ValidID(id) {
		return ErrInvalidID
	}
	return nil
}

func (a *AdminUsers) List(ctx context.Context, skip, limit int) ([]model.User, int64, error) {
	if skip < 0 || limit < 1 {
		return nil, 0, fmt.Errorf("%w: skip must be >= 0 and limit >= 1", ErrValidation)
	}
	return a.users.List(ctx, skip, limit)
}

func (a *AdminUsers) Get(ctx context.Context, id string) (model.User, error) {
	if err := a.checkID(id); err != nil {
		return model.User{}, err
	}
	return a.users.FindByID(ctx, id)
}

func (a *AdminUsers) Update(ctx context.Context, id string, patch model.UserPatch) (model.User, error) {
	if err := a.checkID(id); err != nil {
		return model.User{}, err
	}
	return a.users.Update(ctx, id, patch)
}

// ChangeRole is Update restricted to the role field.
func (a *AdminUsers) ChangeRole(ctx context.Context, id string, role model.Role) (model.User, error) {
	return a.Update(ctx, id, model.UserPatch{Role: &role})
}

// Delete removes another account. An administrator cannot delete itself.
func (a *AdminUsers) Delete(ctx context.Context, actor model.User, id string) error {
	if err := a.checkID(id); err != nil {
		return err
	}
	if id == actor.ID {
		return ErrSelfDeletion
	}
	ok, err := a.users.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}
