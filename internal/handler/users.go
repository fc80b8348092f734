package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/account-service/internal/middleware"
	"github.com/iliyamo/account-service/internal/model"
	"github.com/iliyamo/account-service/internal/service"
)

// UsersHandler serves the /users/me profile endpoints.
type UsersHandler struct {
	Users *service.Directory
}

func NewUsersHandler(d *service.Directory) *UsersHandler {
	return &UsersHandler{Users: d}
}

type updateMeReq struct {
	Email     *string `json:"email" validate:"omitempty,email"`
	FirstName *string `json:"first_name" validate:"omitempty,min=1"`
	LastName  *string `json:"last_name" validate:"omitempty,min=1"`
	Password  *string `json:"password" validate:"omitempty,min=1"`
}

func currentUser(c echo.Context) (model.User, error) {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		return model.User{}, service.ErrUnauthenticated
	}
	return u, nil
}

func (h *UsersHandler) Me(c echo.Context) error {
	u, err := currentUser(c)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, toUserResponse(u), "User profile fetched successfully")
}

// UpdateMe changes the caller's own profile. Role and status flags are not
// accepted here.
func (h *UsersHandler) UpdateMe(c echo.Context) error {
	u, err := currentUser(c)
	if err != nil {
		return err
	}
	var req updateMeReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	updated, err := h.Users.Update(ctx, u.ID, model.UserPatch{
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Password:  req.Password,
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, toUserResponse(updated), "User profile updated successfully")
}

func (h *UsersHandler) DeleteMe(c echo.Context) error {
	u, err := currentUser(c)
	if err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	ok, err := h.Users.Delete(ctx, u.ID)
	if err != nil {
		return err
	}
	if !ok {
		return service.ErrNotFound
	}
	return respond(c, http.StatusOK, nil, "User deleted successfully")
}
