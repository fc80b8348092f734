package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/account-service/internal/model"
	"github.com/iliyamo/account-service/internal/service"
)

// AdminHandler serves /admin/users. Routes are mounted behind RequireAdmin.
type AdminHandler struct {
	Admin *service.AdminUsers
}

func NewAdminHandler(a *service.AdminUsers) *AdminHandler {
	return &AdminHandler{Admin: a}
}

type adminUpdateReq struct {
	Email      *string `json:"email" validate:"omitempty,email"`
	FirstName  *string `json:"first_name" validate:"omitempty,min=1"`
	LastName   *string `json:"last_name" validate:"omitempty,min=1"`
	Password   *string `json:"password" validate:"omitempty,min=1"`
	IsActive   *bool   `json:"is_active"`
	IsVerified *bool   `json:"is_verified"`
	Role       *string `json:"role" validate:"omitempty,oneof=user admin"`
}

type roleReq struct {
	Role string `json:"role" validate:"required,oneof=user admin"`
}

type userList struct {
	Items []userResponse `json:"items"`
	Total int64          `json:"total"`
	Skip  int            `json:"skip"`
	Limit int            `json:"limit"`
}

// List pages through all users; skip defaults to 0 and limit to 100.
func (h *AdminHandler) List(c echo.Context) error {
	skip, limit := 0, 100
	if err := echo.QueryParamsBinder(c).Int("skip", &skip).Int("limit", &limit).BindError(); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "skip and limit must be integers")
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	users, total, err := h.Admin.List(ctx, skip, limit)
	if err != nil {
		return err
	}
	out := userList{Items: make([]userResponse, 0, len(users)), Total: total, Skip: skip, Limit: limit}
	for _, u := range users {
		out.Items = append(out.Items, toUserResponse(u))
	}
	return respond(c, http.StatusOK, out, "Users retrieved successfully")
}

func (h *AdminHandler) Get(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()
	u, err := h.Admin.Get(ctx, c.Param("id"))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, toUserResponse(u), "User retrieved successfully")
}

func (h *AdminHandler) Update(c echo.Context) error {
	var req adminUpdateReq
	if err := bind(c, &req); err != nil {
		return err
	}
	patch := model.UserPatch{
		Email:      req.Email,
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Password:   req.Password,
		IsActive:   req.IsActive,
		IsVerified: req.IsVerified,
	}
	if req.Role != nil {
		r := model.Role(*req.Role)
		patch.Role = &r
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	u, err := h.Admin.Update(ctx, c.Param("id"), patch)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, toUserResponse(u), "User updated successfully")
}

func (h *AdminHandler) ChangeRole(c echo.Context) error {
	var req roleReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	u, err := h.Admin.ChangeRole(ctx, c.Param("id"), model.Role(req.Role))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, toUserResponse(u), "User role updated successfully")
}

func (h *AdminHandler) Delete(c echo.Context) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	if err := h.Admin.Delete(ctx, actor, c.Param("id")); err != nil {
		return err
	}
	return respond(c, http.StatusOK, nil, "User deleted successfully")
}
