package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/account-service/internal/auth"
	"github.com/iliyamo/account-service/internal/service"
)

// AuthHandler serves register, login, logout and refresh.
type AuthHandler struct {
	Auth *service.AuthService
}

func NewAuthHandler(a *service.AuthService) *AuthHandler {
	return &AuthHandler{Auth: a}
}

// ----- DTOs -----

type registerReq struct {
	Email     string `json:"email" form:"email" validate:"required,email"`
	Password  string `json:"password" form:"password" validate:"required"`
	FirstName string `json:"first_name" form:"first_name" validate:"required"`
	LastName  string `json:"last_name" form:"last_name" validate:"required"`
}

type loginReq struct {
	Email    string `json:"email" form:"email" validate:"required,email"`
	Password string `json:"password" form:"password" validate:"required"`
}

type logoutReq struct {
	RefreshToken string `json:"refresh_token" form:"refresh_token"`
}

type refreshReq struct {
	RefreshToken string `json:"refresh_token" form:"refresh_token" validate:"required"`
}

type sessionResp struct {
	AccessToken      string       `json:"access_token"`
	TokenType        string       `json:"token_type"`
	ExpiresAt        time.Time    `json:"expires_at"`
	RefreshToken     string       `json:"refresh_token"`
	RefreshExpiresAt time.Time    `json:"refresh_expires_at"`
	User             userResponse `json:"user"`
}

type accessResp struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func toSessionResp(s *service.Session) sessionResp {
	return sessionResp{
		AccessToken:      s.Access.Value,
		TokenType:        s.TokenType,
		ExpiresAt:        s.Access.ExpiresAt,
		RefreshToken:     s.Refresh.Value,
		RefreshExpiresAt: s.Refresh.ExpiresAt,
		User:             toUserResponse(s.User),
	}
}

// Register creates a plain user account and signs it in.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	sess, err := h.Auth.Register(ctx, service.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, toSessionResp(sess), "User registered successfully")
}

func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	sess, err := h.Auth.Login(ctx, req.Email, req.Password)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, toSessionResp(sess), "Login successful")
}

// Logout revokes the bearer token from the Authorization header and, when
// present, the refresh token from the body. An unreadable body only matters
// when there is no bearer token to fall back on.
func (h *AuthHandler) Logout(c echo.Context) error {
	access, _ := auth.BearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
	var req logoutReq
	if err := c.Bind(&req); err != nil {
		if access == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
		}
		req = logoutReq{}
	}

	ctx, cancel := withTimeout(c)
	defer cancel()
	if err := h.Auth.Logout(ctx, access, req.RefreshToken); err != nil {
		return err
	}
	return respond(c, http.StatusOK, nil, "Successfully logged out")
}

func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	tok, err := h.Auth.Refresh(ctx, req.RefreshToken)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, accessResp{
		AccessToken: tok.Value,
		TokenType:   service.TokenType,
		ExpiresAt:   tok.ExpiresAt,
	}, "Token refreshed successfully")
}
