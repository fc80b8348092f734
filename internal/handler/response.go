package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/iliyamo/account-service/internal/auth"
	"github.com/iliyamo/account-service/internal/model"
	"github.com/iliyamo/account-service/internal/service"
)

// requestTimeout bounds store and storage calls made by a handler.
const requestTimeout = 5 * time.Second

func withTimeout(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// envelope is the body of every JSON response.
type envelope struct {
	Success   bool      `json:"success"`
	Data      any       `json:"data"`
	Message   string    `json:"message"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func respond(c echo.Context, status int, data any, message string) error {
	return c.JSON(status, envelope{Success: true, Data: data, Message: message, Timestamp: time.Now().UTC()})
}

type userResponse struct {
	ID         string    `json:"id"`
	Email      string    `json:"email"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	IsActive   bool      `json:"is_active"`
	IsVerified bool      `json:"is_verified"`
	Role       string    `json:"role"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func toUserResponse(u model.User) userResponse {
	return userResponse{
		ID:         u.ID,
		Email:      u.Email,
		FirstName:  u.FirstName,
		LastName:   u.LastName,
		IsActive:   u.IsActive,
		IsVerified: u.IsVerified,
		Role:       string(u.Role),
		CreatedAt:  u.CreatedAt,
		UpdatedAt:  u.UpdatedAt,
	}
}

// bind decodes the request into dst and runs the registered validator.
func bind(c echo.Context, dst any) error {
	if err := c.Bind(dst); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	return c.Validate(dst)
}

// failure describes how an error is rendered.
type failure struct {
	status  int
	code    string
	message string
}

// classify maps an error onto a status, a stable code and a client-safe
// message. Wrapped detail is only exposed for validation failures.
func classify(err error) failure {
	var ve validator.ValidationErrors
	var he *echo.HTTPError
	switch {
	case errors.As(err, &ve):
		return failure{http.StatusUnprocessableEntity, "validation_error", describe(ve)}
	case errors.Is(err, service.ErrInvalidID):
		return failure{http.StatusBadRequest, "validation_error", "Invalid user ID format"}
	case errors.Is(err, service.ErrValidation):
		return failure{http.StatusUnprocessableEntity, "validation_error", err.Error()}
	case errors.Is(err, service.ErrDuplicateEmail):
		return failure{http.StatusConflict, "duplicate_email", "Email already registered"}
	case errors.Is(err, service.ErrInvalidCredentials):
		return failure{http.StatusUnauthorized, "invalid_credentials", "Incorrect email or password"}
	case errors.Is(err, service.ErrInactiveAccount):
		return failure{http.StatusBadRequest, "inactive_account", "Inactive user"}
	case errors.Is(err, service.ErrUnauthenticated),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrWrongTokenType),
		errors.Is(err, auth.ErrMissingSubject):
		return failure{http.StatusUnauthorized, "unauthenticated", "Could not validate credentials"}
	case errors.Is(err, service.ErrForbidden):
		return failure{http.StatusForbidden, "forbidden", "Not enough permissions"}
	case errors.Is(err, service.ErrNotFound):
		return failure{http.StatusNotFound, "not_found", "Not found"}
	case errors.Is(err, service.ErrSelfDeletion):
		return failure{http.StatusBadRequest, "self_deletion", "Cannot delete your own account"}
	case errors.Is(err, service.ErrNoToken):
		return failure{http.StatusBadRequest, "no_token", "No token provided"}
	case errors.Is(err, service.ErrFileTooLarge):
		return failure{http.StatusRequestEntityTooLarge, "file_too_large", err.Error()}
	case errors.Is(err, service.ErrFileTypeNotAllowed):
		return failure{http.StatusUnsupportedMediaType, "file_type_not_allowed", err.Error()}
	case errors.Is(err, service.ErrUnavailable):
		return failure{http.StatusServiceUnavailable, "unavailable", "Service temporarily unavailable"}
	case errors.As(err, &he):
		msg := http.StatusText(he.Code)
		if s, ok := he.Message.(string); ok && s != "" {
			msg = s
		}
		return failure{he.Code, strings.ToLower(strings.ReplaceAll(http.StatusText(he.Code), " ", "_")), msg}
	default:
		return failure{http.StatusInternalServerError, "internal_error", "Internal server error"}
	}
}

func describe(ve validator.ValidationErrors) string {
	parts := make([]string, 0, len(ve))
	for _, fe := range ve {
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s: failed %s=%s", fe.Field(), fe.Tag(), fe.Param()))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: failed %s", fe.Field(), fe.Tag()))
	}
	return strings.Join(parts, "; ")
}

// ErrorHandler renders errors returned by handlers and middleware in the
// response envelope. Server-side failures are logged; client errors are not.
func ErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		f := classify(err)
		if f.status >= http.StatusInternalServerError {
			log.Error().Err(err).Str("method", c.Request().Method).Str("route", c.Path()).Msg("request failed")
		}
		if f.status == http.StatusUnauthorized {
			c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
		}

		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(f.status)
		} else {
			werr = c.JSON(f.status, envelope{
				Success:   false,
				Message:   f.message,
				Error:     f.code,
				Timestamp: time.Now().UTC(),
			})
		}
		if werr != nil {
			log.Warn().Err(werr).Msg("write error response")
		}
	}
}
