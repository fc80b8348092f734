// Package service holds the account core: the user directory, the access
// control gate, the authentication flows and file uploads. Callers get
// typed failures from the sentinels below and decide presentation.
package service

import (
	"errors"
	"fmt"

	"github.com/iliyamo/account-service/internal/repository"
)

var (
	// ErrValidation marks malformed input such as an ill-formed id.
	ErrValidation = errors.New("validation error")
	// ErrDuplicateEmail is returned when the email is already registered.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrInvalidCredentials covers both unknown email and wrong password.
	ErrInvalidCredentials = errors.New("incorrect email or password")
	// ErrInactiveAccount is returned for a disabled account.
	ErrInactiveAccount = errors.New("inactive user")
	// ErrUnauthenticated means no usable identity could be derived.
	ErrUnauthenticated = errors.New("could not validate credentials")
	ErrForbidden       = errors.New("not enough permissions")
	ErrSelfDeletion    = errors.New("cannot delete your own account")
	ErrNoToken         = errors.New("no token provided")
	// ErrUnavailable wraps store and infrastructure failures.
	ErrUnavailable = errors.New("service unavailable")
	// ErrNotFound is shared with the repository layer.
	ErrNotFound = repository.ErrNotFound

	// ErrInvalidID is the ErrValidation reported for an ill-formed user id.
	ErrInvalidID = fmt.Errorf("%w: invalid user id format", ErrValidation)

	ErrFileTooLarge       = errors.New("file too large")
	ErrFileTypeNotAllowed = errors.New("file type not allowed")
)
