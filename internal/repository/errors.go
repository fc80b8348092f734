// Package repository holds the user store backends (MySQL, MongoDB and an
// in-memory map) and the MySQL revoked-token table. The sentinel values
// below are shared by every backend so higher layers can tell apart "no
// such record" and "email already taken" regardless of the driver in use.
package repository

import "errors"

// ErrNotFound is returned when an id or email does not resolve to a user.
// Malformed ids are reported the same way.
var ErrNotFound = errors.New("not found")

// ErrEmailExists is returned when an insert or update would violate the
// unique email constraint. Handlers translate this into HTTP 409.
var ErrEmailExists = errors.New("email already exists")
