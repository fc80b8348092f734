package model

import "time"

// Role is the authorization level of an account.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool { return r == RoleUser || r == RoleAdmin }

// User represents one account as held by the user store. It has no json
// tags; handlers render it through their own response types.
//
// Fields:
//
//	ID           – server generated identifier, immutable.
//	Email        – unique, stored trimmed and lower-cased.
//	PasswordHash – bcrypt or argon2id encoded credential.
//	IsActive     – false blocks authentication at the gate.
//	IsVerified   – informational only.
//	Role         – user or admin.
type User struct {
	ID           string
	Email        string
	FirstName    string
	LastName     string
	PasswordHash string
	IsActive     bool
	IsVerified   bool
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsAdmin is a shortcut for Role == RoleAdmin.
func (u User) IsAdmin() bool { return u.Role == RoleAdmin }

// NewUser carries the fields needed to create an account. Password is the
// plain text value; it is hashed by the directory before reaching a store.
// A zero Role means RoleUser. IsActive defaults to true unless Inactive is set.
type NewUser struct {
	Email      string
	Password   string
	FirstName  string
	LastName   string
	Role       Role
	IsVerified bool
	Inactive   bool
}

// UserPatch is a partial update: nil fields are left untouched.
type UserPatch struct {
	Email      *string
	FirstName  *string
	LastName   *string
	Password   *string
	IsActive   *bool
	IsVerified *bool
	Role       *Role
}

// Empty reports whether the patch carries no field at all.
func (p UserPatch) Empty() bool {
	return p.Email == nil && p.FirstName == nil && p.LastName == nil && p.Password == nil &&
		p.IsActive == nil && p.IsVerified == nil && p.Role == nil
}
