package domain

import (
	"strings"
	"time"
)

// Role is the access label carried by a user and by every session token.
type Role string

const (
	RoleAdmin      Role = "Admin"
	RoleSupervisor Role = "Supervisor"
	RoleWorker     Role = "Worker"
	RoleDispatch   Role = "Dispatch"
	RoleSales      Role = "Sales"
)

// DefaultRole is applied at signup when no role is given.
const DefaultRole = RoleWorker

// Roles lists the closed set of roles in display order.
var Roles = []Role{RoleAdmin, RoleSupervisor, RoleWorker, RoleDispatch, RoleSales}

// Canonical guard sets. There is no implicit hierarchy between roles.
var (
	AdminOnlyRoles         = []Role{RoleAdmin}
	AdminOrSupervisorRoles = []Role{RoleAdmin, RoleSupervisor}
	StaffRoles             = []Role{RoleAdmin, RoleSupervisor, RoleWorker}
)

// Valid reports whether r belongs to the closed role set.
func (r Role) Valid() bool {
	for _, known := range Roles {
		if r == known {
			return true
		}
	}
	return false
}

func (r Role) String() string { return string(r) }

// User models a dashboard account as owned by the credential store.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	FirstName    string    `json:"firstName"`
	LastName     string    `json:"lastName"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Sanitized returns a copy of u without the password hash.
func (u *User) Sanitized() *User {
	if u == nil {
		return nil
	}
	clone := *u
	clone.PasswordHash = ""
	return &clone
}

// NormalizeEmail trims and lower-cases an email so lookups are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// UsernameFromEmail returns the local part of an email address.
func UsernameFromEmail(email string) string {
	local, _, found := strings.Cut(email, "@")
	if !found {
		return email
	}
	return local
}
