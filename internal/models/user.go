package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// UserRole is the closed set of roles recognised by the RBAC gates. Adding a
// role requires revisiting every switch over this type.
type UserRole string

const (
	RoleAdmin      UserRole = "admin"
	RoleManager    UserRole = "manager"
	RoleTechnician UserRole = "technician"
	RoleUser       UserRole = "user"
)

// Valid reports whether the role is one of the known constants.
func (r UserRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleTechnician, RoleUser:
		return true
	}
	return false
}

// CanOverrideAssignment reports whether the role may set the team/technician
// on a new request instead of inheriting the equipment defaults.
func (r UserRole) CanOverrideAssignment() bool {
	return r == RoleAdmin || r == RoleManager
}

// User represents an application user stored in the users table.
type User struct {
	ID        string    `db:"id" json:"id"`
	Email     string    `db:"email" json:"email"`
	FullName  string    `db:"full_name" json:"full_name"`
	Role      UserRole  `db:"role" json:"role"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	UserID   string   `json:"user_id"`
	Role     UserRole `json:"role"`
	Email    string   `json:"email"`
	FullName string   `json:"full_name"`
	jwt.RegisteredClaims
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
