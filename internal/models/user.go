package models

import "time"

// UserRole represents the back office roles used for RBAC.
type UserRole string

const (
	RoleAdmin    UserRole = "admin"
	RoleFinance  UserRole = "finance"
	RoleAcademic UserRole = "academic"
)

// Valid reports whether the role is one of the known roles.
func (r UserRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleFinance, RoleAcademic:
		return true
	}
	return false
}

// User represents an operator account stored in the users table.
type User struct {
	ID           string     `db:"id" json:"id"`
	Username     string     `db:"username" json:"username"`
	PasswordHash string     `db:"password_hash" json:"-"`
	RealName     string     `db:"real_name" json:"real_name"`
	Role         UserRole   `db:"role" json:"role"`
	Active       bool       `db:"active" json:"active"`
	LastLogin    *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}
