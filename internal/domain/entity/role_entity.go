package entity

import "time"

// Well-known role names seeded on startup.
const (
	RoleAdmin    = "admin"
	RoleUser     = "user"
	RoleMerchant = "merchant"
)

// Role represents an authorization role
// Many-to-many with User via user_roles
type Role struct {
	ID          int64
	Name        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
