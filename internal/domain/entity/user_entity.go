package entity

import (
	"strings"
	"time"
)

// User is the aggregate root for the authentication domain.
// PasswordHash is empty for accounts without a usable password (guests).
type User struct {
	ID               int64
	Username         string
	Email            string
	PasswordHash     string
	FirstName        string
	LastName         string
	PhoneNumber      *string
	IsGuest          bool
	IsActive         bool
	IsStaff          bool
	ActivatedProfile *bool
	Roles            []Role
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// HasUsablePassword reports whether the user can log in with a password.
func (u *User) HasUsablePassword() bool { return u.PasswordHash != "" }

// IsVerified reports whether the e-mail address has been confirmed.
func (u *User) IsVerified() bool { return u.ActivatedProfile != nil && *u.ActivatedProfile }

// HasRole reports whether the user carries the named role (case-insensitive).
func (u *User) HasRole(name string) bool {
	for _, r := range u.Roles {
		if strings.EqualFold(r.Name, name) {
			return true
		}
	}
	return false
}

// IsAdmin reports whether the user may use administrative endpoints.
func (u *User) IsAdmin() bool { return u.IsStaff || u.HasRole(RoleAdmin) }

// FullName joins first and last name, falling back to the username.
func (u *User) FullName() string {
	n := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if n == "" {
		return u.Username
	}
	return n
}

// UsernameFromEmail derives a default username from the local part of an address.
func UsernameFromEmail(email string) string {
	local, _, _ := strings.Cut(email, "@")
	return strings.ToLower(strings.TrimSpace(local))
}

// UserFilter narrows admin user listings.
type UserFilter struct {
	Search   string
	Role     string
	IsActive *bool
	Limit    int
	Offset   int
}
