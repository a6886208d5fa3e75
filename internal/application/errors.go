package application

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrGuestLogin         = errors.New("guest accounts cannot log in")
	ErrInactiveAccount    = errors.New("account is not active")
	ErrInvalidToken       = errors.New("invalid or revoked token")
	ErrEmailTaken         = errors.New("email already registered")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrPhoneTaken         = errors.New("phone number already in use")
	ErrAlreadyRegistered  = errors.New("user is already registered")
	ErrUserNotFound       = errors.New("user not found")
	ErrProfileNotFound    = errors.New("profile not found")
	ErrForbidden          = errors.New("permission denied")
	ErrUnavailable        = errors.New("service unavailable")
)

// Verification and password reset.
var (
	ErrInvalidVerification = errors.New("invalid email or token")
	ErrTokenUsed           = errors.New("token already used")
	ErrTokenExpired        = errors.New("token expired")
	ErrAlreadyVerified     = errors.New("email already verified")
	ErrInvalidResetToken   = errors.New("invalid or expired reset token")
)

// Administration.
var (
	ErrRoleNotFound = errors.New("role not found")
	ErrRoleAssigned = errors.New("role already assigned")
	ErrRoleExists   = errors.New("role already exists")
)

// Marketplace.
var (
	ErrNotFound         = errors.New("not found")
	ErrRetailerNotFound = errors.New("retailer not found")
	ErrRetailerExists   = errors.New("retailer name already taken")
	ErrCategoryNotFound = errors.New("category not found")
	ErrCodeTaken        = errors.New("discount code already in use")
	ErrNoCategories     = errors.New("no categories available")
	ErrNoLocation       = errors.New("unable to determine location")
	ErrGroupClosed      = errors.New("shared discount is not active")
	ErrGroupFull        = errors.New("shared discount is full")
	ErrNotParticipant   = errors.New("user is not a participant")
)
