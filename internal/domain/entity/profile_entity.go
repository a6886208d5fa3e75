package entity

import "time"

// VerificationTTL is how long an e-mail verification token stays valid.
const VerificationTTL = 10 * time.Minute

// UserProfile holds per-user settings and the last known location.
type UserProfile struct {
	ID           int64
	UserID       int64
	Preferences  map[string]any
	Location     *Point
	ProfileImage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ProfileVerification is the single e-mail verification record of a user.
type ProfileVerification struct {
	ID        int64
	UserID    int64
	Token     string
	CreatedAt time.Time
	ExpiresAt time.Time
	Used      bool
}

// IsExpired reports whether the token is past its expiry at the given instant.
func (v *ProfileVerification) IsExpired(now time.Time) bool {
	return now.After(v.ExpiresAt)
}

// NearbyUser is a lightweight projection used to notify users around a point.
type NearbyUser struct {
	UserID    int64
	Email     string
	Username  string
	FirstName string
}
