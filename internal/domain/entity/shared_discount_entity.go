package entity

import (
	"slices"
	"time"
)

type SharedStatus string

const (
	SharedActive    SharedStatus = "active"
	SharedCompleted SharedStatus = "completed"
	SharedExpired   SharedStatus = "expired"
)

// Defaults applied when a group is created without explicit bounds.
const (
	DefaultMinParticipants = 2
	DefaultMaxParticipants = 10
)

// Valid reports whether s is a known status.
func (s SharedStatus) Valid() bool {
	switch s {
	case SharedActive, SharedCompleted, SharedExpired:
		return true
	}
	return false
}

// SharedDiscount is a group purchase of a discount.
type SharedDiscount struct {
	ID              int64
	DiscountID      int64
	GroupName       string
	Participants    []int64
	MinParticipants int
	MaxParticipants int
	Status          SharedStatus
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// HasParticipant reports whether userID is already in the group.
func (s *SharedDiscount) HasParticipant(userID int64) bool {
	return slices.Contains(s.Participants, userID)
}

// IsFull reports whether the group reached max participants.
func (s *SharedDiscount) IsFull() bool { return len(s.Participants) >= s.MaxParticipants }
