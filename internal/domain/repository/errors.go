package repository

import "errors"

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("already exists")
)

var (
	ErrInvalidReference = errors.New("referenced record does not exist")
	ErrConstraint       = errors.New("constraint violated")
)
