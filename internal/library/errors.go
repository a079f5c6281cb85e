package library

import "errors"

var (
	// ErrNotFound is returned when a title or chapter does not exist.
	ErrNotFound = errors.New("not in registry")

	// ErrDuplicate is returned when a title name or (title, index) pair is
	// already recorded.
	ErrDuplicate = errors.New("already in registry")

	// ErrConstraint is returned when a row references a missing title, such
	// as a chapter insert racing the title's removal.
	ErrConstraint = errors.New("registry constraint violated")
)
