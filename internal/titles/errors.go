package titles

import "errors"

var (
	// ErrUnknownSource indicates the source is not installed in mangal.
	ErrUnknownSource = errors.New("unknown source")

	// ErrTitleExists indicates another title already uses the name or its
	// directory.
	ErrTitleExists = errors.New("title already exists")

	// ErrInvalidName indicates a name that sanitizes to nothing.
	ErrInvalidName = errors.New("invalid title name")
)
