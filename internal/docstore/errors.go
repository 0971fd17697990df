package docstore

import "errors"

var (
	// ErrNotFound is returned when a requested document doesn't exist.
	ErrNotFound = errors.New("document not found")

	// ErrInvalidPath is returned for malformed document or collection paths.
	ErrInvalidPath = errors.New("invalid document path")
)
