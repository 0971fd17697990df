package snapshot

import "errors"

var (
	// ErrInvalidInput indicates a required identifier is missing.
	ErrInvalidInput = errors.New("invalid snapshot input")
	// ErrPersistFailed indicates the final snapshot write failed. No
	// partial snapshot is left committed when this is returned.
	ErrPersistFailed = errors.New("snapshot persist failed")
)
