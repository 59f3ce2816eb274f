package nart

import "errors"

// Common errors
var (
	ErrNotFound = errors.New("artifact not found")
	// ErrExists guards the append-only contract: a key is never overwritten.
	ErrExists = errors.New("artifact already exists")
)
