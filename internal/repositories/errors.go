package repositories

import "errors"

var (
	// ErrNotFound indicates the requested row does not exist. Handlers map
	// it to a 404 for catalog lookups.
	ErrNotFound = errors.New("record not found")
	// ErrConflict indicates a write would violate a uniqueness constraint,
	// such as registering an email twice.
	ErrConflict = errors.New("record conflict")
)
