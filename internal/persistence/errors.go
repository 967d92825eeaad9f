package persistence

import "errors"

var (
	// ErrNotFound is returned when the requested record does not exist in
	// the backing record store.
	ErrNotFound = errors.New("persistence: not found")
	// ErrConflict is returned when the record store rejects a write because
	// of contending records.
	ErrConflict = errors.New("persistence: conflict")
	// ErrNetwork is returned when the record store is unreachable or fails
	// server-side.
	ErrNetwork = errors.New("persistence: network failure")
	// ErrTimeout is returned when a call exceeds its deadline.
	ErrTimeout = errors.New("persistence: deadline exceeded")
)
