package store

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("store: meeting not found")
	// ErrDuplicateID is returned when an insert collides with an existing id.
	ErrDuplicateID = errors.New("store: duplicate meeting id")
	// ErrBusy is returned when a listener attempts to mutate the store from
	// inside its own notification.
	ErrBusy = errors.New("store: mutation during notification")
)

// ConflictError reports which records contend with a rejected mutation.
type ConflictError struct {
	IDs []string
}

// Error implements the error interface.
func (e *ConflictError) Error() string {
	if e == nil || len(e.IDs) == 0 {
		return "store: meeting conflict"
	}
	return fmt.Sprintf("store: meeting conflicts with %s", strings.Join(e.IDs, ", "))
}
