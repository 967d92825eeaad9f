package application

import (
	"errors"

	"github.com/example/roomboard/internal/meeting"
	"github.com/example/roomboard/internal/persistence"
	"github.com/example/roomboard/internal/store"
)

var (
	// ErrBusy is returned when a booking submission is attempted while
	// another one is in flight.
	ErrBusy = errors.New("application: submission in progress")
	// ErrInvalidPassword is returned when the gate password does not match.
	ErrInvalidPassword = errors.New("application: invalid password")
	// ErrSessionExpired is returned when a gate session has outlived its TTL.
	ErrSessionExpired = errors.New("application: session expired")
	// ErrSessionUnknown is returned for tokens the gate never issued or has
	// already revoked.
	ErrSessionUnknown = errors.New("application: unknown session")
	// ErrGateDisabled is returned when no gate password is configured.
	ErrGateDisabled = errors.New("application: password gate disabled")
)

// ErrorKind maps an error to its stable taxonomy label: validation,
// conflict, not_found, busy, network, timeout, or internal.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}

	var vErr *meeting.ValidationError
	if errors.As(err, &vErr) {
		return "validation"
	}
	var cErr *store.ConflictError
	if errors.As(err, &cErr) {
		return "conflict"
	}

	switch {
	case errors.Is(err, persistence.ErrConflict):
		return "conflict"
	case errors.Is(err, store.ErrNotFound), errors.Is(err, persistence.ErrNotFound):
		return "not_found"
	case errors.Is(err, store.ErrBusy), errors.Is(err, ErrBusy):
		return "busy"
	case errors.Is(err, store.ErrDuplicateID):
		return "conflict"
	case errors.Is(err, persistence.ErrTimeout):
		return "timeout"
	case errors.Is(err, persistence.ErrNetwork):
		return "network"
	}

	return "internal"
}
