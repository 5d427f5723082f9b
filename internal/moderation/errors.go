package moderation

import (
	"errors"
	"fmt"
)

// Platform calls wrap these so the executor can classify failures.
var (
	ErrForbidden = errors.New("forbidden")
	ErrNotFound  = errors.New("not found")
)

// ErrInvalidTimeout is returned when a timeout choice is not one of the configured lengths.
var ErrInvalidTimeout = errors.New("invalid timeout choice")

// AuthorizationError is returned when the hierarchy check refuses an action.
type AuthorizationError struct {
	Reason DenialReason
}

func (e *AuthorizationError) Error() string {
	return "authorization denied: " + string(e.Reason)
}

// FailureKind classifies a remote enforcement failure.
type FailureKind string

const (
	FailureForbidden FailureKind = "forbidden"
	FailureNotFound  FailureKind = "not_found"
	FailureOther     FailureKind = "other"
)

// EnforcementError is returned when the platform rejects a ban, unban, kick, timeout or a
// member lookup.
type EnforcementError struct {
	Action string
	Kind   FailureKind
	Err    error
}

func (e *EnforcementError) Error() string {
	return fmt.Sprintf("%s failed (%s): %v", e.Action, e.Kind, e.Err)
}

func (e *EnforcementError) Unwrap() error {
	return e.Err
}

// StoreError is returned when the remote action succeeded but the sanction store could
// not be updated.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("sanction store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func classify(err error) FailureKind {
	switch {
	case errors.Is(err, ErrForbidden):
		return FailureForbidden
	case errors.Is(err, ErrNotFound):
		return FailureNotFound
	default:
		return FailureOther
	}
}

func enforcementError(action string, err error) *EnforcementError {
	kind := classify(err)
	enforcementFailures.WithLabelValues(action, string(kind)).Inc()
	return &EnforcementError{Action: action, Kind: kind, Err: err}
}
