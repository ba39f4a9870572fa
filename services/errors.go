package services

import (
	"errors"
	"fmt"

	"bounty-market-system/models"
)

// ErrNotFound marks a referenced Application/Bounty/User as absent.
var ErrNotFound = errors.New("record not found")

// ValidationError reports malformed or unauthorized input. No state change.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func validationErr(format string, args ...interface{}) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// ConflictError reports that a concurrent actor already completed a mutually
// exclusive transition. The caller should refresh and decide whether to retry
// with updated context — never auto-retry blindly.
type ConflictError struct {
	Msg string
}

func (e *ConflictError) Error() string { return e.Msg }

func conflictErr(format string, args ...interface{}) error {
	return &ConflictError{Msg: fmt.Sprintf(format, args...)}
}

// InvalidTransitionError reports an event not legal from the current state.
// This is a normal, expected outcome (e.g. double-click accept), not a crash.
type InvalidTransitionError struct {
	From  models.ApplicationStatus
	Event models.ApplicationEvent
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot %s an application in status %q", e.Event, e.From)
}

// IsConflict reports whether err is a ConflictError.
func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}

// IsInvalidTransition reports whether err is an InvalidTransitionError.
func IsInvalidTransition(err error) bool {
	var te *InvalidTransitionError
	return errors.As(err, &te)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
