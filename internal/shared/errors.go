package shared

import (
	"errors"
	"fmt"
)

// Sentinel errors for the service-wide failure taxonomy. Every command
// failure wraps exactly one of these so transport code can map it to a
// status without inspecting message text.
var (
	// ErrNotFound indicates the teller, transaction, or account is absent.
	// Drawer authentication failures deliberately wrap this same sentinel so
	// a wrong password is indistinguishable from an unknown teller.
	ErrNotFound = errors.New("not found")
	// ErrValidation indicates an illegal state transition or a failed precondition.
	ErrValidation = errors.New("validation failed")
	// ErrConflict indicates the ledger or a balance constraint rejected the command.
	ErrConflict = errors.New("conflict")
)

// NotFoundf wraps ErrNotFound with a formatted message.
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrNotFound)...)
}

// Validationf wraps ErrValidation with a formatted message.
func Validationf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrValidation)...)
}

// Conflictf wraps ErrConflict with a formatted message.
func Conflictf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrConflict)...)
}
