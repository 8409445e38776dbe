package ledger

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the engine. Every engine error leaves the
// input ledger untouched.
var (
	ErrInvalidInput       = errors.New("ledger: invalid input")
	ErrUnknownMember      = errors.New("ledger: unknown member")
	ErrNotFound           = errors.New("ledger: transaction not found")
	ErrAlreadyInvalidated = errors.New("ledger: transaction already invalidated")
	ErrInvariant          = errors.New("ledger: balances do not sum to zero")
)

// ValidationError reports which input field was rejected.
// It matches ErrInvalidInput with errors.Is.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("ledger: invalid %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

func invalid(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}

func unknownMember(field, member string) error {
	return fmt.Errorf("%w: %s %q", ErrUnknownMember, field, member)
}
