// Package apperrors holds the error taxonomy shared by every bookkeeping
// operation. Callers classify failures with errors.Is against the sentinels
// or with KindOf.
package apperrors

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("bookkeeping: not found")
	ErrInsufficientStock = errors.New("bookkeeping: insufficient stock")
	ErrInvalidState      = errors.New("bookkeeping: invalid state")
	ErrValidation        = errors.New("bookkeeping: validation failed")
	ErrInsufficientFunds = errors.New("bookkeeping: insufficient funds")
	ErrStorage           = errors.New("bookkeeping: storage failure")
)

type Kind string

const (
	KindNotFound          Kind = "not_found"
	KindInsufficientStock Kind = "insufficient_stock"
	KindInvalidState      Kind = "invalid_state"
	KindValidation        Kind = "validation"
	KindInsufficientFunds Kind = "insufficient_funds"
	KindStorage           Kind = "storage"
)

// KindOf maps err to its stable kind. Unclassified errors are reported as
// storage failures. A nil error has no kind.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrInsufficientStock):
		return KindInsufficientStock
	case errors.Is(err, ErrInvalidState):
		return KindInvalidState
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrInsufficientFunds):
		return KindInsufficientFunds
	default:
		return KindStorage
	}
}

// NotFound reports a missing entity.
func NotFound(entity, key string) error {
	return fmt.Errorf("%w: %s %q", ErrNotFound, entity, key)
}

func InvalidState(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidState, fmt.Sprintf(format, args...))
}

// InsufficientStockError names the line item that could not be covered.
type InsufficientStockError struct {
	Item      string
	Requested int64
	Available int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("bookkeeping: insufficient stock for %s: requested %d, available %d", e.Item, e.Requested, e.Available)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// ValidationError represents a malformed input value.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("bookkeeping: validation failed for %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func Invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// StorageError wraps a failure of the backing store. The composite
// operation it occurred in has been rolled back.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("bookkeeping: storage failure during %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool {
	return target == ErrStorage
}

// Storage wraps err as a StorageError unless it already carries a kind the
// caller needs to see, in which case it is returned unchanged.
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	if classified(err) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

func classified(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrInsufficientStock) ||
		errors.Is(err, ErrInvalidState) ||
		errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInsufficientFunds) ||
		errors.Is(err, ErrStorage)
}
