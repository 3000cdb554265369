// Package apperr holds the error taxonomy shared by the record store and its callers.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrValidation      = errors.New("validation failed")
	ErrDecode          = errors.New("decode failed")
	ErrOperationFailed = errors.New("operation failed")
)

// ValidationError reports a record rejected before any storage call.
type ValidationError struct {
	Domain string
	Err    error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Domain, ErrValidation, e.Err)
}

func (e *ValidationError) Unwrap() []error { return []error{ErrValidation, e.Err} }

// Validation wraps err as a ValidationError for domain.
func Validation(domain string, err error) error {
	return &ValidationError{Domain: domain, Err: err}
}

// DecodeError reports a stored document whose content could not be turned
// back into a typed record.
type DecodeError struct {
	Domain string
	ID     string
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s: decode document %s: %v", e.Domain, e.ID, e.Err)
}

func (e *DecodeError) Unwrap() []error { return []error{ErrDecode, e.Err} }

// OperationFailed marks err as a failure of the persistence collaborator.
// Not-found errors pass through untouched so callers can still match them.
func OperationFailed(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) {
		return err
	}
	return fmt.Errorf("%s: %w: %w", op, ErrOperationFailed, err)
}
