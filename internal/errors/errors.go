// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Standard sentinel errors
var (
	ErrNotFound         = errors.New("not found")
	ErrDuplicate        = errors.New("already exists")
	ErrSectorInUse      = errors.New("sector is referenced by an IPO")
	ErrQuoteUnavailable = errors.New("quote unavailable")
	ErrInvalidNumber    = errors.New("invalid numeric input")
	ErrInputValidation  = errors.New("input validation failed")
	ErrConfigInvalid    = errors.New("invalid configuration")
	ErrDatabaseError    = errors.New("database error")
	ErrMissingUser      = errors.New("missing user id")
	ErrDataIntegrity    = errors.New("data integrity violation")
)

// DataIntegrityError reports alert rules that share a key which must be
// unique (one base rule, one rule per sector, one rule per company).
// Resolution keeps going with the first rule; the error is informational.
type DataIntegrityError struct {
	Kind    string
	Key     string
	RuleIDs []string
}

func (e *DataIntegrityError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("data integrity: duplicate %s rules [%s]", e.Kind, strings.Join(e.RuleIDs, ", "))
	}
	return fmt.Sprintf("data integrity: duplicate %s rules for %q [%s]", e.Kind, e.Key, strings.Join(e.RuleIDs, ", "))
}

func (e *DataIntegrityError) Unwrap() error {
	return ErrDataIntegrity
}

// NewDataIntegrityError creates a new DataIntegrityError.
func NewDataIntegrityError(kind, key string, ruleIDs []string) *DataIntegrityError {
	return &DataIntegrityError{
		Kind:    kind,
		Key:     key,
		RuleIDs: ruleIDs,
	}
}

// QuoteError represents a failed or empty live price lookup.
type QuoteError struct {
	Company string
	Message string
	Err     error
}

func (e *QuoteError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("quote error [%s]: %s: %v", e.Company, e.Message, e.Err)
	}
	return fmt.Sprintf("quote error [%s]: %s", e.Company, e.Message)
}

// Unwrap exposes both the transport cause and ErrQuoteUnavailable.
func (e *QuoteError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrQuoteUnavailable, e.Err}
	}
	return []error{ErrQuoteUnavailable}
}

// NewQuoteError creates a new QuoteError.
func NewQuoteError(company, message string, err error) *QuoteError {
	return &QuoteError{
		Company: company,
		Message: message,
		Err:     err,
	}
}

// NumericError represents a price or percentage string that could not be parsed.
type NumericError struct {
	Field string
	Raw   string
}

func (e *NumericError) Error() string {
	return fmt.Sprintf("invalid number for %s: %q", e.Field, e.Raw)
}

func (e *NumericError) Unwrap() error {
	return ErrInvalidNumber
}

// NewNumericError creates a new NumericError.
func NewNumericError(field, raw string) *NumericError {
	return &NumericError{Field: field, Raw: raw}
}

// ValidationError represents a validation error.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s (%v): %s", e.Field, e.Value, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrInputValidation
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// StoreError represents a failed record store operation.
type StoreError struct {
	Op     string
	Entity string
	Err    error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store error [%s %s]: %v", e.Op, e.Entity, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError creates a new StoreError.
func NewStoreError(op, entity string, err error) *StoreError {
	return &StoreError{
		Op:     op,
		Entity: entity,
		Err:    err,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// New is errors.New, re-exported so callers importing this package under
// the name errors do not also need the standard library package.
func New(text string) error {
	return errors.New(text)
}

// Join is errors.Join.
func Join(errs ...error) error {
	return errors.Join(errs...)
}
