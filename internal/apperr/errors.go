// Package apperr defines the error kinds shared by the finance domain.
//
// Expected business-rule violations are returned as *Error values and mapped
// to HTTP status codes by the handlers. Sentinel errors for lookups (not
// found, forbidden) stay in their feature packages.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an Error.
type Kind string

const (
	// KindValidation covers inconsistent or malformed input: unbalanced
	// shares, negative totals, blank participants.
	KindValidation Kind = "validation"
	// KindConfiguration covers data that references something that does not
	// fit: unknown category scope, currency mismatch inside a group.
	KindConfiguration Kind = "configuration"
	// KindArithmetic covers numeric failures that cannot be given a defined
	// result, such as a zero exchange rate.
	KindArithmetic Kind = "arithmetic"
)

// Error is a classified domain error.
type Error struct {
	Kind    Kind
	Field   string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Field != "" {
		msg = e.Field + ": " + msg
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Validation returns a validation error for field.
func Validation(field, message string) *Error {
	return &Error{Kind: KindValidation, Field: field, Message: message}
}

// Validationf is Validation with formatting.
func Validationf(field, format string, args ...any) *Error {
	return Validation(field, fmt.Sprintf(format, args...))
}

// Configuration returns a configuration error wrapping err (which may be nil).
func Configuration(message string, err error) *Error {
	return &Error{Kind: KindConfiguration, Message: message, Err: err}
}

// Configurationf is Configuration with formatting and no wrapped error.
func Configurationf(format string, args ...any) *Error {
	return Configuration(fmt.Sprintf(format, args...), nil)
}

// Arithmetic returns an arithmetic error.
func Arithmetic(message string) *Error {
	return &Error{Kind: KindArithmetic, Message: message}
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

func IsValidation(err error) bool    { return is(err, KindValidation) }
func IsConfiguration(err error) bool { return is(err, KindConfiguration) }
func IsArithmetic(err error) bool    { return is(err, KindArithmetic) }

func is(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
