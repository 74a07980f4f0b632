// Package errors carries the storefront's typed error codes and the HTTP
// treatment each code receives at the edge.
package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeValidation    Code = "VALIDATION_ERROR"
	CodeUnauthorized  Code = "UNAUTHORIZED"
	CodeForbidden     Code = "FORBIDDEN"
	CodeNotFound      Code = "NOT_FOUND"
	CodeConflict      Code = "CONFLICT"
	CodeStateConflict Code = "STATE_CONFLICT"
	CodeInternal      Code = "INTERNAL_ERROR"
	CodeDependency    Code = "DEPENDENCY_ERROR"
	CodePayment       Code = "PAYMENT_UNAVAILABLE"
	CodeBadSignature  Code = "BAD_SIGNATURE"
)

// Metadata describes how a code is rendered to shoppers.
type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	DetailsAllowed bool
}

const (
	detailsHidden  = false
	detailsVisible = true
	noRetry        = false
	retry          = true
)

var codeTable = map[Code]Metadata{
	CodeValidation:    {http.StatusBadRequest, noRetry, "validation failed", detailsVisible},
	CodeUnauthorized:  {http.StatusUnauthorized, noRetry, "authentication required", detailsHidden},
	CodeForbidden:     {http.StatusForbidden, noRetry, "access denied", detailsHidden},
	CodeNotFound:      {http.StatusNotFound, noRetry, "resource not found", detailsHidden},
	CodeConflict:      {http.StatusConflict, noRetry, "conflict detected", detailsHidden},
	CodeStateConflict: {http.StatusUnprocessableEntity, noRetry, "state transition disallowed", detailsVisible},
	CodeInternal:      {http.StatusInternalServerError, retry, "internal server error", detailsHidden},
	CodeDependency:    {http.StatusServiceUnavailable, retry, "dependency unavailable", detailsVisible},
	// Payment outages surface as a plain bad request with a shopper-facing apology.
	CodePayment:      {http.StatusBadRequest, retry, "Sorry, your payment cannot be processed right now", detailsHidden},
	CodeBadSignature: {http.StatusBadRequest, noRetry, "invalid webhook payload", detailsHidden},
}

// MetadataFor falls back to the internal error treatment for unknown codes.
func MetadataFor(code Code) Metadata {
	meta, ok := codeTable[code]
	if !ok {
		return codeTable[CodeInternal]
	}
	return meta
}

// Error is a coded failure with an optional cause and client-facing details.
type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

// Wrap attaches a code to err. A nil err behaves like New.
func Wrap(code Code, err error, message string) *Error {
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

func (e *Error) WithDetails(details any) *Error {
	if e != nil {
		e.details = details
	}
	return e
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.cause == nil {
		return fmt.Sprintf("%s: %s", e.code, e.message)
	}
	return fmt.Sprintf("%s: %s: %v", e.code, e.message, e.cause)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// As returns the first *Error in err's chain.
func As(err error) *Error {
	var typed *Error
	if err != nil && stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// IsCode reports whether err carries a typed error with the given code.
func IsCode(err error, code Code) bool {
	typed := As(err)
	return typed != nil && typed.Code() == code
}
