// Package errs provides the unified error type used across the Firebird backend.
//
// Every subsystem (config, rewriter, cursor, DDL synthesis, …) wraps its
// native errors into *errs.Error before returning them to callers. Callers use
// the Is* predicates to decide what to do without importing the wire driver.
//
// Usage:
//
//	// In the cursor, classify a driver failure:
//	return errs.Wrap(errs.ErrKindIntegrity, "duplicate key", fbErr).WithCode(-803)
//
//	// In a caller, retry with different data on constraint violations:
//	if errs.IsIntegrity(err) {
//	    ...
//	}
package errs

import (
	"errors"
	"fmt"
)

// ErrKind categorises an error without exposing driver-specific codes.
type ErrKind int

const (
	ErrKindUnknown       ErrKind = iota
	ErrKindConfiguration         // bad or missing connection parameters, raised before any I/O
	ErrKindFormat                // placeholder / parameter-count mismatch
	ErrKindIntegrity             // constraint violation reported by the server
	ErrKindDatabase              // any other server-reported failure
	ErrKindSchema                // unmappable column kind during DDL synthesis
	ErrKindTimeout               // context deadline / cancellation
	ErrKindInvalidInput          // bad arguments from the caller
)

func (k ErrKind) String() string {
	switch k {
	case ErrKindConfiguration:
		return "configuration"
	case ErrKindFormat:
		return "format"
	case ErrKindIntegrity:
		return "integrity"
	case ErrKindDatabase:
		return "database"
	case ErrKindSchema:
		return "schema"
	case ErrKindTimeout:
		return "timeout"
	case ErrKindInvalidInput:
		return "invalid_input"
	default:
		return "unknown"
	}
}

// Error is the single error type returned by all subsystems.
// Query and Params are filled in by the cursor so a failed statement can be
// diagnosed from the error alone.
type Error struct {
	Kind    ErrKind
	Code    int
	Message string
	Query   string
	Params  []any
	Cause   error // original driver-level error, preserved for logging
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Kind, e.Message)
	if e.Code != 0 {
		msg = fmt.Sprintf("[%s %d] %s", e.Kind, e.Code, e.Message)
	}
	if e.Query != "" {
		msg += fmt.Sprintf(" (query: %s, params: %v)", e.Query, e.Params)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap allows errors.Is / errors.As to traverse the cause chain.
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithCode sets the numeric server error code.
func (e *Error) WithCode(code int) *Error {
	e.Code = code
	return e
}

// WithQuery attaches the dispatched statement and its parameters.
func (e *Error) WithQuery(query string, params []any) *Error {
	e.Query = query
	e.Params = params
	return e
}

// Payload is the shape surfaced to callers that serialise errors.
type Payload struct {
	ErrorKind string `json:"errorKind"`
	Code      int    `json:"code"`
	Message   string `json:"message"`
	Query     string `json:"query"`
	Params    []any  `json:"params"`
}

// Payload returns the diagnostic payload for this error.
func (e *Error) Payload() Payload {
	params := e.Params
	if params == nil {
		params = []any{}
	}
	return Payload{
		ErrorKind: e.Kind.String(),
		Code:      e.Code,
		Message:   e.Message,
		Query:     e.Query,
		Params:    params,
	}
}

// --- Constructors ---

// New creates an *Error with the given kind and message and no cause.
func New(kind ErrKind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Newf is New with fmt formatting.
func Newf(kind ErrKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an *Error with the given kind, message, and an underlying cause.
func Wrap(kind ErrKind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

// --- Predicates ---

// IsConfiguration reports whether err is a missing/bad connection parameter.
func IsConfiguration(err error) bool {
	return kindOf(err) == ErrKindConfiguration
}

// IsFormat reports whether err is a placeholder/parameter mismatch.
func IsFormat(err error) bool {
	return kindOf(err) == ErrKindFormat
}

// IsIntegrity reports whether err is a constraint violation.
func IsIntegrity(err error) bool {
	return kindOf(err) == ErrKindIntegrity
}

// IsDatabase reports whether err is a non-integrity server failure.
func IsDatabase(err error) bool {
	return kindOf(err) == ErrKindDatabase
}

// IsSchema reports whether err came from DDL synthesis.
func IsSchema(err error) bool {
	return kindOf(err) == ErrKindSchema
}

// IsTimeout reports whether err was caused by a deadline or context cancellation.
func IsTimeout(err error) bool {
	return kindOf(err) == ErrKindTimeout
}

// IsInvalidInput reports whether err was caused by bad input from the caller.
func IsInvalidInput(err error) bool {
	return kindOf(err) == ErrKindInvalidInput
}

// KindOf extracts the ErrKind from any error in the chain.
func KindOf(err error) ErrKind {
	return kindOf(err)
}

func kindOf(err error) ErrKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ErrKindUnknown
}
