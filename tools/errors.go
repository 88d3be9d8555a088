package tools

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a tool failure for the transport front ends. Every error
// crossing the adapter boundary carries exactly one kind.
type Kind int

const (
	// KindValidation marks caller errors such as a missing required
	// argument. Recoverable by the caller; never logged as a server fault.
	KindValidation Kind = iota

	// KindNotFound marks calls naming an unknown tool.
	KindNotFound

	// KindUpstream marks failures of a tool's own external dependency.
	KindUpstream

	// KindInternal marks anything unclassified. Callers receive a
	// sanitized message; the full detail is logged server-side.
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindUpstream:
		return "upstream"
	default:
		return "internal"
	}
}

// Standard JSON-RPC 2.0 error codes used by tool errors.
const (
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

// Error is a classified tool failure, optionally carrying an error code for
// the transport layer and the underlying cause.
type Error struct {
	Kind    Kind
	Code    int
	Message string
	Data    any
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s (code: %d): %v", e.Message, e.Code, e.Cause)
	}
	return fmt.Sprintf("%s (code: %d)", e.Message, e.Code)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// HTTPStatus maps the error kind to the REST front end's status code.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// NewValidationError creates a caller-facing invalid-argument error.
// This corresponds to JSON-RPC error code -32602.
func NewValidationError(message string) *Error {
	return &Error{Kind: KindValidation, Code: CodeInvalidParams, Message: message}
}

// NewMissingArgumentError creates a validation error naming the missing
// required parameter.
func NewMissingArgumentError(param string) *Error {
	return NewValidationError(fmt.Sprintf("Missing required argument: %s", param))
}

// NewToolNotFoundError creates the error returned when no registered tool
// matches the given name. The message contains the literal tool name; the
// REST front end surfaces it verbatim.
func NewToolNotFoundError(name string) *Error {
	return &Error{
		Kind:    KindNotFound,
		Code:    CodeMethodNotFound,
		Message: fmt.Sprintf("Tool '%s' not found", name),
	}
}

// NewUpstreamError creates an error for a failed external dependency call.
func NewUpstreamError(message string, cause error) *Error {
	return &Error{Kind: KindUpstream, Code: CodeInternalError, Message: message, Cause: cause}
}

// NewInternalError creates an unclassified server-side error.
func NewInternalError(message string, cause error) *Error {
	return &Error{Kind: KindInternal, Code: CodeInternalError, Message: message, Cause: cause}
}

// Classify returns err as a *Error, wrapping unclassified errors as
// internal. A nil err returns nil.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}
	var toolErr *Error
	if errors.As(err, &toolErr) {
		return toolErr
	}
	return NewInternalError(err.Error(), err)
}
