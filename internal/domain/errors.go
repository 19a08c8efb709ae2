// Canonical error types for the gateway. Only genuinely unexpected
// conditions travel as errors; every recoverable condition in the decision
// pipeline (ambiguous authorization bodies, rejected candidates, cache I/O
// failures) is resolved locally with a classification or fallback instead.
package domain

import (
	"fmt"
	"net/http"
)

// ErrorType represents the category of a pipeline error.
type ErrorType string

const (
	// ErrorTypeInvalidRequest indicates a malformed or invalid request.
	ErrorTypeInvalidRequest ErrorType = "invalid_request"

	// ErrorTypeUpstream indicates the authorization service could not be
	// reached or failed at the transport level.
	ErrorTypeUpstream ErrorType = "upstream"

	// ErrorTypeContract indicates the authorization service violated its
	// response contract (e.g. an ALLOW with no receipt identifier).
	ErrorTypeContract ErrorType = "contract_violation"

	// ErrorTypeNotFound indicates a resource was not found.
	ErrorTypeNotFound ErrorType = "not_found"

	// ErrorTypeServer indicates an internal error.
	ErrorTypeServer ErrorType = "server"
)

// ErrorCode provides additional specificity beyond the error type.
type ErrorCode string

const (
	ErrorCodeMissingReceipt     ErrorCode = "missing_receipt_id"
	ErrorCodeAuthzUnreachable   ErrorCode = "authorization_unreachable"
	ErrorCodeTurnNotFound       ErrorCode = "turn_not_found"
	ErrorCodeNarrationNotCached ErrorCode = "narration_not_cached"
)

// PipelineError is the canonical error returned by the decision pipeline
// and translated to an HTTP response by the server layer.
type PipelineError struct {
	// Type is the category of error.
	Type ErrorType `json:"type"`

	// Code is an optional specific error code.
	Code ErrorCode `json:"code,omitempty"`

	// Message is the human-readable error message. It never contains raw
	// upstream response bodies or unvalidated generated text.
	Message string `json:"message"`

	// StatusCode is the suggested HTTP status code.
	StatusCode int `json:"-"`
}

// Error implements the error interface.
func (e *PipelineError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s (%s): %s", e.Type, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// HTTPStatusCode returns the appropriate HTTP status code for this error.
func (e *PipelineError) HTTPStatusCode() int {
	if e.StatusCode != 0 {
		return e.StatusCode
	}

	switch e.Type {
	case ErrorTypeInvalidRequest:
		return http.StatusBadRequest
	case ErrorTypeNotFound:
		return http.StatusNotFound
	case ErrorTypeUpstream:
		return http.StatusBadGateway
	case ErrorTypeContract, ErrorTypeServer:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// NewPipelineError creates a new pipeline error.
func NewPipelineError(errType ErrorType, message string) *PipelineError {
	return &PipelineError{
		Type:    errType,
		Message: message,
	}
}

// WithCode adds an error code to the error.
func (e *PipelineError) WithCode(code ErrorCode) *PipelineError {
	e.Code = code
	return e
}

// WithStatusCode sets a specific HTTP status code.
func (e *PipelineError) WithStatusCode(code int) *PipelineError {
	e.StatusCode = code
	return e
}

// Convenience constructors for common errors

// ErrInvalidRequest creates an invalid request error.
func ErrInvalidRequest(message string) *PipelineError {
	return NewPipelineError(ErrorTypeInvalidRequest, message)
}

// ErrUpstream creates an upstream transport error.
func ErrUpstream(message string) *PipelineError {
	return NewPipelineError(ErrorTypeUpstream, message).
		WithCode(ErrorCodeAuthzUnreachable)
}

// ErrContractViolation creates a contract violation error.
func ErrContractViolation(message string) *PipelineError {
	return NewPipelineError(ErrorTypeContract, message)
}

// ErrNotFound creates a not found error.
func ErrNotFound(message string) *PipelineError {
	return NewPipelineError(ErrorTypeNotFound, message)
}

// ErrServer creates an internal error.
func ErrServer(message string) *PipelineError {
	return NewPipelineError(ErrorTypeServer, message)
}

// ErrMissingReceipt marks an ALLOW outcome that arrived without a receipt
// identifier. The pipeline escalates this instead of proceeding.
func ErrMissingReceipt() *PipelineError {
	return ErrContractViolation("authorization allowed but no receipt identifier was supplied").
		WithCode(ErrorCodeMissingReceipt)
}
