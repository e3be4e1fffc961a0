package types

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unified error code across the engine.
type ErrorCode string

// Engine error codes
const (
	// ErrEmptyGraph means a run was requested on a graph with no nodes.
	ErrEmptyGraph ErrorCode = "EMPTY_GRAPH"
	// ErrNoExecutableNodes means nodes exist but the scheduler produced no
	// runnable order (every node sits inside or downstream of a cycle).
	ErrNoExecutableNodes ErrorCode = "NO_EXECUTABLE_NODES"
	// ErrCyclicGraph means the scheduler resolved only part of the graph.
	ErrCyclicGraph ErrorCode = "CYCLIC_GRAPH"
	// ErrAgentInvocation means the external agent call failed.
	ErrAgentInvocation ErrorCode = "AGENT_INVOCATION"
	// ErrRunInProgress means a run was requested while one is in flight.
	ErrRunInProgress ErrorCode = "RUN_IN_PROGRESS"
	// ErrUnknownAgentType means no agent is registered for a node's type tag.
	ErrUnknownAgentType ErrorCode = "UNKNOWN_AGENT_TYPE"
)

// Persistence error codes
const (
	// ErrInvalidWorkflowDocument means an import payload is malformed.
	ErrInvalidWorkflowDocument ErrorCode = "INVALID_WORKFLOW_DOCUMENT"
	// ErrNotFound is the negative result for an empty snapshot slot.
	ErrNotFound ErrorCode = "NOT_FOUND"
	// ErrConfirmationRequired means an import would replace a non-empty
	// live graph and the caller did not confirm.
	ErrConfirmationRequired ErrorCode = "CONFIRMATION_REQUIRED"
)

// API error codes
const (
	ErrInvalidRequest ErrorCode = "INVALID_REQUEST"
	ErrUnauthorized   ErrorCode = "UNAUTHORIZED"
	ErrInternalError  ErrorCode = "INTERNAL_ERROR"
)

// Error represents a structured error with code, message, and metadata.
type Error struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	NodeID     string    `json:"node_id,omitempty"`
	HTTPStatus int       `json:"http_status,omitempty"`
	Cause      error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithNodeID attributes the error to a node.
func (e *Error) WithNodeID(nodeID string) *Error {
	e.NodeID = nodeID
	return e
}

// WithHTTPStatus sets the HTTP status code.
func (e *Error) WithHTTPStatus(status int) *Error {
	e.HTTPStatus = status
	return e
}

// AsError extracts a *Error from err's chain, or nil.
func AsError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return nil
}

// IsErrorCode reports whether err carries the given code.
func IsErrorCode(err error, code ErrorCode) bool {
	if e := AsError(err); e != nil {
		return e.Code == code
	}
	return false
}

// IsNotFound reports whether err is the empty-snapshot negative result.
func IsNotFound(err error) bool {
	return IsErrorCode(err, ErrNotFound)
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) ErrorCode {
	if e := AsError(err); e != nil {
		return e.Code
	}
	return ""
}
