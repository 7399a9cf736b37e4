// Package mcp implements the Model Context Protocol (MCP) server exposing
// the search façade, context bundler, and memory store as agent tools.
package mcp

import (
	"context"
	"errors"
	"fmt"

	coreerrors "github.com/Aman-CERP/coderag/internal/errors"
)

// MCP error codes used when a request cannot even be dispatched (malformed
// params, unknown tool). Business-logic failures inside a dispatched tool
// never use these — they are reported as `{error: string}` in the tool's
// own output instead (§7 propagation policy).
const (
	ErrCodeNotFound       = -32001
	ErrCodeTransient      = -32002
	ErrCodeTimeout        = -32003
	ErrCodeInvalidRequest = -32600
	ErrCodeMethodNotFound = -32601
	ErrCodeInvalidParams  = -32602
	ErrCodeInternalError  = -32603
)

// Sentinel errors for internal use.
var (
	ErrToolNotFound     = errors.New("tool not found")
	ErrInvalidParams    = errors.New("invalid parameters")
	ErrResourceNotFound = errors.New("resource not found")
)

// MCPError represents an MCP protocol error with code and message.
type MCPError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// MapError converts an internal error to an MCPError, for the narrow set
// of dispatch-level failures (bad params, unknown tool) that are allowed
// to surface as protocol errors rather than tool output.
func MapError(err error) *MCPError {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, coreerrors.ErrNotFound):
		return &MCPError{Code: ErrCodeNotFound, Message: err.Error()}
	case errors.Is(err, coreerrors.ErrSchema):
		return &MCPError{Code: ErrCodeInvalidParams, Message: err.Error()}
	case errors.Is(err, coreerrors.ErrTransient):
		return &MCPError{Code: ErrCodeTransient, Message: err.Error()}
	case errors.Is(err, context.DeadlineExceeded):
		return &MCPError{Code: ErrCodeTimeout, Message: "Request timed out."}
	case errors.Is(err, context.Canceled):
		return &MCPError{Code: ErrCodeTimeout, Message: "Request was canceled."}
	case errors.Is(err, ErrToolNotFound):
		return &MCPError{Code: ErrCodeMethodNotFound, Message: "Tool not found."}
	case errors.Is(err, ErrInvalidParams):
		return &MCPError{Code: ErrCodeInvalidParams, Message: "Invalid parameters."}
	case errors.Is(err, ErrResourceNotFound):
		return &MCPError{Code: ErrCodeMethodNotFound, Message: "Resource not found."}
	default:
		return &MCPError{Code: ErrCodeInternalError, Message: "Internal server error."}
	}
}

// NewInvalidParamsError creates an error for invalid parameters with a custom message.
func NewInvalidParamsError(msg string) *MCPError {
	return &MCPError{Code: ErrCodeInvalidParams, Message: msg}
}

// NewMethodNotFoundError creates an error for unknown methods/tools.
func NewMethodNotFoundError(name string) *MCPError {
	return &MCPError{Code: ErrCodeMethodNotFound, Message: fmt.Sprintf("Tool '%s' not found.", name)}
}

// NewResourceNotFoundError creates an error for unknown resources.
func NewResourceNotFoundError(uri string) *MCPError {
	return &MCPError{Code: ErrCodeMethodNotFound, Message: fmt.Sprintf("Resource '%s' not found.", uri)}
}
