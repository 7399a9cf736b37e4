package mcp

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreerrors "github.com/Aman-CERP/coderag/internal/errors"
)

func TestMapError_NilError(t *testing.T) {
	var err error = nil
	result := MapError(err)
	assert.Nil(t, result)
}

func TestMapError_NotFound(t *testing.T) {
	err := fmt.Errorf("%w: no chunks for file", coreerrors.ErrNotFound)
	result := MapError(err)
	require.NotNil(t, result)
	assert.Equal(t, ErrCodeNotFound, result.Code)
}

func TestMapError_Schema(t *testing.T) {
	err := fmt.Errorf("%w: unknown filter field", coreerrors.ErrSchema)
	result := MapError(err)
	require.NotNil(t, result)
	assert.Equal(t, ErrCodeInvalidParams, result.Code)
}

func TestMapError_Transient(t *testing.T) {
	err := fmt.Errorf("%w: store unreachable", coreerrors.ErrTransient)
	result := MapError(err)
	require.NotNil(t, result)
	assert.Equal(t, ErrCodeTransient, result.Code)
}

func TestMapError_DeadlineExceeded(t *testing.T) {
	result := MapError(context.DeadlineExceeded)
	require.NotNil(t, result)
	assert.Equal(t, ErrCodeTimeout, result.Code)
	assert.Contains(t, result.Message, "timed out")
}

func TestMapError_Canceled(t *testing.T) {
	result := MapError(context.Canceled)
	require.NotNil(t, result)
	assert.Equal(t, ErrCodeTimeout, result.Code)
	assert.Contains(t, result.Message, "canceled")
}

func TestMapError_ToolNotFound(t *testing.T) {
	result := MapError(ErrToolNotFound)
	require.NotNil(t, result)
	assert.Equal(t, ErrCodeMethodNotFound, result.Code)
}

func TestMapError_InvalidParams(t *testing.T) {
	result := MapError(ErrInvalidParams)
	require.NotNil(t, result)
	assert.Equal(t, ErrCodeInvalidParams, result.Code)
}

func TestMapError_UnknownError(t *testing.T) {
	result := MapError(errors.New("some unknown error"))
	require.NotNil(t, result)
	assert.Equal(t, ErrCodeInternalError, result.Code)
	assert.Contains(t, result.Message, "Internal server error")
}

func TestMapError_WrappedError(t *testing.T) {
	err := fmt.Errorf("failed to bundle: %w", coreerrors.ErrNotFound)
	result := MapError(err)
	require.NotNil(t, result)
	assert.Equal(t, ErrCodeNotFound, result.Code)
}

func TestMCPError_Error(t *testing.T) {
	err := &MCPError{Code: ErrCodeInvalidParams, Message: "missing required field"}
	msg := err.Error()
	assert.Contains(t, msg, "MCP error")
	assert.Contains(t, msg, "-32602")
	assert.Contains(t, msg, "missing required field")
}

func TestNewInvalidParamsError(t *testing.T) {
	msg := "query parameter is required"
	err := NewInvalidParamsError(msg)
	assert.Equal(t, ErrCodeInvalidParams, err.Code)
	assert.Equal(t, msg, err.Message)
}

func TestNewMethodNotFoundError(t *testing.T) {
	name := "unknown_tool"
	err := NewMethodNotFoundError(name)
	assert.Equal(t, ErrCodeMethodNotFound, err.Code)
	assert.Contains(t, err.Message, name)
}

func TestNewResourceNotFoundError(t *testing.T) {
	uri := "file://src/main.go"
	err := NewResourceNotFoundError(uri)
	assert.Equal(t, ErrCodeMethodNotFound, err.Code)
	assert.Contains(t, err.Message, uri)
}
