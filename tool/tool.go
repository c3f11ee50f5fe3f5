// Package tool defines the callable-tool abstraction the supervisor
// dispatches on, plus a function-backed implementation for registering
// tools inline.
package tool

import (
	"context"
	"fmt"

	"github.com/avachat/ava/internal/util"
)

// Error codes reported by ToolError.
const (
	ErrCodeValidation = "VALIDATION_ERROR"
	ErrCodeExecution  = "EXECUTION_ERROR"
)

// ToolError carries a stable code alongside the failure so callers can
// distinguish bad arguments from runtime faults.
type ToolError struct {
	Code    string
	Tool    string
	Message string
	Err     error
}

func (e *ToolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("tool %s: %s [%s]: %v", e.Tool, e.Message, e.Code, e.Err)
	}
	return fmt.Sprintf("tool %s: %s [%s]", e.Tool, e.Message, e.Code)
}

func (e *ToolError) Unwrap() error { return e.Err }

// NewValidationError creates a ToolError for rejected arguments.
func NewValidationError(tool, message string, err error) *ToolError {
	return &ToolError{Code: ErrCodeValidation, Tool: tool, Message: message, Err: err}
}

// NewExecutionError creates a ToolError for a failure during execution.
func NewExecutionError(tool, message string, err error) *ToolError {
	return &ToolError{Code: ErrCodeExecution, Tool: tool, Message: message, Err: err}
}

// Tool is a capability the supervisor can request by name during its
// planning phase.
type Tool interface {
	// Name returns the unique tool name.
	Name() string

	// Description returns what the tool does, written for the model.
	Description() string

	// Parameters returns the JSON schema of the tool's arguments.
	Parameters() map[string]any

	// Call executes the tool. args are the decoded JSON arguments.
	Call(ctx context.Context, args map[string]any) (any, error)
}

// FunctionTool adapts a Go function into a Tool. Arguments are validated
// against the schema before the function runs.
type FunctionTool struct {
	name        string
	description string
	parameters  map[string]any
	fn          func(ctx context.Context, args map[string]any) (any, error)
}

var _ Tool = (*FunctionTool)(nil)

// NewFunctionTool creates a tool backed by fn.
func NewFunctionTool(name, description string, parameters map[string]any, fn func(ctx context.Context, args map[string]any) (any, error)) *FunctionTool {
	return &FunctionTool{name: name, description: description, parameters: parameters, fn: fn}
}

// Name implements Tool.
func (t *FunctionTool) Name() string { return t.name }

// Description implements Tool.
func (t *FunctionTool) Description() string { return t.description }

// Parameters implements Tool.
func (t *FunctionTool) Parameters() map[string]any { return t.parameters }

// Call implements Tool.
func (t *FunctionTool) Call(ctx context.Context, args map[string]any) (any, error) {
	if err := util.ValidateParameters(args, t.parameters); err != nil {
		return nil, NewValidationError(t.name, "invalid arguments", err)
	}
	result, err := t.fn(ctx, args)
	if err != nil {
		return nil, NewExecutionError(t.name, "execution failed", err)
	}
	return result, nil
}
