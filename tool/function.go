package tool

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hupe1980/agentcouncil/internal/util"
)

// FunctionTool is a generic adapter that exposes a plain Go function as a tool.
//
// The registry validates arguments against the parameter schema before Call
// is reached, so fn receives well formed input. A FunctionTool has no mutable
// state after construction and is safe for concurrent use.
type FunctionTool struct {
	// Tool identifier (snake_case recommended)
	name string
	// Human-readable description shown to models
	description string
	// JSON schema describing accepted arguments
	parameters map[string]any
	// User supplied implementation
	fn func(ctx context.Context, args map[string]any) (any, error)
}

// NewFunctionTool constructs a FunctionTool from explicit schema and function.
//
// Example:
//
//	sumTool := NewFunctionTool(
//	  "calculate_sum",
//	  "Calculate the sum of two numbers",
//	  map[string]any{
//	    "type": "object",
//	    "properties": map[string]any{
//	      "a": map[string]any{"type": "number"},
//	      "b": map[string]any{"type": "number"},
//	    },
//	    "required": []string{"a", "b"},
//	  },
//	  func(ctx context.Context, args map[string]any) (any, error) {
//	    return args["a"].(float64) + args["b"].(float64), nil
//	  },
//	)
func NewFunctionTool(
	name, description string,
	parameters map[string]any,
	fn func(ctx context.Context, args map[string]any) (any, error),
) *FunctionTool {
	return &FunctionTool{
		name:        name,
		description: description,
		parameters:  parameters,
		fn:          fn,
	}
}

// Typed adapts a strongly typed handler into a Tool. The parameter schema is
// derived from A by reflection (json, description and enum struct tags) and
// validated arguments are decoded into A before fn runs.
//
// Example:
//
//	type SumArgs struct {
//	  A float64 `json:"a" description:"First addend"`
//	  B float64 `json:"b" description:"Second addend"`
//	}
//
//	sumTool := Typed("calculate_sum", "Calculate the sum of two numbers",
//	  func(ctx context.Context, args SumArgs) (float64, error) {
//	    return args.A + args.B, nil
//	  })
func Typed[A any, R any](name, description string, fn func(ctx context.Context, args A) (R, error)) *FunctionTool {
	var zero A

	return NewFunctionTool(name, description, util.CreateSchema(zero), func(ctx context.Context, raw map[string]any) (any, error) {
		args, err := decodeArgs[A](raw)
		if err != nil {
			return nil, &ToolError{Tool: name, Message: err.Error(), Code: CodeValidation}
		}

		return fn(ctx, args)
	})
}

func decodeArgs[A any](raw map[string]any) (A, error) {
	var args A

	b, err := json.Marshal(raw)
	if err != nil {
		return args, fmt.Errorf("encode arguments: %w", err)
	}

	if err := json.Unmarshal(b, &args); err != nil {
		return args, fmt.Errorf("decode arguments: %w", err)
	}

	return args, nil
}

// Name returns the unique tool name used in function call declarations and routing.
func (t *FunctionTool) Name() string { return t.name }

// Description returns the short natural language description exposed to models.
func (t *FunctionTool) Description() string { return t.description }

// Parameters returns the JSON schema describing expected arguments.
func (t *FunctionTool) Parameters() map[string]any { return t.parameters }

// Call invokes the underlying function.
func (t *FunctionTool) Call(ctx context.Context, args map[string]any) (any, error) {
	return t.fn(ctx, args)
}
