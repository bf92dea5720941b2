package model

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/hupe1980/agentcouncil/core"
)

// ToolCall represents a function call request surfaced by a model provider.
// Unified across vendors so downstream logic does not need per-provider branching.
type ToolCall struct {
	ID       string           `json:"id"`
	Type     string           `json:"type"` // "function"
	Function ToolCallFunction `json:"function"`
}

// ToolCallFunction describes the concrete function target of a tool call.
type ToolCallFunction struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"` // JSON string of arguments
}

// ToolDefinition declaratively exposes a callable function to the model.
type ToolDefinition struct {
	Type     string             `json:"type"` // "function"
	Function FunctionDefinition `json:"function"`
}

// FunctionDefinition describes an individual function (tool) exposed to the model.
// Parameters is a JSON Schema object.
type FunctionDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"` // JSON Schema
}

// Request captures the normalized model input produced by agents.
type Request struct {
	Instructions string           `json:"instructions"` // System prompt
	Contents     []core.Content   `json:"contents"`     // Conversation converted to provider messages
	Tools        []ToolDefinition `json:"tools,omitempty"`
	Stream       bool             `json:"stream,omitempty"`
	Temperature  *float64         `json:"temperature,omitempty"` // Overrides the provider default when set
	MaxTokens    int              `json:"max_tokens,omitempty"`  // Overrides the provider default when > 0
}

// TokenUsage captures token usage statistics for a response.
type TokenUsage = core.TokenUsage

// Response is a (partial or final) chunk emitted by a streaming model.
type Response struct {
	ID           string       `json:"id"`
	Partial      bool         `json:"partial"` // Indicates if this is a partial response
	Content      core.Content `json:"content"`
	FinishReason string       `json:"finish_reason"` // "stop", "length", "tool_calls", etc.
	Usage        *TokenUsage  `json:"usage,omitempty"`
}

// Info contains metadata about a model implementation.
type Info struct {
	Name          string `json:"name"`
	Provider      string `json:"provider"` // "openai", "anthropic", "local", etc.
	SupportsTools bool   `json:"supports_tools"`
}

// Model is the minimal interface required by agents to drive generation.
//
// Generate returns a response channel and an error channel; both are closed
// when generation ends. Partial responses precede exactly one final response
// unless an error is reported.
type Model interface {
	Generate(ctx context.Context, req Request) (<-chan Response, <-chan error)

	// Info returns information about the model implementation.
	Info() Info
}

// ErrEmptyResponse is returned by Collect when a model closed its stream
// without a final response.
var ErrEmptyResponse = errors.New("model returned no final response")

// Collect drains a generation into its final response. Text of partial
// responses is forwarded to onChunk when non-nil.
func Collect(ctx context.Context, m Model, req Request, onChunk func(text string)) (Response, error) {
	respCh, errCh := m.Generate(ctx, req)

	var (
		final    *Response
		streamed strings.Builder
	)

	for respCh != nil || errCh != nil {
		select {
		case <-ctx.Done():
			return Response{}, ctx.Err()
		case resp, ok := <-respCh:
			if !ok {
				respCh = nil
				continue
			}

			if resp.Partial {
				if text := resp.Content.Text(); text != "" {
					streamed.WriteString(text)
					if onChunk != nil {
						onChunk(text)
					}
				}

				continue
			}

			r := resp
			final = &r
		case err, ok := <-errCh:
			if !ok {
				errCh = nil
				continue
			}

			if err != nil {
				return Response{}, fmt.Errorf("%s: %w", m.Info().Name, err)
			}
		}
	}

	if final == nil {
		return Response{}, ErrEmptyResponse
	}

	// some providers only put text into partial chunks
	if final.Content.Text() == "" && streamed.Len() > 0 {
		final.Content.Parts = append([]core.Part{core.TextPart{Text: streamed.String()}}, final.Content.Parts...)
	}

	return *final, nil
}

// Float returns a pointer to v, for Request.Temperature.
func Float(v float64) *float64 { return &v }
