package tool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/kaptinlin/jsonrepair"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"go.opentelemetry.io/otel/attribute"

	"github.com/hupe1980/agentcouncil/core"
	"github.com/hupe1980/agentcouncil/internal/tracing"
	"github.com/hupe1980/agentcouncil/logging"
	"github.com/hupe1980/agentcouncil/model"
)

// Observer is notified after every executed call, e.g. to feed metrics.
type Observer func(tool string, dur time.Duration, err error)

// RegistryOptions configures a Registry.
type RegistryOptions struct {
	Logger   logging.Logger
	Observer Observer
}

type entry struct {
	tool   Tool
	schema *jsonschema.Schema
}

// Registry maps tool names to tools with precompiled parameter schemas. It is
// safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	tools    map[string]entry
	logger   logging.Logger
	observer Observer
}

// NewRegistry creates an empty registry.
func NewRegistry(optFns ...func(o *RegistryOptions)) *Registry {
	opts := RegistryOptions{Logger: logging.NoOpLogger{}}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Registry{
		tools:    make(map[string]entry),
		logger:   logging.OrNoOp(opts.Logger),
		observer: opts.Observer,
	}
}

// Register adds t, compiling its parameter schema once. Duplicate names and
// invalid schemas are rejected.
func (r *Registry) Register(t Tool) error {
	name := t.Name()
	if name == "" {
		return errors.New("tool name must not be empty")
	}

	schema, err := compileSchema(name, t.Parameters())
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tool %q already registered", name)
	}

	r.tools[name] = entry{tool: t, schema: schema}

	return nil
}

// MustRegister is Register that panics on error.
func (r *Registry) MustRegister(t Tool) {
	if err := r.Register(t); err != nil {
		panic(err)
	}
}

// Get returns the tool registered under name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.tools[name]

	return e.tool, ok
}

// Names returns the sorted tool names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// Definitions returns model facing declarations, restricted to allowed when
// given. Unknown names in allowed are ignored.
func (r *Registry) Definitions(allowed ...string) []model.ToolDefinition {
	names := r.Names()
	if len(allowed) > 0 {
		set := make(map[string]struct{}, len(allowed))
		for _, a := range allowed {
			set[a] = struct{}{}
		}

		filtered := names[:0]
		for _, n := range names {
			if _, ok := set[n]; ok {
				filtered = append(filtered, n)
			}
		}

		names = filtered
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]model.ToolDefinition, 0, len(names))
	for _, n := range names {
		t := r.tools[n].tool
		defs = append(defs, model.ToolDefinition{
			Type: "function",
			Function: model.FunctionDefinition{
				Name:        t.Name(),
				Description: t.Description(),
				Parameters:  t.Parameters(),
			},
		})
	}

	return defs
}

// Execute validates and runs a model requested call. Every failure (unknown
// tool, malformed or invalid arguments, handler error or panic) is reported in
// the result's Error field; the handler never runs with invalid arguments.
func (r *Registry) Execute(ctx context.Context, call core.FunctionCall) core.ToolCallResult {
	res := core.ToolCallResult{ID: call.ID, Name: call.Name}

	r.mu.RLock()
	e, ok := r.tools[call.Name]
	r.mu.RUnlock()

	if !ok {
		res.Error = NewToolError(call.Name, core.ErrToolNotFound.Error(), CodeNotFound).Error()
		return res
	}

	args, err := parseArguments(call.Arguments)
	if err != nil {
		res.Error = (&ToolError{Tool: call.Name, Message: err.Error(), Code: CodeValidation}).Error()
		return res
	}

	res.Input = args

	if err := e.schema.Validate(args); err != nil {
		r.logger.Warn("tool.call.validation_failed", "tool", call.Name, "error", err.Error())
		res.Error = (&ToolError{
			Tool:    call.Name,
			Message: fmt.Sprintf("parameter validation failed: %s", flattenValidation(err)),
			Code:    CodeValidation,
		}).Error()

		return res
	}

	ctx, span := tracing.Start(ctx, tracing.SpanToolExecute, attribute.String(tracing.AttrToolName, call.Name))
	start := time.Now()

	r.logger.Debug("tool.call.start", "tool", call.Name, "fc_id", call.ID)

	out, err := r.invoke(ctx, e.tool, args)

	dur := time.Since(start)
	tracing.End(span, err)
	logging.LogToolCall(r.logger, call.Name, dur, err)

	if r.observer != nil {
		r.observer(call.Name, dur, err)
	}

	if err != nil {
		res.Error = err.Error()
		return res
	}

	res.Result = out

	return res
}

func (r *Registry) invoke(ctx context.Context, t Tool, args map[string]any) (out any, err error) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("tool.call.panic", "tool", t.Name(), "panic", p, "stack", string(debug.Stack()))
			out, err = nil, &ToolError{Tool: t.Name(), Message: fmt.Sprintf("panic: %v", p), Code: CodePanic}
		}
	}()

	out, err = t.Call(ctx, args)
	if err != nil {
		var toolErr *ToolError
		if errors.As(err, &toolErr) {
			return nil, toolErr
		}

		return nil, &ToolError{Tool: t.Name(), Message: err.Error(), Code: CodeExecution}
	}

	return out, nil
}

func parseArguments(raw string) (map[string]any, error) {
	if strings.TrimSpace(raw) == "" {
		return map[string]any{}, nil
	}

	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		// models occasionally emit trailing commas or cut-off objects
		fixed, rerr := jsonrepair.JSONRepair(raw)
		if rerr != nil || json.Unmarshal([]byte(fixed), &args) != nil {
			return nil, fmt.Errorf("malformed arguments: %w", err)
		}
	}

	if args == nil {
		args = map[string]any{}
	}

	return args, nil
}

// compileSchema round-trips params through JSON so the compiler sees plain
// decoded values ([]any, float64) regardless of how the map was built.
func compileSchema(name string, params map[string]any) (*jsonschema.Schema, error) {
	if params == nil {
		params = map[string]any{"type": "object"}
	}

	b, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("marshal schema for %s: %w", name, err)
	}

	var doc any
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal schema for %s: %w", name, err)
	}

	url := name + ".json"

	c := jsonschema.NewCompiler()
	if err := c.AddResource(url, doc); err != nil {
		return nil, fmt.Errorf("add schema resource for %s: %w", name, err)
	}

	schema, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile schema for %s: %w", name, err)
	}

	return schema, nil
}

func flattenValidation(err error) string {
	lines := strings.Split(strings.TrimSpace(err.Error()), "\n")
	for i := range lines {
		lines[i] = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(lines[i]), "-"))
	}

	return strings.Join(lines, "; ")
}
