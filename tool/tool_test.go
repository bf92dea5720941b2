package tool

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentcouncil/core"
)

func newTestRegistry(t *testing.T, tools ...Tool) *Registry {
	t.Helper()

	r := NewRegistry()
	for _, tl := range tools {
		require.NoError(t, r.Register(tl))
	}

	return r
}

type sumArgs struct {
	A float64 `json:"a" description:"First addend"`
	B float64 `json:"b" description:"Second addend"`
}

func sumTool() Tool {
	return Typed("calculate_sum", "Calculate the sum of two numbers",
		func(_ context.Context, args sumArgs) (float64, error) {
			return args.A + args.B, nil
		})
}

// -------------------- Registry Execute --------------------

func TestRegistry_ExecuteSuccess(t *testing.T) {
	r := newTestRegistry(t, sumTool())

	res := r.Execute(context.Background(), core.FunctionCall{ID: "1", Name: "calculate_sum", Arguments: `{"a":2,"b":3}`})

	assert.False(t, res.Failed(), res.Error)
	assert.Equal(t, "1", res.ID)
	assert.InDelta(t, 5.0, res.Result, 1e-9)
	assert.Equal(t, map[string]any{"a": 2.0, "b": 3.0}, res.Input)
}

func TestRegistry_ExecuteFailures(t *testing.T) {
	var invoked atomic.Int32

	pkg := Typed(NameLookupPackage, "lookup", func(_ context.Context, args LookupPackageArgs) (PackageInfo, error) {
		invoked.Add(1)
		return PackageInfo{Name: args.Name, Manager: args.Manager, Found: true}, nil
	})

	failing := NewFunctionTool("failing", "always fails", nil, func(context.Context, map[string]any) (any, error) {
		return nil, errors.New("backend down")
	})

	panicking := NewFunctionTool("panicking", "panics", nil, func(context.Context, map[string]any) (any, error) {
		panic("kaboom")
	})

	r := newTestRegistry(t, pkg, failing, panicking)

	tests := []struct {
		name     string
		call     core.FunctionCall
		wantCode string
	}{
		{"unknown tool", core.FunctionCall{Name: "nope"}, CodeNotFound},
		{"malformed json", core.FunctionCall{Name: NameLookupPackage, Arguments: `{"name":`}, CodeValidation},
		{"not an object", core.FunctionCall{Name: NameLookupPackage, Arguments: `[1, 2]`}, CodeValidation},
		{"missing required", core.FunctionCall{Name: NameLookupPackage, Arguments: `{"name":"nginx"}`}, CodeValidation},
		{"wrong type", core.FunctionCall{Name: NameLookupPackage, Arguments: `{"name":42,"manager":"apt"}`}, CodeValidation},
		{"enum mismatch", core.FunctionCall{Name: NameLookupPackage, Arguments: `{"name":"nginx","manager":"zypper"}`}, CodeValidation},
		{"handler error", core.FunctionCall{Name: "failing"}, CodeExecution},
		{"handler panic", core.FunctionCall{Name: "panicking"}, CodePanic},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := r.Execute(context.Background(), tt.call)

			assert.True(t, res.Failed())
			assert.Contains(t, res.Error, tt.wantCode)
			assert.Nil(t, res.Result)
		})
	}

	assert.Equal(t, int32(0), invoked.Load(), "invalid arguments must never reach the handler")

	ok := r.Execute(context.Background(), core.FunctionCall{Name: NameLookupPackage, Arguments: `{"name":"nginx","manager":"apt"}`})
	assert.False(t, ok.Failed(), ok.Error)
	assert.Equal(t, int32(1), invoked.Load())

	repaired := r.Execute(context.Background(), core.FunctionCall{Name: NameLookupPackage, Arguments: `{"name":"nginx","manager":"apt",}`})
	assert.False(t, repaired.Failed(), repaired.Error)
	assert.Equal(t, int32(2), invoked.Load())
}

func TestRegistry_RegisterDuplicate(t *testing.T) {
	r := newTestRegistry(t, sumTool())

	err := r.Register(sumTool())

	assert.ErrorContains(t, err, "already registered")
}

func TestRegistry_DefinitionsFiltered(t *testing.T) {
	k := Toolkit{
		WebSearch:  SearchFunc(func(context.Context, WebSearchArgs) ([]SearchHit, error) { return nil, nil }),
		Calculator: CalculatorFunc(func(context.Context, CalculateArgs) (CalcResult, error) { return CalcResult{}, nil }),
	}

	r, err := NewRegistryFromToolkit(k)
	require.NoError(t, err)

	assert.Equal(t, []string{NameCalculate, NameWebSearch}, r.Names())

	defs := r.Definitions(NameWebSearch, "unknown")
	require.Len(t, defs, 1)
	assert.Equal(t, NameWebSearch, defs[0].Function.Name)
	assert.Equal(t, "function", defs[0].Type)

	assert.Len(t, r.Definitions(), 2)
}

func TestRegistry_Observer(t *testing.T) {
	var observed []string

	r := NewRegistry(func(o *RegistryOptions) {
		o.Observer = func(tool string, _ time.Duration, err error) {
			observed = append(observed, tool)
		}
	})
	require.NoError(t, r.Register(sumTool()))

	r.Execute(context.Background(), core.FunctionCall{Name: "calculate_sum", Arguments: `{"a":1,"b":1}`})
	r.Execute(context.Background(), core.FunctionCall{Name: "calculate_sum", Arguments: `{}`})

	assert.Equal(t, []string{"calculate_sum"}, observed, "validation failures are not executions")
}

// -------------------- Cache --------------------

func TestCached(t *testing.T) {
	var calls atomic.Int32

	base := Typed(NameWebSearch, "search", func(_ context.Context, args WebSearchArgs) ([]SearchHit, error) {
		calls.Add(1)
		if args.Query == "fail" {
			return nil, errors.New("nope")
		}
		return []SearchHit{{URL: "https://example.com/" + args.Query}}, nil
	})

	c := Cached(base, 8, time.Minute).(*cachedTool)
	now := time.Now()
	c.now = func() time.Time { return now }

	ctx := context.Background()

	_, err := c.Call(ctx, map[string]any{"query": "go"})
	require.NoError(t, err)
	_, err = c.Call(ctx, map[string]any{"query": "go"})
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())

	_, err = c.Call(ctx, map[string]any{"query": "fail"})
	assert.Error(t, err)
	_, err = c.Call(ctx, map[string]any{"query": "fail"})
	assert.Error(t, err)
	assert.Equal(t, int32(3), calls.Load(), "errors are not cached")

	now = now.Add(2 * time.Minute)
	_, err = c.Call(ctx, map[string]any{"query": "go"})
	require.NoError(t, err)
	assert.Equal(t, int32(4), calls.Load(), "expired entries are refreshed")

	assert.Equal(t, NameWebSearch, c.Name())
}

func TestWithCache_OnlyIdempotentTools(t *testing.T) {
	tools := WithCache(Toolkit{
		WebSearch:  SearchFunc(func(context.Context, WebSearchArgs) ([]SearchHit, error) { return nil, nil }),
		Calculator: CalculatorFunc(func(context.Context, CalculateArgs) (CalcResult, error) { return CalcResult{}, nil }),
	}.Tools(), 0, 0)

	_, searchCached := tools[0].(*cachedTool)
	_, calcCached := tools[1].(*cachedTool)

	assert.True(t, searchCached)
	assert.False(t, calcCached)
}

func TestToolErrorFormatting(t *testing.T) {
	assert.Equal(t, "tool error [VALIDATION_ERROR] in x: bad", NewToolError("x", "bad", CodeValidation).Error())
	assert.Equal(t, "tool error in x: bad", (&ToolError{Tool: "x", Message: "bad"}).Error())
}

func TestIsSearch(t *testing.T) {
	assert.True(t, IsSearch(NameWebSearch))
	assert.True(t, IsSearch(NameSearchWikipedia))
	assert.False(t, IsSearch(NameCalculate))
}
