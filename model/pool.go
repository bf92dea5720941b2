package model

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/hupe1980/agentcouncil/core"
	"github.com/hupe1980/agentcouncil/internal/tracing"
	"github.com/hupe1980/agentcouncil/logging"
)

var errNotRegistered = errors.New("no provider registered")

// PoolOptions configures a Pool.
type PoolOptions struct {
	Logger     logging.Logger
	OnFallback func(from, to string)
	OnUsage    func(model string, usage TokenUsage)
}

// Pool resolves model names to providers and runs generations with automatic
// fallback along the Selector's chain.
type Pool struct {
	mu       sync.RWMutex
	models   map[string]Model
	selector *Selector
	opts     PoolOptions
}

// NewPool creates an empty pool routing with selector (the default selector
// when nil).
func NewPool(selector *Selector, optFns ...func(o *PoolOptions)) *Pool {
	if selector == nil {
		selector = defaultSelector
	}

	opts := PoolOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}

	opts.Logger = logging.OrNoOp(opts.Logger)

	return &Pool{models: make(map[string]Model), selector: selector, opts: opts}
}

// Register binds name to m, replacing any previous binding.
func (p *Pool) Register(name string, m Model) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.models[name] = m
}

// Get returns the provider bound to name.
func (p *Pool) Get(name string) (Model, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	m, ok := p.models[name]

	return m, ok
}

// Names returns the registered model names, sorted.
func (p *Pool) Names() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	names := make([]string, 0, len(p.models))
	for n := range p.models {
		names = append(names, n)
	}

	sort.Strings(names)

	return names
}

// Selector returns the selector used for routing.
func (p *Pool) Selector() *Selector { return p.selector }

// Result is a completed generation.
type Result struct {
	Response
	Model    string   // Model that produced the response
	Attempts []string // Models tried before it, in order
}

// Generate runs req against the selected model and walks NextFallback on
// failure. A name without a registered provider counts as a failed attempt.
// Once a streamed chunk has been forwarded to onChunk the generation is not
// retried. Exhausting the chain returns an error wrapping
// core.ErrNoModelAvailable.
func (p *Pool) Generate(ctx context.Context, sel ModelSelectionResult, req Request, onChunk func(text string)) (Result, error) {
	var (
		attempted []string
		lastErr   error
	)

	current := sel.SelectedModel
	if current == "" {
		current = p.selector.Classes().Balanced
	}

	for {
		resp, streamed, err := p.try(ctx, current, req, onChunk)
		if err == nil {
			return Result{Response: resp, Model: current, Attempts: attempted}, nil
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return Result{}, ctxErr
		}

		if streamed {
			return Result{}, fmt.Errorf("%s failed mid-stream: %w", current, err)
		}

		lastErr = err
		attempted = append(attempted, current)

		next, ok := p.selector.NextFallback(current, attempted)
		if !ok {
			p.opts.Logger.Error("model.fallback.exhausted", "attempted", strings.Join(attempted, ","), "error", lastErr.Error())
			return Result{}, fmt.Errorf("%w: tried %s: %v", core.ErrNoModelAvailable, strings.Join(attempted, ", "), lastErr)
		}

		p.opts.Logger.Warn("model.fallback", "from", current, "to", next, "error", err.Error())

		if p.opts.OnFallback != nil {
			p.opts.OnFallback(current, next)
		}

		current = next
	}
}

func (p *Pool) try(ctx context.Context, name string, req Request, onChunk func(string)) (Response, bool, error) {
	m, ok := p.Get(name)
	if !ok {
		return Response{}, false, fmt.Errorf("%s: %w", name, errNotRegistered)
	}

	ctx, span := tracing.Start(ctx, tracing.SpanModelCall, attribute.String(tracing.AttrModel, name))
	start := time.Now()
	streamed := false

	resp, err := Collect(ctx, m, req, func(text string) {
		streamed = true
		if onChunk != nil {
			onChunk(text)
		}
	})

	tokens := 0
	if resp.Usage != nil {
		tokens = resp.Usage.TotalTokens
	}

	tracing.End(span, err)
	logging.LogModelCall(p.opts.Logger, name, tokens, time.Since(start), err)

	if err == nil && resp.Usage != nil && p.opts.OnUsage != nil {
		p.opts.OnUsage(name, *resp.Usage)
	}

	return resp, streamed, err
}
