package testutil

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/hupe1980/agentcouncil/core"
	"github.com/hupe1980/agentcouncil/model"
)

// Responder computes a step from a request. It is consulted once the queued
// steps are used up.
type Responder func(req model.Request) Step

// ScriptedModel is a deterministic model.Model replaying queued steps. It is
// safe for concurrent use.
type ScriptedModel struct {
	name string

	mu        sync.Mutex
	steps     []Step
	responder Responder
	requests  []model.Request
}

// NewScriptedModel creates a model answering with steps in order.
func NewScriptedModel(name string, steps ...Step) *ScriptedModel {
	return &ScriptedModel{name: name, steps: steps}
}

// Respond sets the responder used after the queued steps (chainable).
func (m *ScriptedModel) Respond(r Responder) *ScriptedModel {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.responder = r

	return m
}

// Enqueue appends steps.
func (m *ScriptedModel) Enqueue(steps ...Step) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.steps = append(m.steps, steps...)
}

// Requests returns the requests received so far.
func (m *ScriptedModel) Requests() []model.Request {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]model.Request(nil), m.requests...)
}

// Calls returns the number of Generate calls.
func (m *ScriptedModel) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.requests)
}

func (m *ScriptedModel) next(req model.Request) Step {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests = append(m.requests, req)

	if len(m.steps) > 0 {
		s := m.steps[0]
		m.steps = m.steps[1:]
		return s
	}

	if m.responder != nil {
		return m.responder(req)
	}

	return TextStep("ok")
}

// Generate implements model.Model.
func (m *ScriptedModel) Generate(ctx context.Context, req model.Request) (<-chan model.Response, <-chan error) {
	out := make(chan model.Response, 16)
	errCh := make(chan error, 1)

	step := m.next(req)

	go func() {
		defer close(out)
		defer close(errCh)

		if step.Delay > 0 {
			timer := time.NewTimer(step.Delay)
			defer timer.Stop()

			select {
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			case <-timer.C:
			}
		}

		if step.Err != nil {
			errCh <- step.Err
			return
		}

		if req.Stream {
			for _, c := range step.Chunks {
				select {
				case <-ctx.Done():
					errCh <- ctx.Err()
					return
				case out <- model.Response{Partial: true, Content: core.NewTextContent(core.RoleAssistant, c)}:
				}
			}
		}

		text := step.Text
		if text == "" && len(step.Calls) == 0 {
			text = strings.Join(step.Chunks, "")
		}

		parts := make([]core.Part, 0, len(step.Calls)+1)
		if text != "" {
			parts = append(parts, core.TextPart{Text: text})
		}

		for _, c := range step.Calls {
			parts = append(parts, core.FunctionCallPart{FunctionCall: c})
		}

		finish := "stop"
		if len(step.Calls) > 0 {
			finish = "tool_calls"
		}

		select {
		case <-ctx.Done():
			errCh <- ctx.Err()
		case out <- model.Response{
			ID:           core.NewID(),
			Content:      core.Content{Role: core.RoleAssistant, Parts: parts},
			FinishReason: finish,
			Usage:        step.Usage,
		}:
		}
	}()

	return out, errCh
}

// Info implements model.Model.
func (m *ScriptedModel) Info() model.Info {
	return model.Info{Name: m.name, Provider: "scripted", SupportsTools: true}
}

// LastUserText returns the text of the last user content of req.
func LastUserText(req model.Request) string {
	for i := len(req.Contents) - 1; i >= 0; i-- {
		if req.Contents[i].Role == core.RoleUser {
			return req.Contents[i].Text()
		}
	}
	return ""
}
