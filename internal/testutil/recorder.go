package testutil

import (
	"sync"

	"github.com/hupe1980/agentcouncil/core"
)

// Recorder collects emitted events. It is safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	events []core.Event
}

// Emit appends e; use it as an emit callback.
func (r *Recorder) Emit(e core.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = append(r.events, e)
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []core.Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]core.Event(nil), r.events...)
}

// OfKind returns the recorded events of kind.
func (r *Recorder) OfKind(kind core.EventKind) []core.Event {
	var out []core.Event
	for _, e := range r.Events() {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// ForAgent returns the recorded events of one agent id.
func (r *Recorder) ForAgent(id string) []core.Event {
	var out []core.Event
	for _, e := range r.Events() {
		if e.AgentID == id {
			out = append(out, e)
		}
	}
	return out
}

// Statuses returns the status values emitted for agent id, in order.
func (r *Recorder) Statuses(id string) []core.Status {
	var out []core.Status
	for _, e := range r.ForAgent(id) {
		if e.Kind == core.EventStatus && e.Status != nil {
			out = append(out, *e.Status)
		}
	}
	return out
}

// Collect drains ch into events until it is closed.
func Collect(ch <-chan core.Event) []core.Event {
	var out []core.Event
	for e := range ch {
		out = append(out, e)
	}
	return out
}
