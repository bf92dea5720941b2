// Package question implements the pending-question registry: an agent blocks
// on Ask until the user's answer arrives through Resolve, which is driven by a
// separate, inbound code path. Every wait is bounded by a timeout.
package question

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/hupe1980/agentcouncil/core"
	"github.com/hupe1980/agentcouncil/logging"
)

// DefaultTimeout bounds a wait when neither the broker nor the caller set one.
const DefaultTimeout = 5 * time.Minute

// Question is a prompt for the user.
type Question struct {
	ID          string
	Text        string
	Options     []string
	AllowCustom bool
	Asker       core.AgentInfo
}

type result struct {
	answer string
	err    error
}

type waiter struct {
	ch chan result // buffered(1) so a resolver never blocks
}

// Options configures a Broker.
type Options struct {
	Timeout time.Duration
	// Publish is called once the question is registered, e.g. to emit the
	// question event, with the asking context. An answer may arrive before
	// Publish returns. Time spent in Publish counts against the timeout.
	Publish func(ctx context.Context, q Question)
	// OnPending receives the number of pending questions after each change.
	OnPending func(n int)
	Logger    logging.Logger
}

// Broker is a concurrency-safe map from question id to waiting agent.
type Broker struct {
	opts Options

	mu      sync.Mutex
	waiters map[string]*waiter
	closed  bool
}

// NewBroker creates a Broker.
func NewBroker(optFns ...func(o *Options)) *Broker {
	opts := Options{Timeout: DefaultTimeout}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	opts.Logger = logging.OrNoOp(opts.Logger)

	return &Broker{opts: opts, waiters: make(map[string]*waiter)}
}

// Ask registers q, publishes it and blocks until it is answered, ctx is done,
// the timeout elapses or the broker cancels it. A non-positive timeout uses
// the broker default. The registration is removed on every exit path.
func (b *Broker) Ask(ctx context.Context, q Question, timeout time.Duration) (string, error) {
	if q.ID == "" {
		q.ID = core.NewID()
	}

	if timeout <= 0 {
		timeout = b.opts.Timeout
	}

	w := &waiter{ch: make(chan result, 1)}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return "", core.ErrQuestionCancelled
	}

	if _, exists := b.waiters[q.ID]; exists {
		b.mu.Unlock()
		return "", fmt.Errorf("question %s already pending", q.ID)
	}

	b.waiters[q.ID] = w
	n := len(b.waiters)
	b.mu.Unlock()

	b.pendingChanged(n)
	defer b.remove(q.ID, w)

	b.opts.Logger.Debug("question.asked", "question_id", q.ID, "agent_id", q.Asker.ID)

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	if b.opts.Publish != nil {
		b.opts.Publish(ctx, q)
	}

	select {
	case r := <-w.ch:
		return r.answer, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	case <-timer.C:
		b.opts.Logger.Warn("question.timeout", "question_id", q.ID, "timeout", timeout.String())
		return "", fmt.Errorf("%w after %s", core.ErrQuestionTimeout, timeout)
	}
}

// Resolve delivers answer to the agent waiting on id. It reports whether a
// pending question matched; a second resolve of the same id returns false.
func (b *Broker) Resolve(id, answer string) bool {
	b.mu.Lock()
	w, ok := b.waiters[id]
	if ok {
		delete(b.waiters, id)
	}
	n := len(b.waiters)
	b.mu.Unlock()

	if !ok {
		b.opts.Logger.Debug("question.resolve.unknown", "question_id", id)
		return false
	}

	w.ch <- result{answer: answer}
	b.pendingChanged(n)

	return true
}

// CancelAll releases every waiter with core.ErrQuestionCancelled.
func (b *Broker) CancelAll() {
	b.mu.Lock()
	waiters := b.waiters
	b.waiters = make(map[string]*waiter)
	b.mu.Unlock()

	for _, w := range waiters {
		w.ch <- result{err: core.ErrQuestionCancelled}
	}

	if len(waiters) > 0 {
		b.pendingChanged(0)
	}
}

// Close cancels pending questions and rejects future ones.
func (b *Broker) Close() {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()

	b.CancelAll()
}

// Pending returns the ids of unanswered questions, sorted.
func (b *Broker) Pending() []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	ids := make([]string, 0, len(b.waiters))
	for id := range b.waiters {
		ids = append(ids, id)
	}

	sort.Strings(ids)

	return ids
}

func (b *Broker) remove(id string, w *waiter) {
	b.mu.Lock()
	current, ok := b.waiters[id]
	removed := ok && current == w
	if removed {
		delete(b.waiters, id)
	}
	n := len(b.waiters)
	b.mu.Unlock()

	if removed {
		b.pendingChanged(n)
	}
}

func (b *Broker) pendingChanged(n int) {
	if b.opts.OnPending != nil {
		b.opts.OnPending(n)
	}
}
