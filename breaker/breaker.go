// Package breaker implements per agent type circuit breakers. A breaker opens
// after a run of consecutive failures, rejects work during a cooldown and then
// admits exactly one half-open trial whose outcome closes or reopens it.
package breaker

import (
	"sync"
	"time"

	"github.com/hupe1980/agentcouncil/core"
	"github.com/hupe1980/agentcouncil/logging"
)

// State is the breaker state.
type State int

const (
	// StateClosed admits all work.
	StateClosed State = iota
	// StateOpen rejects work until the cooldown elapsed.
	StateOpen
	// StateHalfOpen admits a single trial.
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Config configures breaker behavior.
type Config struct {
	FailureThreshold int           // Consecutive failures that open the breaker (default: 3)
	Cooldown         time.Duration // Time before a half-open trial is allowed (default: 60s)

	// OnStateChange is invoked after every transition, outside the breaker lock.
	OnStateChange func(agentType core.AgentType, from, to State)
	// Now overrides the clock, mainly for tests.
	Now    func() time.Time
	Logger logging.Logger
}

// DefaultConfig returns the default thresholds.
func DefaultConfig() Config {
	return Config{
		FailureThreshold: 3,
		Cooldown:         60 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()

	if c.FailureThreshold <= 0 {
		c.FailureThreshold = def.FailureThreshold
	}

	if c.Cooldown <= 0 {
		c.Cooldown = def.Cooldown
	}

	if c.Now == nil {
		c.Now = time.Now
	}

	c.Logger = logging.OrNoOp(c.Logger)

	return c
}

// Snapshot is a point in time view of a breaker.
type Snapshot struct {
	AgentType           core.AgentType `json:"agent_type"`
	State               State          `json:"state"`
	ConsecutiveFailures int            `json:"consecutive_failures"`
	OpenedAt            time.Time      `json:"opened_at,omitempty"`
}

// Breaker guards one agent type. All transitions happen under a single mutex.
type Breaker struct {
	agentType core.AgentType
	config    Config

	mu            sync.Mutex
	state         State
	failures      int
	openedAt      time.Time
	trialInFlight bool
}

// New creates a closed breaker for agentType.
func New(agentType core.AgentType, config Config) *Breaker {
	return &Breaker{agentType: agentType, config: config.withDefaults()}
}

type transition struct {
	from, to State
}

// Allow reports whether a run may start. It returns a *core.CircuitOpenError
// while open, and while a half-open trial is in flight. The first caller after
// the cooldown becomes the trial.
func (b *Breaker) Allow() error {
	b.mu.Lock()

	var changed *transition

	switch b.state {
	case StateClosed:
		b.mu.Unlock()
		return nil
	case StateOpen:
		elapsed := b.config.Now().Sub(b.openedAt)
		if elapsed < b.config.Cooldown {
			b.mu.Unlock()
			return &core.CircuitOpenError{AgentType: b.agentType, RetryAfter: b.config.Cooldown - elapsed}
		}

		changed = b.setState(StateHalfOpen)
		b.trialInFlight = true
	case StateHalfOpen:
		if b.trialInFlight {
			b.mu.Unlock()
			return &core.CircuitOpenError{AgentType: b.agentType}
		}

		b.trialInFlight = true
	}

	b.mu.Unlock()
	b.notify(changed)

	return nil
}

// RecordSuccess resets the failure counter and closes the breaker.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()

	b.failures = 0
	b.trialInFlight = false

	var changed *transition
	if b.state != StateClosed {
		changed = b.setState(StateClosed)
	}

	b.mu.Unlock()
	b.notify(changed)
}

// RecordFailure counts a failure. A closed breaker opens once the threshold
// is reached; a failed half-open trial reopens it with a fresh timestamp.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()

	b.failures++

	var changed *transition

	switch b.state {
	case StateClosed:
		if b.failures >= b.config.FailureThreshold {
			b.openedAt = b.config.Now()
			changed = b.setState(StateOpen)
		}
	case StateHalfOpen:
		b.trialInFlight = false
		b.openedAt = b.config.Now()
		changed = b.setState(StateOpen)
	case StateOpen:
		// a run admitted before the breaker opened finished late
	}

	b.mu.Unlock()
	b.notify(changed)
}

// Release abandons an admitted run without an outcome, e.g. when the caller
// went away. A half-open breaker admits a new trial afterwards.
func (b *Breaker) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateHalfOpen {
		b.trialInFlight = false
	}
}

// CanExecute reports whether Allow would currently admit a run without
// consuming the half-open trial.
func (b *Breaker) CanExecute() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return true
	case StateOpen:
		return b.config.Now().Sub(b.openedAt) >= b.config.Cooldown
	default:
		return !b.trialInFlight
	}
}

// Snapshot returns the current state.
func (b *Breaker) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	return Snapshot{
		AgentType:           b.agentType,
		State:               b.state,
		ConsecutiveFailures: b.failures,
		OpenedAt:            b.openedAt,
	}
}

// Reset forces the breaker closed.
func (b *Breaker) Reset() {
	b.mu.Lock()

	b.failures = 0
	b.trialInFlight = false
	b.openedAt = time.Time{}

	var changed *transition
	if b.state != StateClosed {
		changed = b.setState(StateClosed)
	}

	b.mu.Unlock()
	b.notify(changed)
}

// setState must be called with b.mu held.
func (b *Breaker) setState(to State) *transition {
	t := &transition{from: b.state, to: to}
	b.state = to

	return t
}

func (b *Breaker) notify(t *transition) {
	if t == nil {
		return
	}

	b.config.Logger.Info("breaker.state.changed", "agent_type", b.agentType.String(), "from", t.from.String(), "to", t.to.String())

	if b.config.OnStateChange != nil {
		b.config.OnStateChange(b.agentType, t.from, t.to)
	}
}
