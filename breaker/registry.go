package breaker

import (
	"sort"
	"sync"

	"github.com/hupe1980/agentcouncil/core"
)

// Registry holds one breaker per agent type. Breakers are shared by every
// conversation of the process.
type Registry struct {
	config   Config
	mu       sync.RWMutex
	breakers map[core.AgentType]*Breaker
}

// NewRegistry creates a registry whose breakers use config.
func NewRegistry(config Config) *Registry {
	return &Registry{config: config, breakers: make(map[core.AgentType]*Breaker)}
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// Default returns the process-wide registry with DefaultConfig.
func Default() *Registry {
	defaultOnce.Do(func() { defaultRegistry = NewRegistry(DefaultConfig()) })
	return defaultRegistry
}

// Get returns the breaker for agentType, creating it on first use.
func (r *Registry) Get(agentType core.AgentType) *Breaker {
	r.mu.RLock()
	if b, ok := r.breakers[agentType]; ok {
		r.mu.RUnlock()
		return b
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()

	// Double-check after acquiring write lock
	if b, ok := r.breakers[agentType]; ok {
		return b
	}

	b := New(agentType, r.config)
	r.breakers[agentType] = b

	return b
}

// Snapshots returns the state of every breaker, sorted by agent type.
func (r *Registry) Snapshots() []Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Snapshot, 0, len(r.breakers))
	for _, b := range r.breakers {
		out = append(out, b.Snapshot())
	}

	sort.Slice(out, func(i, j int) bool { return out[i].AgentType < out[j].AgentType })

	return out
}

// ResetAll closes every breaker.
func (r *Registry) ResetAll() {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, b := range r.breakers {
		b.Reset()
	}
}
