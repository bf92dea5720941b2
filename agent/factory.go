package agent

import (
	"fmt"
	"sort"
	"sync"

	"github.com/hupe1980/agentcouncil/core"
)

// Constructor builds an agent for task.
type Constructor func(task core.AgentTask, env *Env) (Agent, error)

// Factory maps agent types to constructors. It is safe for concurrent use.
type Factory struct {
	mu    sync.RWMutex
	ctors map[core.AgentType]Constructor
}

// NewFactory creates a factory with constructors for every built-in type.
// The custom type is registered with a general purpose instruction and no
// tools; use Register to replace it.
func NewFactory() *Factory {
	f := &Factory{ctors: make(map[core.AgentType]Constructor)}

	f.ctors[core.AgentTypeResearch] = func(task core.AgentTask, env *Env) (Agent, error) {
		return NewResearchAgent(task, env), nil
	}
	f.ctors[core.AgentTypePlanner] = func(task core.AgentTask, env *Env) (Agent, error) {
		return NewPlannerAgent(task, env), nil
	}
	f.ctors[core.AgentTypeValidator] = func(task core.AgentTask, env *Env) (Agent, error) {
		return NewValidatorAgent(task, env), nil
	}
	f.ctors[core.AgentTypeSynthesizer] = func(task core.AgentTask, env *Env) (Agent, error) {
		return NewSynthesizerAgent(task, env), nil
	}
	f.ctors[core.AgentTypeCurious] = func(task core.AgentTask, env *Env) (Agent, error) {
		return NewCuriousAgent(task, env), nil
	}
	f.ctors[core.AgentTypeCustom] = func(task core.AgentTask, env *Env) (Agent, error) {
		return NewCustomAgent(task, env), nil
	}

	return f
}

// Register binds agentType to ctor, replacing any previous constructor.
func (f *Factory) Register(agentType core.AgentType, ctor Constructor) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.ctors[agentType] = ctor
}

// Types returns the registered agent types, sorted.
func (f *Factory) Types() []core.AgentType {
	f.mu.RLock()
	defer f.mu.RUnlock()

	types := make([]core.AgentType, 0, len(f.ctors))
	for t := range f.ctors {
		types = append(types, t)
	}

	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })

	return types
}

// New builds the agent for task. The env passed to the constructor has its
// defaults applied and references this factory.
func (f *Factory) New(task core.AgentTask, env *Env) (Agent, error) {
	f.mu.RLock()
	ctor, ok := f.ctors[task.Type]
	f.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("no constructor for agent type %q", task.Type)
	}

	env = env.normalized()
	env.Factory = f

	return ctor(task, env)
}
