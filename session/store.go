package session

import (
	"sync"
	"time"

	"github.com/hupe1980/agentcouncil/core"
)

// DefaultMaxHistory bounds the contents kept per conversation.
const DefaultMaxHistory = 20

// Store persists conversation contexts by chat id.
type Store interface {
	Get(chatID string) (core.OrchestratorContext, bool)
	Save(octx core.OrchestratorContext) error
	Delete(chatID string)
}

// Options configures an InMemoryStore.
type Options struct {
	// MaxHistory keeps only the newest contents; zero or less keeps all.
	MaxHistory int
	Now        func() time.Time
}

type entry struct {
	octx      core.OrchestratorContext
	updatedAt time.Time
}

// InMemoryStore is a volatile Store backed by a process local map. Stored and
// returned contexts are cloned so callers never share state with the store.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]entry
	opts     Options
}

var _ Store = (*InMemoryStore)(nil)

// NewInMemoryStore creates an empty store.
func NewInMemoryStore(optFns ...func(o *Options)) *InMemoryStore {
	opts := Options{MaxHistory: DefaultMaxHistory, Now: time.Now}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &InMemoryStore{sessions: make(map[string]entry), opts: opts}
}

// Get returns a copy of the stored context.
func (s *InMemoryStore) Get(chatID string) (core.OrchestratorContext, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.sessions[chatID]
	if !ok {
		return core.OrchestratorContext{}, false
	}

	return e.octx.Clone(), true
}

// Save stores a copy of octx, trimming its history to MaxHistory.
func (s *InMemoryStore) Save(octx core.OrchestratorContext) error {
	octx = octx.Clone()

	if limit := s.opts.MaxHistory; limit > 0 && len(octx.MessageHistory) > limit {
		octx.MessageHistory = octx.MessageHistory[len(octx.MessageHistory)-limit:]
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[octx.ChatID] = entry{octx: octx, updatedAt: s.opts.Now()}

	return nil
}

// Delete forgets a conversation.
func (s *InMemoryStore) Delete(chatID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, chatID)
}

// UpdatedAt reports when chatID was last saved.
func (s *InMemoryStore) UpdatedAt(chatID string) (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.sessions[chatID]

	return e.updatedAt, ok
}

// AppendTurn returns octx with the user query and the assistant answer
// appended to its history. An empty answer records only the query.
func AppendTurn(octx core.OrchestratorContext, query, answer string) core.OrchestratorContext {
	out := octx.Clone()

	out.MessageHistory = append(out.MessageHistory, core.NewTextContent(core.RoleUser, query))
	if answer != "" {
		out.MessageHistory = append(out.MessageHistory, core.NewTextContent(core.RoleAssistant, answer))
	}

	return out
}
