package core

import "github.com/google/uuid"

// AgentTask describes one spawned agent. It is created when the orchestrator
// (depth 0) or a running agent (depth+1) spawns an agent and is logically
// discarded once that agent's run resolves.
type AgentTask struct {
	ID          string    `json:"id"`
	Type        AgentType `json:"type"`
	Label       string    `json:"label"`
	Description string    `json:"description"`
	ParentID    string    `json:"parent_id,omitempty"`
	Depth       int       `json:"depth"`
}

// NewAgentTask creates a top-level task with a fresh id.
func NewAgentTask(agentType AgentType, label, description string) AgentTask {
	return AgentTask{
		ID:          NewID(),
		Type:        agentType,
		Label:       label,
		Description: description,
	}
}

// Child derives a nested task one level deeper with ParentID pointing at t.
func (t AgentTask) Child(agentType AgentType, label, description string) AgentTask {
	return AgentTask{
		ID:          NewID(),
		Type:        agentType,
		Label:       label,
		Description: description,
		ParentID:    t.ID,
		Depth:       t.Depth + 1,
	}
}

// IsTopLevel reports whether the task was spawned by the orchestrator.
func (t AgentTask) IsTopLevel() bool { return t.Depth == 0 }

// Info returns the identifying subset of the task.
func (t AgentTask) Info() AgentInfo {
	return AgentInfo{ID: t.ID, Type: t.Type, ParentID: t.ParentID, Depth: t.Depth}
}

// NewID generates a new unique identifier for tasks, events and questions.
func NewID() string { return uuid.NewString() }
