package core

// AgentType categorizes the concrete agent implementation behind a task. The
// circuit breaker, metrics and the agent factory are keyed by it.
type AgentType string

const (
	AgentTypeResearch    AgentType = "research"
	AgentTypePlanner     AgentType = "planner"
	AgentTypeValidator   AgentType = "validator"
	AgentTypeSynthesizer AgentType = "synthesizer"
	AgentTypeCurious     AgentType = "curious"
	AgentTypeCustom      AgentType = "custom"
)

// String implements fmt.Stringer.
func (t AgentType) String() string { return string(t) }

// AgentInfo carries identifying details about an agent used in events and logs.
type AgentInfo struct {
	ID       string    `json:"id"`
	Type     AgentType `json:"type"`
	ParentID string    `json:"parent_id,omitempty"`
	Depth    int       `json:"depth"`
}
