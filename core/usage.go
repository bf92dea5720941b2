package core

import "time"

// TokenUsage counts model tokens.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Add returns the sum of u and o.
func (u TokenUsage) Add(o TokenUsage) TokenUsage {
	return TokenUsage{
		PromptTokens:     u.PromptTokens + o.PromptTokens,
		CompletionTokens: u.CompletionTokens + o.CompletionTokens,
		TotalTokens:      u.TotalTokens + o.TotalTokens,
	}
}

// RunMetrics describes one agent run.
type RunMetrics struct {
	AgentID    string        `json:"agent_id"`
	AgentType  AgentType     `json:"agent_type"`
	StartedAt  time.Time     `json:"started_at"`
	EndedAt    time.Time     `json:"ended_at"`
	Duration   time.Duration `json:"duration"`
	ModelCalls int           `json:"model_calls"`
	ToolCalls  int           `json:"tool_calls"`
	Tokens     TokenUsage    `json:"tokens"`
	Failed     bool          `json:"failed,omitempty"`
}

// TurnMetrics aggregates the runs of one orchestrator turn.
type TurnMetrics struct {
	Duration time.Duration `json:"duration"`
	Agents   []RunMetrics  `json:"agents"`
	Tokens   TokenUsage    `json:"tokens"`
}

// AddRun appends m and accumulates its tokens.
func (t *TurnMetrics) AddRun(m RunMetrics) {
	t.Agents = append(t.Agents, m)
	t.Tokens = t.Tokens.Add(m.Tokens)
}
