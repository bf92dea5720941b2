// Package audit records agent lifecycle actions for later inspection.
// Audit failures are reported to the caller but must never fail the
// operation being audited.
package audit

import (
	"context"
	"time"
)

// Action categorizes a record.
type Action string

const (
	ActionAgentRun      Action = "agent_run"
	ActionAgentRejected Action = "agent_rejected"
	ActionToolCall      Action = "tool_call"
	ActionSubAgent      Action = "sub_agent"
	ActionQuestion      Action = "question"
	ActionTurn          Action = "turn"
)

// Record captures a single audited action.
type Record struct {
	Timestamp time.Time `json:"timestamp"`
	ChatID    string    `json:"chat_id,omitempty"`
	UserID    string    `json:"user_id,omitempty"`
	AgentID   string    `json:"agent_id,omitempty"`
	AgentType string    `json:"agent_type,omitempty"`
	Action    Action    `json:"action"`
	Status    string    `json:"status"`
	Detail    string    `json:"detail,omitempty"`
}

// Filter selects records. Zero fields match everything.
type Filter struct {
	ChatID    string
	UserID    string
	AgentID   string
	AgentType string
	Action    Action
	Status    string
	Since     time.Time
	Until     time.Time
	Limit     int
}

// Match reports whether r satisfies f.
func (f Filter) Match(r Record) bool {
	switch {
	case f.ChatID != "" && r.ChatID != f.ChatID:
		return false
	case f.UserID != "" && r.UserID != f.UserID:
		return false
	case f.AgentID != "" && r.AgentID != f.AgentID:
		return false
	case f.AgentType != "" && r.AgentType != f.AgentType:
		return false
	case f.Action != "" && r.Action != f.Action:
		return false
	case f.Status != "" && r.Status != f.Status:
		return false
	case !f.Since.IsZero() && r.Timestamp.Before(f.Since):
		return false
	case !f.Until.IsZero() && r.Timestamp.After(f.Until):
		return false
	}
	return true
}

// Logger is an audit backend.
type Logger interface {
	Log(ctx context.Context, record Record) error
	Query(ctx context.Context, filter Filter) ([]Record, error)
}

// Discard is a Logger that drops every record.
type Discard struct{}

// Log implements Logger.
func (Discard) Log(context.Context, Record) error { return nil }

// Query implements Logger.
func (Discard) Query(context.Context, Filter) ([]Record, error) { return nil, nil }
