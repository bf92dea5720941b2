package core

// Status is the lifecycle state of one agent instance. Values only move
// forward: spawning -> thinking -> working states -> done | error.
type Status string

const (
	StatusSpawning     Status = "spawning"
	StatusThinking     Status = "thinking"
	StatusSearching    Status = "searching"
	StatusPlanning     Status = "planning"
	StatusValidating   Status = "validating"
	StatusSynthesizing Status = "synthesizing"
	StatusWaiting      Status = "waiting"
	StatusDone         Status = "done"
	StatusError        Status = "error"
)

// Rank orders statuses. Working states share a rank so an agent may move
// between them (e.g. searching while waiting on a user answer).
func (s Status) Rank() int {
	switch s {
	case StatusSpawning:
		return 0
	case StatusThinking:
		return 1
	case StatusSearching, StatusPlanning, StatusValidating, StatusSynthesizing, StatusWaiting:
		return 2
	case StatusDone, StatusError:
		return 3
	default:
		return -1
	}
}

// IsTerminal reports whether no further events may follow this status.
func (s Status) IsTerminal() bool { return s == StatusDone || s == StatusError }

// CanTransition reports whether moving from s to next keeps the lifecycle
// monotonic. Terminal states accept nothing.
func (s Status) CanTransition(next Status) bool {
	if s.IsTerminal() || next.Rank() < 0 {
		return false
	}
	return next.Rank() >= s.Rank()
}
