package core

import "time"

// EventKind tags the payload carried by an Event.
type EventKind string

const (
	EventSpawn        EventKind = "spawn"
	EventThinking     EventKind = "thinking"
	EventTool         EventKind = "tool"
	EventStatus       EventKind = "status"
	EventResult       EventKind = "result"
	EventQuestion     EventKind = "question"
	EventMessageChunk EventKind = "message-chunk"
	EventMessageDone  EventKind = "message-done"
	EventDiscovery    EventKind = "discovery"
	EventError        EventKind = "error"
)

// ToolStatus is the progress marker of a tool payload.
type ToolStatus string

const (
	ToolStarted   ToolStatus = "started"
	ToolCompleted ToolStatus = "completed"
	ToolFailed    ToolStatus = "failed"
)

// Error codes carried by error payloads.
const (
	ErrorCodeCircuitOpen = "circuit_open"
	ErrorCodeAgent       = "agent_error"
	ErrorCodeTurn        = "turn_error"
	ErrorCodeQuota       = "quota_exceeded"
)

// SpawnPayload announces a new agent.
type SpawnPayload struct {
	Label       string `json:"label"`
	Description string `json:"description"`
	Depth       int    `json:"depth"`
}

// ThinkingPayload carries a short progress note.
type ThinkingPayload struct {
	Text string `json:"text"`
}

// ToolPayload reports a tool invocation.
type ToolPayload struct {
	Name   string         `json:"name"`
	Input  map[string]any `json:"input,omitempty"`
	Status ToolStatus     `json:"status"`
	Output any            `json:"output,omitempty"`
	Error  string         `json:"error,omitempty"`
}

// ResultPayload carries an agent's final summary.
type ResultPayload struct {
	Summary string `json:"summary"`
}

// QuestionPayload asks the user for input; the answer is routed back through
// the orchestrator under ID.
type QuestionPayload struct {
	ID          string   `json:"id"`
	Text        string   `json:"text"`
	Options     []string `json:"options,omitempty"`
	AllowCustom bool     `json:"allow_custom"`
}

// ChunkPayload is one streamed fragment of the final answer.
type ChunkPayload struct {
	Text string `json:"text"`
}

// DonePayload closes a turn with the merged artifacts.
type DonePayload struct {
	Citations []Citation  `json:"citations"`
	Commands  []Command   `json:"commands,omitempty"`
	Metrics   TurnMetrics `json:"metrics"`
}

// DiscoveryPayload proposes probe commands that reveal the user's system.
type DiscoveryPayload struct {
	Commands []string `json:"commands"`
	Prompt   string   `json:"prompt"`
}

// ErrorPayload reports a failure.
type ErrorPayload struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Event is the unit streamed from agents through the orchestrator to the
// transport. Exactly one payload pointer matching Kind is set. After emission
// it should be treated as immutable.
type Event struct {
	ID            string    `json:"id"`
	Kind          EventKind `json:"kind"`
	AgentID       string    `json:"agent_id,omitempty"`
	AgentType     AgentType `json:"agent_type,omitempty"`
	ParentAgentID string    `json:"parent_agent_id,omitempty"`
	Timestamp     time.Time `json:"timestamp"`

	Spawn     *SpawnPayload     `json:"spawn,omitempty"`
	Thinking  *ThinkingPayload  `json:"thinking,omitempty"`
	Tool      *ToolPayload      `json:"tool,omitempty"`
	Status    *Status           `json:"status,omitempty"`
	Result    *ResultPayload    `json:"result,omitempty"`
	Question  *QuestionPayload  `json:"question,omitempty"`
	Chunk     *ChunkPayload     `json:"chunk,omitempty"`
	Done      *DonePayload      `json:"done,omitempty"`
	Discovery *DiscoveryPayload `json:"discovery,omitempty"`
	Error     *ErrorPayload     `json:"error,omitempty"`
}

// NewEvent creates a bare event of the given kind attributed to an agent.
// Prefer the kind specific constructors.
func NewEvent(kind EventKind, agent AgentInfo) Event {
	return Event{
		ID:            NewID(),
		Kind:          kind,
		AgentID:       agent.ID,
		AgentType:     agent.Type,
		ParentAgentID: agent.ParentID,
		Timestamp:     time.Now().UTC(),
	}
}

// NewSpawnEvent announces the agent behind task.
func NewSpawnEvent(task AgentTask) Event {
	e := NewEvent(EventSpawn, task.Info())
	e.Spawn = &SpawnPayload{Label: task.Label, Description: task.Description, Depth: task.Depth}
	return e
}

// NewThinkingEvent reports progress text.
func NewThinkingEvent(agent AgentInfo, text string) Event {
	e := NewEvent(EventThinking, agent)
	e.Thinking = &ThinkingPayload{Text: text}
	return e
}

// NewToolEvent reports a tool invocation step.
func NewToolEvent(agent AgentInfo, p ToolPayload) Event {
	e := NewEvent(EventTool, agent)
	e.Tool = &p
	return e
}

// NewStatusEvent reports a lifecycle transition.
func NewStatusEvent(agent AgentInfo, s Status) Event {
	e := NewEvent(EventStatus, agent)
	e.Status = &s
	return e
}

// NewResultEvent carries an agent summary.
func NewResultEvent(agent AgentInfo, summary string) Event {
	e := NewEvent(EventResult, agent)
	e.Result = &ResultPayload{Summary: summary}
	return e
}

// NewQuestionEvent asks the user a question.
func NewQuestionEvent(agent AgentInfo, q QuestionPayload) Event {
	e := NewEvent(EventQuestion, agent)
	e.Question = &q
	return e
}

// NewChunkEvent carries one streamed answer fragment.
func NewChunkEvent(agent AgentInfo, text string) Event {
	e := NewEvent(EventMessageChunk, agent)
	e.Chunk = &ChunkPayload{Text: text}
	return e
}

// NewDoneEvent closes a turn.
func NewDoneEvent(p DonePayload) Event {
	e := NewEvent(EventMessageDone, AgentInfo{})
	e.Done = &p
	return e
}

// NewDiscoveryEvent proposes system discovery commands.
func NewDiscoveryEvent(agent AgentInfo, commands []string, prompt string) Event {
	e := NewEvent(EventDiscovery, agent)
	e.Discovery = &DiscoveryPayload{Commands: commands, Prompt: prompt}
	return e
}

// NewErrorEvent reports a failure.
func NewErrorEvent(agent AgentInfo, code, message string) Event {
	e := NewEvent(EventError, agent)
	e.Error = &ErrorPayload{Message: message, Code: code}
	return e
}

// IsTerminal reports whether the event ends the stream of its agent: a
// terminal status, or a circuit-open rejection of an agent that never started.
// A failing agent emits its error event before the terminal error status.
func (e Event) IsTerminal() bool {
	switch e.Kind {
	case EventError:
		return e.AgentID != "" && e.Error != nil && e.Error.Code == ErrorCodeCircuitOpen
	case EventStatus:
		return e.Status != nil && e.Status.IsTerminal()
	default:
		return false
	}
}

// UnixSeconds returns the timestamp as fractional seconds since Unix epoch.
func (e Event) UnixSeconds() float64 { return float64(e.Timestamp.UnixNano()) / 1e9 }
