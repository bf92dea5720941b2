package core

// ToolCallResult is the outcome of one tool call. A failed call carries Error
// and never crosses the agent boundary as a Go error.
type ToolCallResult struct {
	ID     string         `json:"id"`
	Name   string         `json:"name"`
	Input  map[string]any `json:"input,omitempty"`
	Result any            `json:"result,omitempty"`
	Error  string         `json:"error,omitempty"`
}

// Failed reports whether the call produced an error.
func (r ToolCallResult) Failed() bool { return r.Error != "" }
