package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
	}{
		{"debug", LogLevelDebug},
		{"INFO", LogLevelInfo},
		{"warning", LogLevelWarn},
		{" error ", LogLevelError},
		{"bogus", LogLevelInfo},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLevel(tt.in), tt.in)
	}
}

func TestNew_JSONOutputWithComponent(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: LogLevelDebug, Format: "json", Output: &buf, Component: "orchestrator"})

	l.Info("orchestrator.turn.start", "chat_id", "c-1")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "orchestrator.turn.start", entry["msg"])
	assert.Equal(t, "orchestrator", entry["component"])
	assert.Equal(t, "c-1", entry["chat_id"])
}

func TestNew_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: LogLevelWarn, Format: "text", Output: &buf})

	l.Info("dropped")
	assert.Empty(t, buf.String())

	l.Warn("kept")
	assert.Contains(t, buf.String(), "kept")
}

func TestWith_PrefixesNonSlogLoggers(t *testing.T) {
	rec := &recorder{}
	l := With(rec, "agent_id", "a-1")
	l.Info("agent.run.start", "depth", 0)

	require.Len(t, rec.args, 1)
	assert.Equal(t, []any{"agent_id", "a-1", "depth", 0}, rec.args[0])
}

func TestLogToolCall(t *testing.T) {
	rec := &recorder{}
	LogToolCall(rec, "web_search", 10*time.Millisecond, nil)
	LogToolCall(rec, "web_search", 10*time.Millisecond, errors.New("boom"))

	assert.Equal(t, []string{"tool.call.completed", "tool.call.failed"}, rec.msgs)
}

func TestOrNoOp(t *testing.T) {
	assert.IsType(t, NoOpLogger{}, OrNoOp(nil))
}

type recorder struct {
	msgs []string
	args [][]any
}

func (r *recorder) record(msg string, args []any) {
	r.msgs = append(r.msgs, msg)
	r.args = append(r.args, args)
}

func (r *recorder) Debug(msg string, args ...any) { r.record(msg, args) }
func (r *recorder) Info(msg string, args ...any)  { r.record(msg, args) }
func (r *recorder) Warn(msg string, args ...any)  { r.record(msg, args) }
func (r *recorder) Error(msg string, args ...any) { r.record(msg, args) }
