package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hupe1980/agentcouncil/audit"
	"github.com/hupe1980/agentcouncil/breaker"
	"github.com/hupe1980/agentcouncil/core"
	"github.com/hupe1980/agentcouncil/logging"
	"github.com/hupe1980/agentcouncil/question"
)

// BaseAgent bundles the lifecycle shared by all agents: status machine,
// event emission, run metrics, breaker bookkeeping, questions and sub-agent
// spawning. Embed *BaseAgent in concrete agents and supply a Run method to
// satisfy Agent. All exported methods are goroutine-safe.
type BaseAgent struct {
	task   core.AgentTask
	env    *Env
	logger logging.Logger

	mu         sync.Mutex
	status     core.Status
	run        core.RunMetrics
	subSpawned int
}

// NewBaseAgent creates the lifecycle state for task.
func NewBaseAgent(task core.AgentTask, env *Env) *BaseAgent {
	env = env.normalized()

	return &BaseAgent{
		task:   task,
		env:    env,
		status: core.StatusSpawning,
		logger: logging.With(env.Logger,
			"agent_id", task.ID,
			"agent_type", task.Type.String(),
			"depth", task.Depth,
		),
	}
}

// Task returns the task this agent runs.
func (b *BaseAgent) Task() core.AgentTask { return b.task }

// Base returns b; it lets Execute reach the lifecycle of any Agent.
func (b *BaseAgent) Base() *BaseAgent { return b }

// Info returns the identifying subset of the task.
func (b *BaseAgent) Info() core.AgentInfo { return b.task.Info() }

// Env returns the shared collaborators.
func (b *BaseAgent) Env() *Env { return b.env }

// Logger returns a logger annotated with the agent's identity.
func (b *BaseAgent) Logger() logging.Logger { return b.logger }

// Status returns the current lifecycle status.
func (b *BaseAgent) Status() core.Status {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.status
}

// SetStatus moves the agent to s and emits a status event. Moving backwards
// or leaving a terminal status fails with core.ErrInvalidTransition; setting
// the current status again is a no-op.
func (b *BaseAgent) SetStatus(s core.Status) error {
	b.mu.Lock()

	if b.status == s && !s.IsTerminal() {
		b.mu.Unlock()
		return nil
	}

	if !b.status.CanTransition(s) {
		from := b.status
		b.mu.Unlock()

		return fmt.Errorf("%w: %s -> %s", core.ErrInvalidTransition, from, s)
	}

	b.status = s
	// emitted under the lock so status events keep their order
	b.env.Emit(core.NewStatusEvent(b.Info(), s))
	b.mu.Unlock()

	return nil
}

// emit forwards e unless the agent already reached a terminal status.
func (b *BaseAgent) emit(e core.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.status.IsTerminal() {
		b.logger.Debug("agent.event.dropped", "kind", string(e.Kind))
		return
	}

	b.env.Emit(e)
}

// EmitThinking reports progress text.
func (b *BaseAgent) EmitThinking(text string) {
	b.emit(core.NewThinkingEvent(b.Info(), text))
}

// EmitToolUse reports a tool invocation step.
func (b *BaseAgent) EmitToolUse(p core.ToolPayload) {
	b.emit(core.NewToolEvent(b.Info(), p))
}

// EmitResult reports the agent's summary.
func (b *BaseAgent) EmitResult(summary string) {
	b.emit(core.NewResultEvent(b.Info(), summary))
}

// EmitError reports a failure with code.
func (b *BaseAgent) EmitError(code, message string) {
	b.emit(core.NewErrorEvent(b.Info(), code, message))
}

// EmitDiscovery proposes probe commands for the user's system.
func (b *BaseAgent) EmitDiscovery(commands []string, prompt string) {
	b.emit(core.NewDiscoveryEvent(b.Info(), commands, prompt))
}

// EmitChunk streams a fragment of the final answer.
func (b *BaseAgent) EmitChunk(text string) {
	b.emit(core.NewChunkEvent(b.Info(), text))
}

// StartMetrics stamps the run start.
func (b *BaseAgent) StartMetrics() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.run = core.RunMetrics{
		AgentID:   b.task.ID,
		AgentType: b.task.Type,
		StartedAt: time.Now(),
	}
}

// EndMetrics stamps the run end and returns the run metrics.
func (b *BaseAgent) EndMetrics(failed bool) core.RunMetrics {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.run.EndedAt = time.Now()
	b.run.Duration = b.run.EndedAt.Sub(b.run.StartedAt)
	b.run.Failed = failed

	return b.run
}

// Metrics returns a snapshot of the run metrics.
func (b *BaseAgent) Metrics() core.RunMetrics {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.run
}

// RecordTokenUsage accounts one model call and its tokens on the run, the
// identity's usage and the Prometheus counters.
func (b *BaseAgent) RecordTokenUsage(modelName string, u core.TokenUsage) {
	b.mu.Lock()
	b.run.ModelCalls++
	b.run.Tokens = b.run.Tokens.Add(u)
	b.mu.Unlock()

	if b.env.Usage != nil && b.env.Identity.UserID != "" {
		b.env.Usage.Record(b.env.Identity.Key(), u)
	}

	b.env.Metrics.AddTokens(modelName, u.PromptTokens, u.CompletionTokens)
}

func (b *BaseAgent) recordToolCalls(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.run.ToolCalls += n
}

func (b *BaseAgent) breaker() *breaker.Breaker {
	return b.env.Breakers.Get(b.task.Type)
}

// CanExecute reports whether the breaker of this agent type admits runs.
func (b *BaseAgent) CanExecute() bool { return b.breaker().CanExecute() }

// RecordSuccess closes the breaker of this agent type.
func (b *BaseAgent) RecordSuccess() { b.breaker().RecordSuccess() }

// RecordFailure counts a failure on the breaker of this agent type.
func (b *BaseAgent) RecordFailure() { b.breaker().RecordFailure() }

// Ask poses a question to the user and blocks until it is answered, ctx is
// done or the configured timeout elapses. The agent waits in StatusWaiting
// and returns to its previous working status afterwards.
func (b *BaseAgent) Ask(ctx context.Context, text string, options []string, allowCustom bool) (string, error) {
	if b.env.Asker == nil {
		return "", core.ErrQuestionCancelled
	}

	prev := b.Status()
	_ = b.SetStatus(core.StatusWaiting)

	q := question.Question{
		ID:          core.NewID(),
		Text:        text,
		Options:     options,
		AllowCustom: allowCustom,
		Asker:       b.Info(),
	}

	answer, err := b.env.Asker.Ask(ctx, q, b.env.QuestionTimeout)

	b.audit(ctx, audit.ActionQuestion, outcome(err), q.ID)

	if prev.Rank() == core.StatusWaiting.Rank() {
		_ = b.SetStatus(prev)
	}

	return answer, err
}

// SpawnSubAgent runs a child task one level deeper, built by the factory and
// executed through Execute. Errors are returned to the caller, which should
// treat them as non-fatal.
func (b *BaseAgent) SpawnSubAgent(ctx context.Context, agentType core.AgentType, label, description string, in Input) (Output, error) {
	child := b.task.Child(agentType, label, description)

	release, err := b.env.Admission.AcquireAgent(ctx, b.env.Identity)
	if err != nil {
		b.logger.Warn("agent.subagent.rejected", "child_type", agentType.String(), "error", err.Error())
		return nil, err
	}
	defer release()

	a, err := b.env.Factory.New(child, b.env)
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	b.subSpawned++
	b.mu.Unlock()

	b.logger.Info("agent.subagent.spawn", "child_id", child.ID, "child_type", agentType.String())
	b.audit(ctx, audit.ActionSubAgent, "spawned", child.ID)

	return Execute(ctx, a, in)
}

// SubAgentsSpawned returns how many sub-agents this agent started.
func (b *BaseAgent) SubAgentsSpawned() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.subSpawned
}

// audit writes a record; failures are logged and swallowed.
func (b *BaseAgent) audit(ctx context.Context, action audit.Action, status, detail string) {
	err := b.env.Audit.Log(context.WithoutCancel(ctx), audit.Record{
		Timestamp: time.Now().UTC(),
		ChatID:    b.env.ChatID,
		UserID:    b.env.Identity.UserID,
		AgentID:   b.task.ID,
		AgentType: b.task.Type.String(),
		Action:    action,
		Status:    status,
		Detail:    detail,
	})
	if err != nil {
		b.logger.Warn("agent.audit.failed", "action", string(action), "error", err.Error())
	}
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, core.ErrCircuitOpen):
		return "circuit_open"
	case errors.Is(err, core.ErrQuestionTimeout):
		return "timeout"
	case errors.Is(err, context.Canceled), errors.Is(err, core.ErrQuestionCancelled):
		return "cancelled"
	default:
		return "error"
	}
}
