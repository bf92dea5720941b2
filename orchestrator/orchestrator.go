package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/hupe1980/agentcouncil/agent"
	"github.com/hupe1980/agentcouncil/audit"
	"github.com/hupe1980/agentcouncil/breaker"
	"github.com/hupe1980/agentcouncil/core"
	"github.com/hupe1980/agentcouncil/internal/tracing"
	"github.com/hupe1980/agentcouncil/logging"
	"github.com/hupe1980/agentcouncil/metrics"
	"github.com/hupe1980/agentcouncil/model"
	"github.com/hupe1980/agentcouncil/question"
	"github.com/hupe1980/agentcouncil/tool"
)

const (
	// DefaultEventBufferSize is the capacity of the events channel.
	DefaultEventBufferSize = 256
	// DefaultTurnTimeout bounds one Process call.
	DefaultTurnTimeout = 5 * time.Minute
	// DefaultDrainGrace bounds the wait for buffer space when the closing
	// events of an expired turn are emitted.
	DefaultDrainGrace = 2 * time.Second
)

// Options configures an Orchestrator. Unset collaborators get the same
// defaults agents use.
type Options struct {
	Pool      *model.Pool
	Tools     *tool.Registry
	Breakers  *breaker.Registry
	Factory   *agent.Factory
	Admission core.Admission
	Audit     audit.Logger
	Metrics   *metrics.Metrics
	Usage     *metrics.UsageTracker
	Logger    logging.Logger

	Classifier Classifier

	EventBufferSize int
	TurnTimeout     time.Duration
	QuestionTimeout time.Duration
	DrainGrace      time.Duration
	MaxToolCalls    int
}

// Orchestrator coordinates the agents of one conversation. Process calls are
// serialised; all other methods may be called concurrently.
type Orchestrator struct {
	opts   Options
	logger logging.Logger
	broker *question.Broker

	events chan core.Event
	done   chan struct{}

	emitMu       sync.RWMutex
	eventsClosed bool

	turnMu sync.Mutex
	turns  sync.WaitGroup

	mu         sync.Mutex
	octx       core.OrchestratorContext
	closed     bool
	cancelTurn context.CancelFunc
}

// New creates the orchestrator of the conversation described by octx.
func New(octx core.OrchestratorContext, optFns ...func(o *Options)) *Orchestrator {
	opts := Options{
		EventBufferSize: DefaultEventBufferSize,
		TurnTimeout:     DefaultTurnTimeout,
		QuestionTimeout: question.DefaultTimeout,
		DrainGrace:      DefaultDrainGrace,
		Classifier:      Classify,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.EventBufferSize <= 0 {
		opts.EventBufferSize = DefaultEventBufferSize
	}

	if opts.TurnTimeout <= 0 {
		opts.TurnTimeout = DefaultTurnTimeout
	}

	if opts.DrainGrace <= 0 {
		opts.DrainGrace = DefaultDrainGrace
	}

	if opts.Classifier == nil {
		opts.Classifier = Classify
	}

	if opts.Factory == nil {
		opts.Factory = agent.NewFactory()
	}

	if opts.Admission == nil {
		opts.Admission = core.AllowAll{}
	}

	if opts.Audit == nil {
		opts.Audit = audit.Discard{}
	}

	opts.Logger = logging.OrNoOp(opts.Logger)

	o := &Orchestrator{
		opts:   opts,
		logger: logging.With(opts.Logger, "chat_id", octx.ChatID),
		events: make(chan core.Event, opts.EventBufferSize),
		done:   make(chan struct{}),
		octx:   octx,
	}

	o.broker = question.NewBroker(func(bo *question.Options) {
		bo.Timeout = opts.QuestionTimeout
		bo.Logger = o.logger
		bo.Publish = func(ctx context.Context, q question.Question) {
			o.emit(ctx, core.NewQuestionEvent(q.Asker, core.QuestionPayload{
				ID:          q.ID,
				Text:        q.Text,
				Options:     q.Options,
				AllowCustom: q.AllowCustom,
			}))
		}
		bo.OnPending = opts.Metrics.SetPendingQuestions
	})

	return o
}

// Events returns the stream of agent and turn events. It is closed by Close.
func (o *Orchestrator) Events() <-chan core.Event { return o.events }

// Context returns a snapshot of the conversation context.
func (o *Orchestrator) Context() core.OrchestratorContext {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.octx
}

// UpdateSystemProfile merges the non-empty fields of partial into the
// conversation's system profile.
func (o *Orchestrator) UpdateSystemProfile(partial core.SystemProfile) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.octx.SystemProfile = o.octx.SystemProfile.Merge(partial)
}

// ResolveUserAnswer routes a user answer to the agent waiting on question id.
// It reports false for unknown or already answered questions.
func (o *Orchestrator) ResolveUserAnswer(id, answer string) bool {
	ok := o.broker.Resolve(id, answer)
	if !ok {
		o.logger.Debug("orchestrator.answer.unknown", "question_id", id)
	}

	return ok
}

// PendingQuestions lists the ids of unanswered questions.
func (o *Orchestrator) PendingQuestions() []string { return o.broker.Pending() }

// Close cancels the running turn and pending questions, waits for the turn
// to exit and closes the events channel. It is idempotent.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}

	o.closed = true
	if o.cancelTurn != nil {
		o.cancelTurn()
	}
	o.mu.Unlock()

	close(o.done)
	o.broker.Close()
	o.turns.Wait()

	o.emitMu.Lock()
	o.eventsClosed = true
	close(o.events)
	o.emitMu.Unlock()

	o.logger.Info("orchestrator.closed")
}

// emit blocks while the buffer is full until the orchestrator closes or ctx
// is done; the event is dropped in both cases. Free buffer space is always
// used, even after ctx is done.
func (o *Orchestrator) emit(ctx context.Context, e core.Event) {
	o.emitMu.RLock()
	defer o.emitMu.RUnlock()

	if o.eventsClosed {
		return
	}

	select {
	case o.events <- e:
		return
	default:
	}

	select {
	case o.events <- e:
	case <-o.done:
		o.logger.Debug("orchestrator.event.dropped", "kind", string(e.Kind))
	case <-ctx.Done():
		o.logger.Warn("orchestrator.event.dropped", "kind", string(e.Kind), "error", ctx.Err().Error())
	}
}

// Process answers one user query. Stage failures degrade to fallback
// outputs; a turn that cannot run (quota, timeout, cancellation) emits one
// generic error event. Every started turn ends with exactly one message-done
// event.
func (o *Orchestrator) Process(ctx context.Context, query string) error {
	o.turnMu.Lock()
	defer o.turnMu.Unlock()

	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return core.ErrOrchestratorClosed
	}

	ctx, cancel := context.WithTimeout(ctx, o.opts.TurnTimeout)
	o.cancelTurn = cancel
	o.turns.Add(1)
	octx := o.octx
	o.mu.Unlock()

	defer func() {
		cancel()

		o.mu.Lock()
		o.cancelTurn = nil
		o.mu.Unlock()

		o.turns.Done()
	}()

	t := &turn{o: o, octx: octx, query: query, start: time.Now()}

	return t.run(ctx)
}

// env builds the agent collaborators for one turn. Agent events are bounded
// by the turn context.
func (o *Orchestrator) env(ctx context.Context, octx core.OrchestratorContext, onRunEnd func(core.RunMetrics)) *agent.Env {
	return &agent.Env{
		Pool:            o.opts.Pool,
		Tools:           o.opts.Tools,
		Breakers:        o.opts.Breakers,
		Emit:            func(e core.Event) { o.emit(ctx, e) },
		Asker:           o.broker,
		Audit:           o.opts.Audit,
		Admission:       o.opts.Admission,
		Identity:        octx.Identity(),
		ChatID:          octx.ChatID,
		Metrics:         o.opts.Metrics,
		Usage:           o.opts.Usage,
		Logger:          o.logger,
		Factory:         o.opts.Factory,
		OnRunEnd:        onRunEnd,
		QuestionTimeout: o.opts.QuestionTimeout,
		MaxToolCalls:    o.opts.MaxToolCalls,
	}
}

// turn is the state of one Process call.
type turn struct {
	o     *Orchestrator
	octx  core.OrchestratorContext
	query string
	start time.Time

	mu       sync.Mutex
	metrics  core.TurnMetrics
	finished bool
}

func (t *turn) addRun(m core.RunMetrics) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.metrics.AddRun(m)
}

func (t *turn) run(ctx context.Context) (err error) {
	o := t.o
	identity := t.octx.Identity()

	ctx, span := tracing.Start(ctx, tracing.SpanOrchestrator, attribute.String(tracing.AttrChatID, t.octx.ChatID))

	intent := "rejected"

	var prior []agent.Output

	defer func() {
		tracing.End(span, err)
		o.opts.Metrics.IncTurn(intent, err)
		o.audit(ctx, t.octx.ChatID, identity, outcome(err), intent)
	}()

	defer func() {
		if p := recover(); p != nil {
			o.logger.Error("orchestrator.turn.panic", "intent", intent, "panic", fmt.Sprint(p))
			t.abort(ctx, prior)

			err = fmt.Errorf("turn panicked: %v", p)
		}
	}()

	if err := o.opts.Admission.AllowRequest(ctx, identity); err != nil {
		o.logger.Warn("orchestrator.turn.rejected", "user_id", identity.UserID, "error", err.Error())
		o.emit(ctx, core.NewErrorEvent(core.AgentInfo{}, core.ErrorCodeQuota, "Request limit reached, please try again shortly."))
		t.finish(ctx, nil)

		return err
	}

	cls := o.opts.Classifier(t.query, t.octx.SystemProfile)
	intent = string(cls.Intent)
	span.SetAttributes(attribute.String(tracing.AttrIntent, intent))

	o.logger.Info("orchestrator.turn.start",
		"intent", intent,
		"complexity", string(cls.Complexity),
		"stages", len(cls.Pipeline),
	)

	env := o.env(ctx, t.octx, t.addRun)

	for _, stage := range cls.Pipeline {
		if ctx.Err() != nil {
			break
		}

		out := t.runStage(ctx, env, stage, prior)
		prior = append(prior, out)

		if co, ok := out.(*agent.CuriousOutput); ok && !co.Profile.IsEmpty() {
			o.UpdateSystemProfile(co.Profile)
			t.octx.SystemProfile = t.octx.SystemProfile.Merge(co.Profile)
		}
	}

	if err := ctx.Err(); err != nil {
		o.logger.Warn("orchestrator.turn.aborted", "intent", intent, "error", err.Error())
		t.abort(ctx, prior)

		return fmt.Errorf("turn aborted: %w", err)
	}

	t.finish(ctx, prior)

	o.logger.Info("orchestrator.turn.done", "intent", intent, "duration_ms", time.Since(t.start).Milliseconds())

	return nil
}

// abort emits the generic turn error and, unless already sent, the
// message-done event. An expired turn context is replaced by one bounded by
// the drain grace so a stalled reader cannot hold the turn open.
func (t *turn) abort(ctx context.Context, prior []agent.Output) {
	if ctx.Err() != nil {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(context.WithoutCancel(ctx), t.o.opts.DrainGrace)
		defer cancel()
	}

	t.o.emit(ctx, core.NewErrorEvent(core.AgentInfo{}, core.ErrorCodeTurn, "The request could not be completed."))

	if t.finished {
		return
	}

	defer func() {
		if p := recover(); p != nil {
			t.o.logger.Error("orchestrator.finish.panic", "panic", fmt.Sprint(p))
			t.emitDone(ctx, core.DonePayload{Citations: []core.Citation{}})
		}
	}()

	t.finish(ctx, prior)
}

// runStage executes one pipeline stage. Failures never abort the turn; they
// yield a fallback output.
func (t *turn) runStage(ctx context.Context, env *agent.Env, stage Stage, prior []agent.Output) agent.Output {
	o := t.o

	release, err := o.opts.Admission.AcquireAgent(ctx, env.Identity)
	if err != nil {
		o.logger.Warn("orchestrator.stage.rejected", "agent_type", stage.Type.String(), "error", err.Error())
		return t.fallback(ctx, stage, prior, err)
	}
	defer release()

	a, err := env.Factory.New(core.NewAgentTask(stage.Type, stage.Label, stage.Description), env)
	if err != nil {
		return t.fallback(ctx, stage, prior, err)
	}

	out, err := agent.Execute(ctx, a, agent.Input{
		Query:   t.query,
		Data:    stage.Data,
		Prior:   prior,
		Profile: t.octx.SystemProfile,
		History: t.octx.MessageHistory,
	})
	if err != nil {
		o.logger.Warn("orchestrator.stage.failed", "agent_type", stage.Type.String(), "error", err.Error())
		return t.fallback(ctx, stage, prior, err)
	}

	return out
}

func (t *turn) fallback(ctx context.Context, stage Stage, prior []agent.Output, err error) agent.Output {
	out := fallbackOutput(stage, prior, err)

	// the user still needs an answer when the writer failed
	if so, ok := out.(*agent.SynthesisOutput); ok {
		t.o.emit(ctx, core.NewChunkEvent(core.AgentInfo{}, so.Answer))
	}

	return out
}

// finish emits the single message-done event of the turn.
func (t *turn) finish(ctx context.Context, prior []agent.Output) {
	var (
		citations []core.Citation
		commands  []core.Command
	)

	for _, out := range prior {
		switch v := out.(type) {
		case *agent.ResearchOutput:
			citations = core.MergeCitations(citations, v.Citations)
		case *agent.PlanOutput:
			commands = core.MergeCommands(commands, v.Commands)
		case *agent.ValidationOutput:
			commands = core.MergeCommands(commands, v.Commands)
		}
	}

	t.mu.Lock()
	m := t.metrics
	t.mu.Unlock()

	m.Duration = time.Since(t.start)

	if citations == nil {
		citations = []core.Citation{}
	}

	t.emitDone(ctx, core.DonePayload{Citations: citations, Commands: commands, Metrics: m})
}

func (t *turn) emitDone(ctx context.Context, p core.DonePayload) {
	if t.finished {
		return
	}

	t.finished = true

	if p.Metrics.Duration == 0 {
		t.mu.Lock()
		p.Metrics = t.metrics
		t.mu.Unlock()

		p.Metrics.Duration = time.Since(t.start)
	}

	t.o.emit(ctx, core.NewDoneEvent(p))
}

func (o *Orchestrator) audit(ctx context.Context, chatID string, identity core.Identity, status, detail string) {
	err := o.opts.Audit.Log(context.WithoutCancel(ctx), audit.Record{
		Timestamp: time.Now().UTC(),
		ChatID:    chatID,
		UserID:    identity.UserID,
		Action:    audit.ActionTurn,
		Status:    status,
		Detail:    detail,
	})
	if err != nil {
		o.logger.Warn("orchestrator.audit.failed", "error", err.Error())
	}
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, core.ErrQuotaExceeded):
		return "quota_exceeded"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "cancelled"
	default:
		return "error"
	}
}
