package agent

import (
	"context"
	"time"

	"github.com/hupe1980/agentcouncil/audit"
	"github.com/hupe1980/agentcouncil/breaker"
	"github.com/hupe1980/agentcouncil/core"
	"github.com/hupe1980/agentcouncil/logging"
	"github.com/hupe1980/agentcouncil/metrics"
	"github.com/hupe1980/agentcouncil/model"
	"github.com/hupe1980/agentcouncil/question"
	"github.com/hupe1980/agentcouncil/tool"
)

// DefaultMaxToolCalls bounds the model requests of one tool loop.
const DefaultMaxToolCalls = 5

// Asker blocks until the user answers a question. *question.Broker
// implements it.
type Asker interface {
	Ask(ctx context.Context, q question.Question, timeout time.Duration) (string, error)
}

// Env holds the collaborators shared by every agent of a conversation.
type Env struct {
	Pool      *model.Pool
	Selector  *model.Selector // Defaults to Pool.Selector()
	Tools     *tool.Registry
	Breakers  *breaker.Registry
	Emit      func(core.Event)
	Asker     Asker
	Audit     audit.Logger
	Admission core.Admission
	Identity  core.Identity
	ChatID    string
	Metrics   *metrics.Metrics
	Usage     *metrics.UsageTracker
	Logger    logging.Logger
	Factory   *Factory
	// OnRunEnd receives the metrics of every finished run, sub-agents included.
	OnRunEnd func(core.RunMetrics)

	QuestionTimeout time.Duration
	MaxToolCalls    int
}

// normalized returns a copy of e with defaults for unset collaborators.
func (e *Env) normalized() *Env {
	out := Env{}
	if e != nil {
		out = *e
	}

	if out.Selector == nil && out.Pool != nil {
		out.Selector = out.Pool.Selector()
	}

	if out.Selector == nil {
		out.Selector = model.NewSelector()
	}

	if out.Tools == nil {
		out.Tools = tool.NewRegistry()
	}

	if out.Breakers == nil {
		out.Breakers = breaker.Default()
	}

	if out.Emit == nil {
		out.Emit = func(core.Event) {}
	}

	if out.Audit == nil {
		out.Audit = audit.Discard{}
	}

	if out.Admission == nil {
		out.Admission = core.AllowAll{}
	}

	if out.Factory == nil {
		out.Factory = NewFactory()
	}

	if out.QuestionTimeout <= 0 {
		out.QuestionTimeout = question.DefaultTimeout
	}

	if out.MaxToolCalls <= 0 {
		out.MaxToolCalls = DefaultMaxToolCalls
	}

	out.Logger = logging.OrNoOp(out.Logger)

	return &out
}
