// Package agentcouncil wires the configured collaborators (model providers,
// tools, breakers, quotas, audit and metrics) into orchestrators, one per
// conversation. Most applications:
//  1. Load a config.Config (config.Load)
//  2. Create a Council with New, passing the tool back-ends
//  3. Call Converse per turn, or NewOrchestrator and drain its Events
package agentcouncil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hupe1980/agentcouncil/agent"
	"github.com/hupe1980/agentcouncil/audit"
	"github.com/hupe1980/agentcouncil/audit/sqlite"
	"github.com/hupe1980/agentcouncil/breaker"
	"github.com/hupe1980/agentcouncil/config"
	"github.com/hupe1980/agentcouncil/core"
	"github.com/hupe1980/agentcouncil/logging"
	"github.com/hupe1980/agentcouncil/metrics"
	"github.com/hupe1980/agentcouncil/model"
	"github.com/hupe1980/agentcouncil/model/anthropic"
	"github.com/hupe1980/agentcouncil/model/openai"
	"github.com/hupe1980/agentcouncil/orchestrator"
	"github.com/hupe1980/agentcouncil/quota"
	"github.com/hupe1980/agentcouncil/session"
	"github.com/hupe1980/agentcouncil/tool"
)

// Options configures a Council.
type Options struct {
	// Config defaults to config.Default().
	Config *config.Config
	// Toolkit supplies the tool back-ends. Nil handlers leave tools unregistered.
	Toolkit tool.Toolkit
	// Tools are registered next to the toolkit tools.
	Tools []tool.Tool
	// Models bind model names directly, bypassing the configured providers.
	Models map[string]model.Model
	// Registerer receives the Prometheus collectors (the default registry when nil).
	Registerer prometheus.Registerer
	// Sessions defaults to an in-memory store.
	Sessions session.Store
	// Factory defaults to agent.NewFactory().
	Factory *agent.Factory
	// Classifier defaults to orchestrator.Classify.
	Classifier orchestrator.Classifier
	// Logger defaults to a NoOp logger.
	Logger logging.Logger
}

// Council holds the collaborators shared by every conversation.
type Council struct {
	cfg      *config.Config
	opts     Options
	logger   logging.Logger
	pool     *model.Pool
	tools    *tool.Registry
	breakers *breaker.Registry
	quota    *quota.TierLimiter
	audit    audit.Logger
	metrics  *metrics.Metrics
	usage    *metrics.UsageTracker
	sessions session.Store
	closers  []io.Closer
}

// New builds a Council from the configuration.
func New(optFns ...func(o *Options)) (*Council, error) {
	opts := Options{}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Config == nil {
		opts.Config = config.Default()
	}

	if err := opts.Config.Validate(); err != nil {
		return nil, err
	}

	if opts.Factory == nil {
		opts.Factory = agent.NewFactory()
	}

	opts.Logger = logging.OrNoOp(opts.Logger)

	if opts.Sessions == nil {
		opts.Sessions = session.NewInMemoryStore(func(o *session.Options) {
			o.MaxHistory = opts.Config.Session.MaxHistory
		})
	}

	c := &Council{
		cfg:      opts.Config,
		opts:     opts,
		logger:   opts.Logger,
		usage:    metrics.NewUsageTracker(),
		sessions: opts.Sessions,
	}

	if opts.Registerer == nil {
		c.metrics = metrics.Default()
	} else {
		c.metrics = metrics.MustNewMetrics(opts.Registerer)
	}

	c.pool = c.newPool("")

	tools, err := c.newTools()
	if err != nil {
		return nil, err
	}

	c.tools = tools

	bc := c.cfg.BreakerConfig()
	bc.Logger = c.logger
	bc.OnStateChange = func(agentType core.AgentType, _, to breaker.State) {
		c.metrics.SetBreakerState(string(agentType), int(to))
	}
	c.breakers = breaker.NewRegistry(bc)

	c.quota = quota.New(func(o *quota.Options) {
		o.Limits = c.cfg.QuotaLimits()
		o.Logger = c.logger
	})

	if err := c.openAudit(); err != nil {
		return nil, err
	}

	return c, nil
}

// newPool registers a provider for every configured model. A non-empty
// credential replaces the configured API keys.
func (c *Council) newPool(credential string) *model.Pool {
	pool := model.NewPool(c.cfg.Selector(), func(o *model.PoolOptions) {
		o.Logger = c.logger
		o.OnFallback = c.metrics.IncFallback
	})

	for _, name := range c.cfg.ModelNames() {
		if m, ok := c.opts.Models[name]; ok {
			pool.Register(name, m)
			continue
		}

		p, ok := c.cfg.Models.Providers[name]
		if !ok {
			continue
		}

		pool.Register(name, newProvider(name, p, credential))
	}

	for name, m := range c.opts.Models {
		if _, ok := pool.Get(name); !ok {
			pool.Register(name, m)
		}
	}

	return pool
}

func newProvider(name string, p config.ProviderConfig, credential string) model.Model {
	id := p.Model
	if id == "" {
		id = name
	}

	key := p.APIKey
	if credential != "" {
		key = credential
	}

	if p.Provider == config.ProviderAnthropic {
		return anthropic.NewModel(func(o *anthropic.Options) {
			o.Model = anthropicsdk.Model(id)
			o.APIKey = key
		})
	}

	return openai.NewModel(func(o *openai.Options) {
		o.Model = id
		o.APIKey = key
	})
}

func (c *Council) newTools() (*tool.Registry, error) {
	tools := append(c.opts.Toolkit.Tools(), c.opts.Tools...)

	if tc := c.cfg.ToolCache; tc.Enabled {
		tools = tool.WithCache(tools, tc.Size, tc.TTL)
	}

	reg := tool.NewRegistry(func(o *tool.RegistryOptions) {
		o.Logger = c.logger
		o.Observer = c.metrics.ObserveToolCall
	})

	for _, t := range tools {
		if err := reg.Register(t); err != nil {
			return nil, fmt.Errorf("register tool %s: %w", t.Name(), err)
		}
	}

	return reg, nil
}

func (c *Council) openAudit() error {
	ac := c.cfg.Audit

	switch ac.Backend {
	case config.AuditSQLite:
		l, err := sqlite.Open(ac.Path)
		if err != nil {
			return fmt.Errorf("open audit store: %w", err)
		}

		c.audit = l
		c.closers = append(c.closers, l)
	case config.AuditNone:
		c.audit = audit.Discard{}
	default:
		c.audit = audit.NewMemoryLogger(ac.MemoryLimit)
	}

	return nil
}

// NewOrchestrator creates the orchestrator of one conversation. A
// ModelCredential in octx gets a dedicated provider pool using that key.
func (c *Council) NewOrchestrator(octx core.OrchestratorContext) *orchestrator.Orchestrator {
	pool := c.pool
	if strings.TrimSpace(octx.ModelCredential) != "" {
		pool = c.newPool(octx.ModelCredential)
	}

	oc := c.cfg.Orchestrator

	return orchestrator.New(octx, func(o *orchestrator.Options) {
		o.Pool = pool
		o.Tools = c.tools
		o.Breakers = c.breakers
		o.Factory = c.opts.Factory
		o.Admission = c.quota
		o.Audit = c.audit
		o.Metrics = c.metrics
		o.Usage = c.usage
		o.Logger = c.logger
		o.EventBufferSize = oc.EventBufferSize
		o.TurnTimeout = oc.TurnTimeout
		o.QuestionTimeout = oc.QuestionTimeout
		o.MaxToolCalls = oc.MaxToolCalls

		if c.opts.Classifier != nil {
			o.Classifier = c.opts.Classifier
		}
	})
}

// TurnResult is the outcome of one conversation turn.
type TurnResult struct {
	// Answer is the concatenated answer stream.
	Answer string
	// Done is nil only when the turn never started.
	Done *core.DonePayload
	// Context is the conversation state saved after the turn.
	Context core.OrchestratorContext
}

// Converse runs one turn of the conversation base.ChatID. The stored context
// of the chat, if any, replaces base except for identity and credential.
// onEvent sees every event and may answer questions through the orchestrator;
// it runs on the draining goroutine.
func (c *Council) Converse(ctx context.Context, base core.OrchestratorContext, query string, onEvent func(*orchestrator.Orchestrator, core.Event)) (TurnResult, error) {
	octx := base
	if saved, ok := c.sessions.Get(base.ChatID); ok {
		octx = saved
		octx.UserID = base.UserID
		octx.SessionID = base.SessionID
		octx.Tier = base.Tier
		octx.ModelCredential = base.ModelCredential
	}

	o := c.NewOrchestrator(octx)

	var (
		res     TurnResult
		answer  strings.Builder
		drained = make(chan struct{})
	)

	go func() {
		defer close(drained)

		for e := range o.Events() {
			switch e.Kind {
			case core.EventMessageChunk:
				answer.WriteString(e.Chunk.Text)
			case core.EventMessageDone:
				res.Done = e.Done
			}

			if onEvent != nil {
				onEvent(o, e)
			}
		}
	}()

	err := o.Process(ctx, query)
	final := o.Context()

	o.Close()
	<-drained

	res.Answer = answer.String()
	res.Context = session.AppendTurn(final, query, res.Answer)

	if serr := c.sessions.Save(res.Context); serr != nil {
		c.logger.Warn("session.save.failed", "chat_id", base.ChatID, "error", serr.Error())
	}

	return res, err
}

// Config returns the effective configuration.
func (c *Council) Config() *config.Config { return c.cfg }

// Audit returns the audit log.
func (c *Council) Audit() audit.Logger { return c.audit }

// Breakers returns the per agent type circuit breakers.
func (c *Council) Breakers() *breaker.Registry { return c.breakers }

// Usage returns the per identity token accounting.
func (c *Council) Usage() *metrics.UsageTracker { return c.usage }

// Sessions returns the conversation store.
func (c *Council) Sessions() session.Store { return c.sessions }

// Tools returns the tool registry.
func (c *Council) Tools() *tool.Registry { return c.tools }

// Close releases the audit store.
func (c *Council) Close() error {
	var errs []error
	for _, cl := range c.closers {
		errs = append(errs, cl.Close())
	}

	return errors.Join(errs...)
}
