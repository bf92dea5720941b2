package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/hupe1980/agentcouncil"
	"github.com/hupe1980/agentcouncil/config"
	"github.com/hupe1980/agentcouncil/core"
	"github.com/hupe1980/agentcouncil/internal/tracing"
	"github.com/hupe1980/agentcouncil/logging"
	"github.com/hupe1980/agentcouncil/orchestrator"
	"github.com/hupe1980/agentcouncil/tool/builtin"
)

type askOptions struct {
	userID      string
	sessionID   string
	tier        string
	metricsAddr string
}

func newAskCommand(ro *rootOptions) *cobra.Command {
	ao := &askOptions{}

	cmd := &cobra.Command{
		Use:   "ask <query>",
		Short: "Run one turn and stream the agents' progress",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return ao.run(ctx, ro, strings.Join(args, " "))
		},
	}

	cmd.Flags().StringVar(&ao.userID, "user", "cli", "User id for quota accounting")
	cmd.Flags().StringVar(&ao.sessionID, "session", "", "Session id (random when empty)")
	cmd.Flags().StringVar(&ao.tier, "tier", string(core.TierFree), "Quota tier (free, pro, enterprise)")
	cmd.Flags().StringVar(&ao.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")

	return cmd
}

func (ao *askOptions) run(ctx context.Context, ro *rootOptions, query string) error {
	env, err := ro.setup(ctx, ao.metricsAddr)
	if err != nil {
		return err
	}
	defer env.close()

	_, err = env.turn(ctx, ao.baseContext(uuid.NewString()), query)

	return err
}

func (ao *askOptions) baseContext(chatID string) core.OrchestratorContext {
	sessionID := ao.sessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	return core.OrchestratorContext{
		ChatID:    chatID,
		UserID:    ao.userID,
		SessionID: sessionID,
		Tier:      core.Tier(ao.tier),
	}
}

// cliEnv is the per invocation runtime shared by ask and chat.
type cliEnv struct {
	council *agentcouncil.Council
	logger  logging.Logger
	printer *printer
	answer  answerer
	closers []func()
}

func (ro *rootOptions) setup(ctx context.Context, metricsAddr string) (*cliEnv, error) {
	cfg, err := ro.loadConfig()
	if err != nil {
		return nil, err
	}

	env := &cliEnv{
		logger:  cfg.Logger(ro.stderr),
		printer: newPrinter(ro.stdout, ro.noColor),
		answer:  newAnswerer(ro.stdin, ro.stdout),
	}

	shutdownTracing, err := tracing.Setup(ctx, cfg.TracingSetup())
	if err != nil {
		return nil, err
	}

	env.closers = append(env.closers, func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := shutdownTracing(sctx); err != nil {
			env.logger.Warn("tracing.shutdown.failed", "error", err.Error())
		}
	})

	if stop := serveMetrics(cfg, metricsAddr, env.logger); stop != nil {
		env.closers = append(env.closers, stop)
	}

	optFns := append([]func(o *agentcouncil.Options){func(o *agentcouncil.Options) {
		o.Config = cfg
		o.Logger = env.logger
		o.Toolkit = builtin.Toolkit(func(bo *builtin.Options) { bo.Logger = env.logger })
	}}, ro.councilOpts...)

	council, err := agentcouncil.New(optFns...)
	if err != nil {
		env.close()
		return nil, err
	}

	env.council = council
	env.closers = append(env.closers, func() { _ = council.Close() })

	return env, nil
}

// turn runs one query, printing events and answering questions inline.
func (env *cliEnv) turn(ctx context.Context, base core.OrchestratorContext, query string) (agentcouncil.TurnResult, error) {
	return env.council.Converse(ctx, base, query, func(o *orchestrator.Orchestrator, e core.Event) {
		env.printer.print(e)

		if e.Kind != core.EventQuestion {
			return
		}

		answer, err := env.answer.Answer(*e.Question)
		if err != nil {
			env.logger.Warn("cli.answer.failed", "question_id", e.Question.ID, "error", err.Error())
			return
		}

		if !o.ResolveUserAnswer(e.Question.ID, answer) {
			env.logger.Info("cli.answer.stale", "question_id", e.Question.ID)
		}
	})
}

func (env *cliEnv) close() {
	for i := len(env.closers) - 1; i >= 0; i-- {
		env.closers[i]()
	}
}

// serveMetrics exposes /metrics when enabled by flag or config and returns
// the shutdown func.
func serveMetrics(cfg *config.Config, flagAddr string, logger logging.Logger) func() {
	addr := flagAddr
	if addr == "" && cfg.Metrics.Enabled {
		addr = cfg.Metrics.Addr
	}

	if addr == "" {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics.server.failed", "addr", addr, "error", err.Error())
		}
	}()

	logger.Info("metrics.server.started", "addr", addr)

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		_ = srv.Shutdown(ctx)
	}
}
