package main

import (
	"context"
	"errors"
	"io"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/hupe1980/agentcouncil/core"
)

var exitWords = map[string]bool{"exit": true, "quit": true, "/exit": true, "/quit": true}

func newChatCommand(ro *rootOptions) *cobra.Command {
	ao := &askOptions{}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Hold a multi turn conversation that keeps its history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return ao.chat(ctx, ro)
		},
	}

	cmd.Flags().StringVar(&ao.userID, "user", "cli", "User id for quota accounting")
	cmd.Flags().StringVar(&ao.sessionID, "session", "", "Session id (random when empty)")
	cmd.Flags().StringVar(&ao.tier, "tier", string(core.TierFree), "Quota tier (free, pro, enterprise)")
	cmd.Flags().StringVar(&ao.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")

	return cmd
}

// chat reads queries until EOF or an exit word. A failed turn is reported
// and the conversation continues.
func (ao *askOptions) chat(ctx context.Context, ro *rootOptions) error {
	env, err := ro.setup(ctx, ao.metricsAddr)
	if err != nil {
		return err
	}
	defer env.close()

	base := ao.baseContext(uuid.NewString())

	for {
		if ctx.Err() != nil {
			return nil
		}

		query, err := env.answer.Query()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		if query == "" {
			continue
		}
		if exitWords[query] {
			return nil
		}

		if _, err := env.turn(ctx, base, query); err != nil {
			env.logger.Warn("cli.turn.failed", "chat_id", base.ChatID, "error", err.Error())
		}
	}
}
