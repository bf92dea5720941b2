package main

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/hupe1980/agentcouncil"
	"github.com/hupe1980/agentcouncil/config"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

type rootOptions struct {
	configPath string
	logLevel   string
	noColor    bool

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	// councilOpts are applied after the defaults; tests inject models here.
	councilOpts []func(o *agentcouncil.Options)
}

func newRootCommand(ro *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "agentcouncil",
		Short:         "Answer questions with a council of research, planning and validation agents",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.SetIn(ro.stdin)
	cmd.SetOut(ro.stdout)
	cmd.SetErr(ro.stderr)

	cmd.PersistentFlags().StringVarP(&ro.configPath, "config", "c", "", "Path to a YAML config file")
	cmd.PersistentFlags().StringVar(&ro.logLevel, "log-level", "", "Log level override (debug, info, warn, error)")
	cmd.PersistentFlags().BoolVar(&ro.noColor, "no-color", false, "Disable colored output")

	cmd.AddCommand(newAskCommand(ro), newChatCommand(ro), newConfigCommand(ro))

	return cmd
}

// loadConfig applies flag overrides on top of the file and environment.
func (ro *rootOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(ro.configPath)
	if err != nil {
		return nil, err
	}

	if ro.logLevel != "" {
		cfg.Logging.Level = ro.logLevel

		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

func newConfigCommand(ro *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration with secrets redacted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ro.loadConfig()
			if err != nil {
				return err
			}

			return cfg.Dump(cmd.OutOrStdout())
		},
	})

	return cmd
}
