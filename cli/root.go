package cli

import (
	"fmt"

	"invoice-backend/config"
	"invoice-backend/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	EnvFile string
}

// NewRootCommand creates the root command. Running it without a subcommand serves the API.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	serve := NewServeCommand(opts)
	cmd := &cobra.Command{
		Use:           "invoiced",
		Short:         "Invoice REST backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          serve.RunE,
	}

	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", ".env", "dotenv file loaded before reading the environment")

	cmd.AddCommand(serve)
	cmd.AddCommand(NewMigrateCommand(opts))
	return cmd
}

// bootstrap loads configuration and builds the logger shared by all commands.
func bootstrap(opts *RootOptions) (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(opts.EnvFile)
	if err != nil {
		return config.Config{}, nil, err
	}
	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("build logger: %w", err)
	}
	return cfg, log, nil
}
