package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"repository-sync/internal/app"
	"repository-sync/internal/config"
)

// cli carries the state shared by every subcommand.
type cli struct {
	dryRun   bool
	logLevel string
	logger   *slog.Logger
	cfg      *config.Config
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:           "reposync",
		Short:         "Operate the repository metadata synchronizer",
		Long:          "reposync validates declared repository URLs and reconciles stored repository records with their remote sources.",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.init(cmd)
		},
	}
	root.PersistentFlags().BoolVar(&c.dryRun, "dry-run", false, "compute changes without writing them")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "log level (debug, info, warn, error); overrides LOG_LEVEL")

	root.AddCommand(
		newUpdateCmd(c),
		newValidateCmd(c),
		newHelpTextCmd(c),
		newMigrateCmd(c),
		newPurgeCmd(c),
	)
	return root
}

func (c *cli) init(cmd *cobra.Command) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if c.dryRun {
		cfg.DryRun = true
	}
	if c.logLevel != "" {
		cfg.LogLevel = c.logLevel
	}

	level := new(slog.LevelVar)
	config.SetLogLevel(cfg.LogLevel, level)
	c.logger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	c.cfg = cfg
	return nil
}

func (c *cli) open(ctx context.Context) (*app.App, error) {
	return app.New(ctx, c.cfg, c.logger)
}
