package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"repository-sync/internal/app"
	custom_errors "repository-sync/internal/errors"
	"repository-sync/internal/syncer"
)

func newValidateCmd(c *cli) *cobra.Command {
	var owner int64
	cmd := &cobra.Command{
		Use:   "validate --owner ID URL...",
		Short: "Validate repository URLs for a user",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if owner <= 0 {
				return errors.New("--owner must be a positive user id")
			}
			ctx := cmd.Context()
			a, err := c.open(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			msg, err := a.Syncer.ValidateRepositoryURLs(ctx, args, owner)
			if err != nil {
				return err
			}
			if msg != "" {
				return errors.New(msg)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "All repository URLs are valid.")
			return nil
		},
	}
	cmd.Flags().Int64Var(&owner, "owner", 0, "id of the user declaring the URLs")
	return cmd
}

func newHelpTextCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "help-text",
		Short: "Print examples of the URLs the enabled connectors accept",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			connectors, err := app.Connectors(c.cfg, c.logger)
			if err != nil {
				return err
			}
			s := syncer.New(nil, connectors, nil, c.logger)
			fmt.Fprintln(cmd.OutOrStdout(), s.ValidatorHelpText())
			return nil
		},
	}
}

func newMigrateCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Migrate(c.cfg); err != nil {
				return fmt.Errorf("failed to run database migrations: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Database migrations applied.")
			return nil
		},
	}
}

func newPurgeCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "purge",
		Short: "Delete every stored repository record",
		Long:  "Purge deletes every stored repository record. It refuses while any user still declares repository URLs.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := c.open(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			n, err := a.Syncer.PurgeRecords(ctx)
			if errors.Is(err, custom_errors.ErrURLsStillDeclared) {
				fmt.Fprintln(cmd.OutOrStdout(), "To remove repository records, delete all declared repository URLs from users first.")
				return err
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d repository records.\n", n)
			return nil
		},
	}
}
