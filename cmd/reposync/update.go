package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	custom_errors "repository-sync/internal/errors"
	"repository-sync/internal/model"
)

func newUpdateCmd(c *cli) *cobra.Command {
	var (
		owner int64
		batch bool
	)
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update repository records",
		Long: `Update reconciles stored repository records with their remote sources.

With --owner only that user is updated, synchronously. Without it every active
user with declared URLs is queued and the queue is drained, or with --batch
processed directly.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ownerSet := cmd.Flags().Changed("owner")
			if ownerSet && owner <= 0 {
				return errors.New("--owner must be a positive user id")
			}
			if ownerSet && batch {
				return errors.New("--owner and --batch cannot be combined")
			}

			ctx := cmd.Context()
			a, err := c.open(ctx)
			if err != nil {
				return err
			}
			defer a.Close()
			out := cmd.OutOrStdout()

			switch {
			case ownerSet:
				summary, err := a.Syncer.UpdateRepositoriesForUser(ctx, owner)
				if errors.Is(err, custom_errors.ErrUserNotFound) {
					return err
				}
				if err != nil {
					return fmt.Errorf("updating user %d: %w", owner, err)
				}
				printSummary(out, summary)
			case batch:
				report, err := a.Distributor.UpdateAllRepositories(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Users: %d (failed: %d)\n", report.Users, report.Failed)
				printSummary(out, report.Summary)
				if report.Failed > 0 {
					return fmt.Errorf("%d users failed to update", report.Failed)
				}
			default:
				queued, err := a.Distributor.CreateQueueItems(ctx)
				if err != nil {
					return err
				}
				processed, failed, err := a.Worker.Drain(ctx)
				if err != nil {
					return err
				}
				return reportDrain(out, queued, processed, failed)
			}
			return nil
		},
	}
	cmd.Flags().Int64Var(&owner, "owner", 0, "update only the user with this id")
	cmd.Flags().BoolVar(&batch, "batch", false, "process every user directly instead of through the queue")
	return cmd
}

// reportDrain prints the queue totals and fails when any item could not be processed.
func reportDrain(w io.Writer, queued, processed, failed int) error {
	fmt.Fprintf(w, "Queued %d users, processed %d queue items.\n", queued, processed)
	if failed > 0 {
		return fmt.Errorf("%d queue items failed to process", failed)
	}
	return nil
}

func printSummary(w io.Writer, s model.Summary) {
	fmt.Fprintf(w, "Created: %d, updated: %d, deleted: %d, unchanged: %d\n", s.Created, s.Updated, s.Deleted, s.Unchanged)
}
