// Package worker fans reconciliation out across owners, either through the work queue or as a
// synchronous batch.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"repository-sync/internal/database"
	"repository-sync/internal/model"
	"repository-sync/internal/queue"
	"repository-sync/internal/syncer"
)

// Report is the outcome of a synchronous batch.
type Report struct {
	Users   int           `json:"users"`
	Failed  int           `json:"failed"`
	Summary model.Summary `json:"summary"`
}

// Distributor finds the owners that need reconciling and hands them out.
type Distributor struct {
	users       database.Querier
	queue       queue.Queue
	syncer      *syncer.Syncer
	logger      *slog.Logger
	concurrency int
	interval    time.Duration
}

func NewDistributor(users database.Querier, q queue.Queue, s *syncer.Syncer, logger *slog.Logger, concurrency int, interval time.Duration) *Distributor {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Distributor{
		users:       users,
		queue:       q,
		syncer:      s,
		logger:      logger,
		concurrency: concurrency,
		interval:    interval,
	}
}

// CreateQueueItems enqueues one item per active user with at least one declared URL and
// returns how many were enqueued.
func (d *Distributor) CreateQueueItems(ctx context.Context) (int, error) {
	ids, err := d.users.ListActiveUserIDsWithURLs(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing users: %w", err)
	}
	for i, id := range ids {
		if err := d.queue.Enqueue(ctx, queue.RepositoryRecordUpdater, queue.Payload{OwnerID: id}); err != nil {
			return i, err
		}
	}
	d.logger.Info("Queued repository updates", "count", len(ids))
	return len(ids), nil
}

// UpdateAllRepositories reconciles every eligible user in-process. A failing user is logged and
// counted; the others still run.
func (d *Distributor) UpdateAllRepositories(ctx context.Context) (Report, error) {
	ids, err := d.users.ListActiveUserIDsWithURLs(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("listing users: %w", err)
	}

	var (
		mu     sync.Mutex
		report = Report{Users: len(ids)}
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.concurrency)

	for _, id := range ids {
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			summary, err := d.syncer.UpdateRepositoriesForUser(gctx, id)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if !errors.Is(err, context.Canceled) {
					d.logger.Error("Failed to update repositories", "owner_id", id, "error", err)
				}
				report.Failed++
				return nil
			}
			report.Summary.Add(summary)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return report, err
	}
	d.logger.Info("Batch update finished", "users", report.Users, "failed", report.Failed,
		"created", report.Summary.Created, "updated", report.Summary.Updated, "deleted", report.Summary.Deleted)
	return report, nil
}

// Start enqueues every eligible user now and then once per interval until ctx is done.
func (d *Distributor) Start(ctx context.Context) {
	d.logger.Info("Starting distributor", "interval", d.interval.String())
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	d.runCycle(ctx)

	for {
		select {
		case <-ticker.C:
			d.runCycle(ctx)
		case <-ctx.Done():
			d.logger.Info("Distributor shutting down", "reason", ctx.Err())
			return
		}
	}
}

func (d *Distributor) runCycle(ctx context.Context) {
	if _, err := d.CreateQueueItems(ctx); err != nil && !errors.Is(err, context.Canceled) {
		d.logger.Error("Failed to queue repository updates", "error", err)
	}
}
