package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	custom_errors "repository-sync/internal/errors"
	"repository-sync/internal/queue"
	"repository-sync/internal/syncer"
)

// Worker consumes the repository update queue.
type Worker struct {
	queue        queue.Queue
	syncer       *syncer.Syncer
	logger       *slog.Logger
	concurrency  int
	pollInterval time.Duration
}

func NewWorker(q queue.Queue, s *syncer.Syncer, logger *slog.Logger, concurrency int, pollInterval time.Duration) *Worker {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Worker{
		queue:        q,
		syncer:       s,
		logger:       logger,
		concurrency:  concurrency,
		pollInterval: pollInterval,
	}
}

// ProcessItem reconciles the owner named by item. An owner that no longer exists is not an error.
func (w *Worker) ProcessItem(ctx context.Context, item *queue.Item) error {
	logger := w.logger.With("owner_id", item.Payload.OwnerID, "item_id", item.ID, "attempt", item.Attempts)

	_, err := w.syncer.UpdateRepositoriesForUser(ctx, item.Payload.OwnerID)
	if errors.Is(err, custom_errors.ErrUserNotFound) {
		logger.Info("Skipping queue item for deleted user")
		return nil
	}
	return err
}

// handle processes one item and acks or releases it.
func (w *Worker) handle(ctx context.Context, item *queue.Item) error {
	// Settle the item on a fresh context so a cancelled run does not leave it leased.
	settleCtx := context.WithoutCancel(ctx)
	if err := w.ProcessItem(ctx, item); err != nil {
		w.logger.Error("Queue item failed", "owner_id", item.Payload.OwnerID, "item_id", item.ID, "error", err)
		if rerr := w.queue.Release(settleCtx, item); rerr != nil {
			w.logger.Error("Failed to release queue item", "item_id", item.ID, "error", rerr)
		}
		return err
	}
	if err := w.queue.Ack(settleCtx, item); err != nil {
		w.logger.Error("Failed to ack queue item", "item_id", item.ID, "error", err)
		return err
	}
	return nil
}

// Run polls the queue until ctx is done, processing up to concurrency items at a time.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("Starting queue worker", "queue", queue.RepositoryRecordUpdater, "concurrency", w.concurrency)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.concurrency)

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		for {
			item, err := w.queue.Dequeue(gctx, queue.RepositoryRecordUpdater)
			if err != nil {
				if gctx.Err() != nil {
					break
				}
				w.logger.Error("Failed to dequeue", "error", err)
				break
			}
			if item == nil {
				break
			}
			g.Go(func() error {
				w.handle(gctx, item)
				return nil
			})
		}

		select {
		case <-ticker.C:
		case <-gctx.Done():
			w.logger.Info("Queue worker shutting down", "reason", gctx.Err())
			g.Wait()
			return nil
		}
	}
}

// Drain processes items until the queue is empty and reports how many succeeded and failed.
// Failed items are released and retried on a later drain, not in this one.
func (w *Worker) Drain(ctx context.Context) (processed, failed int, err error) {
	var released []*queue.Item
	defer func() {
		for _, item := range released {
			if rerr := w.queue.Release(context.WithoutCancel(ctx), item); rerr != nil {
				w.logger.Error("Failed to release queue item", "item_id", item.ID, "error", rerr)
			}
		}
	}()

	for {
		if err := ctx.Err(); err != nil {
			return processed, len(released), err
		}
		item, err := w.queue.Dequeue(ctx, queue.RepositoryRecordUpdater)
		if err != nil {
			return processed, len(released), err
		}
		if item == nil {
			return processed, len(released), nil
		}
		if err := w.ProcessItem(ctx, item); err != nil {
			w.logger.Error("Queue item failed", "owner_id", item.Payload.OwnerID, "item_id", item.ID, "error", err)
			released = append(released, item)
			continue
		}
		if err := w.queue.Ack(context.WithoutCancel(ctx), item); err != nil {
			w.logger.Error("Failed to ack queue item", "item_id", item.ID, "error", err)
			return processed, len(released), err
		}
		processed++
	}
}
