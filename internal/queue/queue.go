// Package queue is the at-least-once work queue that carries per-owner update requests.
package queue

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// RepositoryRecordUpdater is the queue holding one item per owner to reconcile.
const RepositoryRecordUpdater = "repository_record_updater"

// Payload identifies the owner whose repositories must be updated.
type Payload struct {
	OwnerID int64 `json:"owner_id"`
}

// Item is a leased queue entry.
type Item struct {
	ID         uuid.UUID
	Queue      string
	Payload    Payload
	Attempts   int
	EnqueuedAt time.Time
}

// Queue stores work items. A dequeued item stays invisible to other consumers until it is
// acked, released, or its lease runs out.
type Queue interface {
	Enqueue(ctx context.Context, name string, p Payload) error
	// Dequeue leases the oldest visible item, or returns nil when there is none.
	Dequeue(ctx context.Context, name string) (*Item, error)
	Ack(ctx context.Context, item *Item) error
	Release(ctx context.Context, item *Item) error
}
