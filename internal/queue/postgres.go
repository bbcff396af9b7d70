package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"repository-sync/internal/database"
)

const enqueueItem = `
INSERT INTO queue_items (id, queue_name, payload) VALUES ($1, $2, $3)
`

// Items whose lease expired are visible again; SKIP LOCKED lets concurrent workers lease different rows.
const dequeueItem = `
UPDATE queue_items
SET leased_until = now() + $2::interval, attempts = attempts + 1
WHERE id = (
    SELECT id FROM queue_items
    WHERE queue_name = $1 AND (leased_until IS NULL OR leased_until < now())
    ORDER BY created_at
    FOR UPDATE SKIP LOCKED
    LIMIT 1
)
RETURNING id, queue_name, payload, attempts, created_at
`

const ackItem = `DELETE FROM queue_items WHERE id = $1`

const releaseItem = `UPDATE queue_items SET leased_until = NULL WHERE id = $1`

// Postgres is a Queue stored in the queue_items table.
type Postgres struct {
	db    database.DBTX
	lease time.Duration
}

var _ Queue = (*Postgres)(nil)

func NewPostgres(db database.DBTX, lease time.Duration) *Postgres {
	return &Postgres{db: db, lease: lease}
}

func (q *Postgres) Enqueue(ctx context.Context, name string, p Payload) error {
	payload, err := json.Marshal(p)
	if err != nil {
		return err
	}
	if _, err := q.db.Exec(ctx, enqueueItem, uuid.New(), name, payload); err != nil {
		return fmt.Errorf("enqueue into %s: %w", name, err)
	}
	return nil
}

func (q *Postgres) Dequeue(ctx context.Context, name string) (*Item, error) {
	var (
		item    Item
		payload []byte
	)
	err := q.db.QueryRow(ctx, dequeueItem, name, q.lease).
		Scan(&item.ID, &item.Queue, &payload, &item.Attempts, &item.EnqueuedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("dequeue from %s: %w", name, err)
	}
	if err := json.Unmarshal(payload, &item.Payload); err != nil {
		return nil, fmt.Errorf("decoding item %s: %w", item.ID, err)
	}
	return &item, nil
}

func (q *Postgres) Ack(ctx context.Context, item *Item) error {
	_, err := q.db.Exec(ctx, ackItem, item.ID)
	return err
}

func (q *Postgres) Release(ctx context.Context, item *Item) error {
	_, err := q.db.Exec(ctx, releaseItem, item.ID)
	return err
}
