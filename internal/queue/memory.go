package queue

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memoryEntry struct {
	item        Item
	leasedUntil time.Time
}

// Memory is an in-process Queue.
type Memory struct {
	mu      sync.Mutex
	lease   time.Duration
	now     func() time.Time
	entries map[string][]*memoryEntry
}

var _ Queue = (*Memory)(nil)

// NewMemory creates an empty queue whose leases last for lease.
func NewMemory(lease time.Duration) *Memory {
	return &Memory{
		lease:   lease,
		now:     time.Now,
		entries: make(map[string][]*memoryEntry),
	}
}

func (m *Memory) Enqueue(_ context.Context, name string, p Payload) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[name] = append(m.entries[name], &memoryEntry{item: Item{
		ID:         uuid.New(),
		Queue:      name,
		Payload:    p,
		EnqueuedAt: m.now(),
	}})
	return nil
}

func (m *Memory) Dequeue(ctx context.Context, name string) (*Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for _, e := range m.entries[name] {
		if now.Before(e.leasedUntil) {
			continue
		}
		e.leasedUntil = now.Add(m.lease)
		e.item.Attempts++
		item := e.item
		return &item, nil
	}
	return nil, nil
}

func (m *Memory) Ack(_ context.Context, item *Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entries := m.entries[item.Queue]
	for i, e := range entries {
		if e.item.ID == item.ID {
			m.entries[item.Queue] = append(entries[:i], entries[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *Memory) Release(_ context.Context, item *Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, e := range m.entries[item.Queue] {
		if e.item.ID == item.ID {
			e.leasedUntil = time.Time{}
			return nil
		}
	}
	return nil
}

// Len returns the number of items in the named queue, leased or not.
func (m *Memory) Len(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries[name])
}
