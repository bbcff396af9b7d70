// Package events delivers record change notifications produced by reconciliation.
package events

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"repository-sync/internal/model"
)

// Action is what happened to a repository record.
type Action string

const (
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
	ActionDeleted Action = "deleted"
)

// RecordChanged is emitted once per created, updated or deleted record.
type RecordChanged struct {
	Record model.RepositoryRecord
	Action Action
}

// Sink receives record change events.
type Sink interface {
	Emit(ctx context.Context, ev RecordChanged)
}

// LogSink writes one notification line per event.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Emit(ctx context.Context, ev RecordChanged) {
	msg := fmt.Sprintf("The repository named %s has been %s (%s). The repository record is owned by %d.",
		ev.Record.Label, ev.Action, ev.Record.URL, ev.Record.OwnerID)
	s.logger.InfoContext(ctx, msg,
		"action", ev.Action,
		"source", ev.Record.Source,
		"machine_name", ev.Record.MachineName,
	)
}

// Nop discards every event.
type Nop struct{}

func (Nop) Emit(context.Context, RecordChanged) {}

// Recorder keeps every event in memory.
type Recorder struct {
	mu     sync.Mutex
	events []RecordChanged
}

func (r *Recorder) Emit(_ context.Context, ev RecordChanged) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

// Events returns a copy of the recorded events in emission order.
func (r *Recorder) Events() []RecordChanged {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]RecordChanged, len(r.events))
	copy(out, r.events)
	return out
}

// Actions returns the action of every recorded event, in order.
func (r *Recorder) Actions() []Action {
	evs := r.Events()
	out := make([]Action, len(evs))
	for i, ev := range evs {
		out[i] = ev.Action
	}
	return out
}
