// internal/syncer/syncer.go
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"repository-sync/internal/connector"
	"repository-sync/internal/database"
	custom_errors "repository-sync/internal/errors"
	"repository-sync/internal/events"
	"repository-sync/internal/model"
)

// Syncer reconciles the stored repository records of one owner with the metadata its
// declared URLs currently resolve to.
type Syncer struct {
	store      database.Store
	connectors []connector.Connector
	sink       events.Sink
	logger     *slog.Logger
	dryRun     bool
}

// Option configures a Syncer.
type Option func(*Syncer)

// WithDryRun makes the Syncer compute and report changes without writing them.
func WithDryRun(dryRun bool) Option {
	return func(s *Syncer) {
		s.dryRun = dryRun
	}
}

// New creates a Syncer over the enabled connectors, in configuration order.
func New(store database.Store, connectors []connector.Connector, sink events.Sink, logger *slog.Logger, opts ...Option) *Syncer {
	if sink == nil {
		sink = events.Nop{}
	}
	s := &Syncer{
		store:      store,
		connectors: connectors,
		sink:       sink,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DryRun returns a copy of s that does not write.
func (s *Syncer) DryRun() *Syncer {
	c := *s
	c.dryRun = true
	return &c
}

// Connectors returns the enabled connectors.
func (s *Syncer) Connectors() []connector.Connector {
	return s.connectors
}

// UpdateRepositoriesForUser loads the user with the given id and reconciles its records.
func (s *Syncer) UpdateRepositoriesForUser(ctx context.Context, userID int64) (model.Summary, error) {
	user, err := s.LoadUser(ctx, userID)
	if err != nil {
		return model.Summary{}, err
	}
	return s.UpdateRepositories(ctx, user)
}

// LoadUser returns the user with the given id and its declared URLs.
func (s *Syncer) LoadUser(ctx context.Context, userID int64) (model.User, error) {
	u, err := s.store.GetUser(ctx, userID)
	if errors.Is(err, database.ErrNoRows) {
		return model.User{}, custom_errors.ErrUserNotFound
	}
	if err != nil {
		return model.User{}, fmt.Errorf("loading user %d: %w", userID, err)
	}
	urls, err := s.store.ListUserRepositoryURLs(ctx, userID)
	if err != nil {
		return model.User{}, fmt.Errorf("loading urls of user %d: %w", userID, err)
	}
	return model.User{ID: u.ID, Name: u.Name, Active: u.Active, RepositoryURLs: urls}, nil
}

// UpdateRepositories fetches metadata for every URL the owner declares and creates, updates
// or deletes the owner's records to match. Store faults roll back the whole owner and are returned.
func (s *Syncer) UpdateRepositories(ctx context.Context, owner model.User) (model.Summary, error) {
	logger := s.logger.With("owner_id", owner.ID)
	if s.dryRun {
		logger = logger.With("dry_run", true)
	}

	set := s.aggregate(ctx, owner)
	logger.Debug("Aggregated repository metadata", "count", len(set))

	var (
		summary model.Summary
		changes []events.RecordChanged
	)
	err := s.store.InTx(ctx, func(q database.Querier) error {
		summary = model.Summary{}
		changes = changes[:0]

		updated, err := s.updateRepositoryRecords(ctx, q, set, owner.ID, &summary)
		if err != nil {
			return err
		}
		deleted, err := s.deleteRepositoryRecords(ctx, q, set, owner.ID, &summary)
		if err != nil {
			return err
		}
		changes = append(append(changes, updated...), deleted...)
		return nil
	})
	if err != nil {
		return model.Summary{}, fmt.Errorf("updating repositories of user %d: %w", owner.ID, err)
	}

	if !s.dryRun {
		for _, ev := range changes {
			s.sink.Emit(ctx, ev)
		}
	}

	logger.Info("Repositories reconciled",
		"created", summary.Created,
		"updated", summary.Updated,
		"deleted", summary.Deleted,
		"unchanged", summary.Unchanged,
	)
	return summary, nil
}

// aggregate fetches metadata for every declared URL each connector validates.
// The first metadata seen for a machine name wins.
func (s *Syncer) aggregate(ctx context.Context, owner model.User) model.MetadataSet {
	set := make(model.MetadataSet)
	for _, c := range s.connectors {
		for _, uri := range owner.RepositoryURLs {
			if !c.Validate(uri) {
				continue
			}
			m := c.GetRepo(ctx, uri)
			if m == nil {
				continue
			}
			if !set.Add(*m) {
				s.logger.Debug("Skipping duplicate machine name", "owner_id", owner.ID, "machine_name", m.MachineName, "url", uri)
			}
		}
	}
	return set
}

// updateRepositoryRecords creates records for new machine names and rewrites those whose content hash changed.
func (s *Syncer) updateRepositoryRecords(ctx context.Context, q database.Querier, set model.MetadataSet, ownerID int64, summary *model.Summary) ([]events.RecordChanged, error) {
	var changes []events.RecordChanged
	for _, key := range set.Keys() {
		m := set[key]
		hash := m.ContentHash()

		existing, err := q.GetRepository(ctx, database.GetRepositoryParams{
			OwnerID:     ownerID,
			Source:      m.Source,
			MachineName: m.MachineName,
		})
		switch {
		case errors.Is(err, database.ErrNoRows):
			summary.Created++
			if s.dryRun {
				continue
			}
			row, err := q.CreateRepository(ctx, database.CreateRepositoryParams{
				OwnerID:       ownerID,
				Source:        m.Source,
				MachineName:   m.MachineName,
				Label:         m.Label,
				Description:   m.Description,
				NumOpenIssues: int32(m.NumOpenIssues),
				Url:           m.URL,
				ContentHash:   hash,
			})
			if err != nil {
				return nil, fmt.Errorf("creating %s: %w", m.MachineName, err)
			}
			changes = append(changes, events.RecordChanged{Record: toRecord(row), Action: events.ActionCreated})
		case err != nil:
			return nil, fmt.Errorf("looking up %s: %w", m.MachineName, err)
		case existing.ContentHash == hash:
			summary.Unchanged++
		default:
			summary.Updated++
			if s.dryRun {
				continue
			}
			row, err := q.UpdateRepository(ctx, database.UpdateRepositoryParams{
				ID:            existing.ID,
				Source:        m.Source,
				MachineName:   m.MachineName,
				Label:         m.Label,
				Description:   m.Description,
				NumOpenIssues: int32(m.NumOpenIssues),
				Url:           m.URL,
				ContentHash:   hash,
			})
			if err != nil {
				return nil, fmt.Errorf("updating %s: %w", m.MachineName, err)
			}
			changes = append(changes, events.RecordChanged{Record: toRecord(row), Action: events.ActionUpdated})
		}
	}
	return changes, nil
}

// deleteRepositoryRecords removes the owner's records whose machine name is not in set.
func (s *Syncer) deleteRepositoryRecords(ctx context.Context, q database.Querier, set model.MetadataSet, ownerID int64, summary *model.Summary) ([]events.RecordChanged, error) {
	rows, err := q.ListRepositoriesByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("listing records: %w", err)
	}

	var changes []events.RecordChanged
	for _, row := range rows {
		if _, ok := set[row.MachineName]; ok {
			continue
		}
		summary.Deleted++
		if s.dryRun {
			continue
		}
		if err := q.DeleteRepository(ctx, row.ID); err != nil {
			return nil, fmt.Errorf("deleting %s: %w", row.MachineName, err)
		}
		changes = append(changes, events.RecordChanged{Record: toRecord(row), Action: events.ActionDeleted})
	}
	return changes, nil
}

// Records returns the stored records of an owner, ordered by machine name.
func (s *Syncer) Records(ctx context.Context, ownerID int64) ([]model.RepositoryRecord, error) {
	rows, err := s.store.ListRepositoriesByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	records := make([]model.RepositoryRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, toRecord(row))
	}
	return records, nil
}

func toRecord(r database.Repository) model.RepositoryRecord {
	return model.RepositoryRecord{
		ID: r.ID,
		RepositoryMetadata: model.RepositoryMetadata{
			MachineName:   r.MachineName,
			Label:         r.Label,
			Description:   r.Description,
			NumOpenIssues: int(r.NumOpenIssues),
			Source:        r.Source,
			URL:           r.Url,
		},
		OwnerID:     r.OwnerID,
		ContentHash: r.ContentHash,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}
