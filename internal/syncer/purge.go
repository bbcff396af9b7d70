package syncer

import (
	"context"

	custom_errors "repository-sync/internal/errors"
)

// PurgeRecords deletes every stored repository record. It refuses while any user still declares a URL,
// since the next reconciliation would recreate the records.
func (s *Syncer) PurgeRecords(ctx context.Context) (int64, error) {
	n, err := s.store.CountUsersWithURLs(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		return 0, custom_errors.ErrURLsStillDeclared
	}
	if s.dryRun {
		return 0, nil
	}
	deleted, err := s.store.DeleteAllRepositories(ctx)
	if err != nil {
		return 0, err
	}
	s.logger.Info("Purged repository records", "count", deleted)
	return deleted, nil
}
