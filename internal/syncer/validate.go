package syncer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"repository-sync/internal/database"
	custom_errors "repository-sync/internal/errors"
	"repository-sync/internal/model"
)

// Validation messages shown to users.
const (
	msgNoConnectors = "There are no enabled repository plugins."
	msgNotValid     = "The repository url %s is not valid."
	msgNotFound     = "The repository at the url %s was not found."
	msgNotUnique    = "The repository at %s has been added by another user."
)

// ValidatorHelpText joins the help text of every enabled connector with a space.
func (s *Syncer) ValidatorHelpText() string {
	texts := make([]string, 0, len(s.connectors))
	for _, c := range s.connectors {
		texts = append(texts, c.ValidateHelpText())
	}
	return strings.Join(texts, " ")
}

// ValidateRepositoryURLs checks each declared URL against the enabled connectors and returns
// the space joined validation messages; an empty string means every URL is valid.
// Metadata is fetched but nothing is written. The error is only set for store faults.
func (s *Syncer) ValidateRepositoryURLs(ctx context.Context, urls []string, ownerID int64) (string, error) {
	if len(s.connectors) == 0 {
		return msgNoConnectors, nil
	}

	var msgs []string
	for _, raw := range urls {
		uri := strings.TrimSpace(raw)
		if uri == "" {
			continue
		}

		valid := false
		for _, c := range s.connectors {
			if !c.Validate(uri) {
				continue
			}
			valid = true

			m := c.GetRepo(ctx, uri)
			if m == nil {
				msgs = append(msgs, fmt.Sprintf(msgNotFound, uri))
				continue
			}
			unique, err := s.isUnique(ctx, *m, ownerID)
			if err != nil {
				return "", err
			}
			if !unique {
				msgs = append(msgs, fmt.Sprintf(msgNotUnique, uri))
			}
		}
		if !valid {
			msgs = append(msgs, fmt.Sprintf(msgNotValid, uri))
		}
	}
	return strings.Join(msgs, " "), nil
}

// isUnique reports whether no other owner already stores a record with the metadata's URL.
func (s *Syncer) isUnique(ctx context.Context, m model.RepositoryMetadata, ownerID int64) (bool, error) {
	n, err := s.store.CountRepositoriesByURLForOtherOwners(ctx, database.CountRepositoriesByURLForOtherOwnersParams{
		Url:     m.URL,
		OwnerID: ownerID,
	})
	if err != nil {
		return false, fmt.Errorf("checking uniqueness of %s: %w", m.URL, err)
	}
	return n == 0, nil
}

// SetRepositoryURLs validates urls and, when they are all valid, replaces the owner's declared URLs
// with the trimmed non-blank ones in the given order. A non-empty message means nothing was stored.
func (s *Syncer) SetRepositoryURLs(ctx context.Context, ownerID int64, urls []string) (string, error) {
	if _, err := s.store.GetUser(ctx, ownerID); err != nil {
		if errors.Is(err, database.ErrNoRows) {
			return "", custom_errors.ErrUserNotFound
		}
		return "", err
	}

	msg, err := s.ValidateRepositoryURLs(ctx, urls, ownerID)
	if err != nil || msg != "" {
		return msg, err
	}

	err = s.store.InTx(ctx, func(q database.Querier) error {
		if err := q.DeleteUserRepositoryURLs(ctx, ownerID); err != nil {
			return err
		}
		position := int32(0)
		for _, raw := range urls {
			uri := strings.TrimSpace(raw)
			if uri == "" {
				continue
			}
			if err := q.AddUserRepositoryURL(ctx, database.AddUserRepositoryURLParams{
				UserID:   ownerID,
				Position: position,
				Uri:      uri,
			}); err != nil {
				return err
			}
			position++
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("storing urls of user %d: %w", ownerID, err)
	}
	return "", nil
}
