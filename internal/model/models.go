// internal/model/models.go
package model

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"time"
)

// RepositoryMetadata is the canonical metadata a connector produces for one remote repository.
type RepositoryMetadata struct {
	MachineName   string  `json:"machine_name"`
	Label         string  `json:"label"`
	Description   *string `json:"description"`
	NumOpenIssues int     `json:"num_open_issues"`
	Source        string  `json:"source"`
	URL           string  `json:"url"`
}

// ContentHash returns the hex SHA-256 digest of the metadata fields.
// Field order is fixed by the struct, so equal metadata always hashes equally.
func (m RepositoryMetadata) ContentHash() string {
	// Marshalling a struct of strings, ints and a string pointer cannot fail.
	b, _ := json.Marshal(m)
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// RepositoryRecord is a persisted repository owned by a single user.
type RepositoryRecord struct {
	ID int64 `json:"id"`
	RepositoryMetadata
	OwnerID     int64     `json:"owner_id"`
	ContentHash string    `json:"content_hash"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// MetadataSet is the aggregated metadata of one reconciliation pass, keyed by machine name.
type MetadataSet map[string]RepositoryMetadata

// Add stores m unless its machine name is already present. It reports whether m was added.
func (s MetadataSet) Add(m RepositoryMetadata) bool {
	if _, ok := s[m.MachineName]; ok {
		return false
	}
	s[m.MachineName] = m
	return true
}

// Keys returns the machine names in the set, sorted.
func (s MetadataSet) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// User is an owner of repository records.
type User struct {
	ID             int64    `json:"id"`
	Name           string   `json:"name"`
	Active         bool     `json:"active"`
	RepositoryURLs []string `json:"repository_urls"`
}

// Summary counts what one or more reconciliation passes did.
type Summary struct {
	Created   int `json:"created"`
	Updated   int `json:"updated"`
	Deleted   int `json:"deleted"`
	Unchanged int `json:"unchanged"`
}

// Changed reports whether any record was created, updated or deleted.
func (s Summary) Changed() bool {
	return s.Created+s.Updated+s.Deleted > 0
}

// Add accumulates other into s.
func (s *Summary) Add(other Summary) {
	s.Created += other.Created
	s.Updated += other.Updated
	s.Deleted += other.Deleted
	s.Unchanged += other.Unchanged
}
