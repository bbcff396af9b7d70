// internal/database/models.go
package database

import (
	"time"
)

type Repository struct {
	ID            int64     `json:"id"`
	OwnerID       int64     `json:"owner_id"`
	Source        string    `json:"source"`
	MachineName   string    `json:"machine_name"`
	Label         string    `json:"label"`
	Description   *string   `json:"description"`
	NumOpenIssues int32     `json:"num_open_issues"`
	Url           string    `json:"url"`
	ContentHash   string    `json:"content_hash"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type User struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}
