// internal/database/repositories.sql.go
package database

import (
	"context"
)

const repositoryColumns = `id, owner_id, source, machine_name, label, description, num_open_issues, url, content_hash, created_at, updated_at`

const countRepositoriesByURLForOtherOwners = `-- name: CountRepositoriesByURLForOtherOwners :one
SELECT count(*) FROM repositories
WHERE url = $1 AND owner_id <> $2
`

type CountRepositoriesByURLForOtherOwnersParams struct {
	Url     string `json:"url"`
	OwnerID int64  `json:"owner_id"`
}

func (q *Queries) CountRepositoriesByURLForOtherOwners(ctx context.Context, arg CountRepositoriesByURLForOtherOwnersParams) (int64, error) {
	row := q.db.QueryRow(ctx, countRepositoriesByURLForOtherOwners, arg.Url, arg.OwnerID)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const createRepository = `-- name: CreateRepository :one
INSERT INTO repositories (owner_id, source, machine_name, label, description, num_open_issues, url, content_hash)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING ` + repositoryColumns

type CreateRepositoryParams struct {
	OwnerID       int64   `json:"owner_id"`
	Source        string  `json:"source"`
	MachineName   string  `json:"machine_name"`
	Label         string  `json:"label"`
	Description   *string `json:"description"`
	NumOpenIssues int32   `json:"num_open_issues"`
	Url           string  `json:"url"`
	ContentHash   string  `json:"content_hash"`
}

func (q *Queries) CreateRepository(ctx context.Context, arg CreateRepositoryParams) (Repository, error) {
	row := q.db.QueryRow(ctx, createRepository,
		arg.OwnerID,
		arg.Source,
		arg.MachineName,
		arg.Label,
		arg.Description,
		arg.NumOpenIssues,
		arg.Url,
		arg.ContentHash,
	)
	return scanRepository(row)
}

const deleteAllRepositories = `-- name: DeleteAllRepositories :execrows
DELETE FROM repositories
`

func (q *Queries) DeleteAllRepositories(ctx context.Context) (int64, error) {
	result, err := q.db.Exec(ctx, deleteAllRepositories)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const deleteRepository = `-- name: DeleteRepository :exec
DELETE FROM repositories WHERE id = $1
`

func (q *Queries) DeleteRepository(ctx context.Context, id int64) error {
	_, err := q.db.Exec(ctx, deleteRepository, id)
	return err
}

const getRepository = `-- name: GetRepository :one
SELECT ` + repositoryColumns + ` FROM repositories
WHERE owner_id = $1 AND source = $2 AND machine_name = $3
`

type GetRepositoryParams struct {
	OwnerID     int64  `json:"owner_id"`
	Source      string `json:"source"`
	MachineName string `json:"machine_name"`
}

func (q *Queries) GetRepository(ctx context.Context, arg GetRepositoryParams) (Repository, error) {
	row := q.db.QueryRow(ctx, getRepository, arg.OwnerID, arg.Source, arg.MachineName)
	return scanRepository(row)
}

const listRepositoriesByOwner = `-- name: ListRepositoriesByOwner :many
SELECT ` + repositoryColumns + ` FROM repositories
WHERE owner_id = $1
ORDER BY machine_name
`

func (q *Queries) ListRepositoriesByOwner(ctx context.Context, ownerID int64) ([]Repository, error) {
	rows, err := q.db.Query(ctx, listRepositoriesByOwner, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Repository
	for rows.Next() {
		i, err := scanRepository(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const sumOpenIssues = `-- name: SumOpenIssues :one
SELECT COALESCE(SUM(num_open_issues), 0)::bigint FROM repositories
`

func (q *Queries) SumOpenIssues(ctx context.Context) (int64, error) {
	row := q.db.QueryRow(ctx, sumOpenIssues)
	var total int64
	err := row.Scan(&total)
	return total, err
}

const sumOpenIssuesByOwner = `-- name: SumOpenIssuesByOwner :one
SELECT COALESCE(SUM(num_open_issues), 0)::bigint FROM repositories
WHERE owner_id = $1
`

func (q *Queries) SumOpenIssuesByOwner(ctx context.Context, ownerID int64) (int64, error) {
	row := q.db.QueryRow(ctx, sumOpenIssuesByOwner, ownerID)
	var total int64
	err := row.Scan(&total)
	return total, err
}

const updateRepository = `-- name: UpdateRepository :one
UPDATE repositories
SET source = $2, machine_name = $3, label = $4, description = $5, num_open_issues = $6,
    url = $7, content_hash = $8, updated_at = now()
WHERE id = $1
RETURNING ` + repositoryColumns

type UpdateRepositoryParams struct {
	ID            int64   `json:"id"`
	Source        string  `json:"source"`
	MachineName   string  `json:"machine_name"`
	Label         string  `json:"label"`
	Description   *string `json:"description"`
	NumOpenIssues int32   `json:"num_open_issues"`
	Url           string  `json:"url"`
	ContentHash   string  `json:"content_hash"`
}

func (q *Queries) UpdateRepository(ctx context.Context, arg UpdateRepositoryParams) (Repository, error) {
	row := q.db.QueryRow(ctx, updateRepository,
		arg.ID,
		arg.Source,
		arg.MachineName,
		arg.Label,
		arg.Description,
		arg.NumOpenIssues,
		arg.Url,
		arg.ContentHash,
	)
	return scanRepository(row)
}

// rowScanner is satisfied by pgx.Row, pgx.Rows, *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRepository(row rowScanner) (Repository, error) {
	var i Repository
	err := row.Scan(
		&i.ID,
		&i.OwnerID,
		&i.Source,
		&i.MachineName,
		&i.Label,
		&i.Description,
		&i.NumOpenIssues,
		&i.Url,
		&i.ContentHash,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}
