// internal/database/users.sql.go
package database

import (
	"context"
)

const addUserRepositoryURL = `-- name: AddUserRepositoryURL :exec
INSERT INTO user_repository_urls (user_id, position, uri) VALUES ($1, $2, $3)
`

type AddUserRepositoryURLParams struct {
	UserID   int64  `json:"user_id"`
	Position int32  `json:"position"`
	Uri      string `json:"uri"`
}

func (q *Queries) AddUserRepositoryURL(ctx context.Context, arg AddUserRepositoryURLParams) error {
	_, err := q.db.Exec(ctx, addUserRepositoryURL, arg.UserID, arg.Position, arg.Uri)
	return err
}

const countUsersWithURLs = `-- name: CountUsersWithURLs :one
SELECT count(DISTINCT user_id) FROM user_repository_urls
`

func (q *Queries) CountUsersWithURLs(ctx context.Context) (int64, error) {
	row := q.db.QueryRow(ctx, countUsersWithURLs)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const createUser = `-- name: CreateUser :one
INSERT INTO users (name, active) VALUES ($1, $2)
RETURNING id, name, active, created_at
`

type CreateUserParams struct {
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	row := q.db.QueryRow(ctx, createUser, arg.Name, arg.Active)
	var i User
	err := row.Scan(&i.ID, &i.Name, &i.Active, &i.CreatedAt)
	return i, err
}

const deleteUserRepositoryURLs = `-- name: DeleteUserRepositoryURLs :exec
DELETE FROM user_repository_urls WHERE user_id = $1
`

func (q *Queries) DeleteUserRepositoryURLs(ctx context.Context, userID int64) error {
	_, err := q.db.Exec(ctx, deleteUserRepositoryURLs, userID)
	return err
}

const getUser = `-- name: GetUser :one
SELECT id, name, active, created_at FROM users WHERE id = $1
`

func (q *Queries) GetUser(ctx context.Context, id int64) (User, error) {
	row := q.db.QueryRow(ctx, getUser, id)
	var i User
	err := row.Scan(&i.ID, &i.Name, &i.Active, &i.CreatedAt)
	return i, err
}

const listActiveUserIDsWithURLs = `-- name: ListActiveUserIDsWithURLs :many
SELECT u.id FROM users u
WHERE u.active AND EXISTS (SELECT 1 FROM user_repository_urls r WHERE r.user_id = u.id)
ORDER BY u.id
`

func (q *Queries) ListActiveUserIDsWithURLs(ctx context.Context) ([]int64, error) {
	rows, err := q.db.Query(ctx, listActiveUserIDsWithURLs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		items = append(items, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listUserRepositoryURLs = `-- name: ListUserRepositoryURLs :many
SELECT uri FROM user_repository_urls WHERE user_id = $1 ORDER BY position
`

func (q *Queries) ListUserRepositoryURLs(ctx context.Context, userID int64) ([]string, error) {
	rows, err := q.db.Query(ctx, listUserRepositoryURLs, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []string
	for rows.Next() {
		var uri string
		if err := rows.Scan(&uri); err != nil {
			return nil, err
		}
		items = append(items, uri)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
