package sqlite

import (
	"context"
	"time"

	"repository-sync/internal/database"
)

type queries struct {
	db dbtx
}

var _ database.Querier = (*queries)(nil)

const repositoryColumns = `id, owner_id, source, machine_name, label, description, num_open_issues, url, content_hash, created_at, updated_at`

func (q *queries) AddUserRepositoryURL(ctx context.Context, arg database.AddUserRepositoryURLParams) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO user_repository_urls (user_id, position, uri) VALUES (?, ?, ?)`,
		arg.UserID, arg.Position, arg.Uri,
	)
	return err
}

func (q *queries) CountRepositoriesByURLForOtherOwners(ctx context.Context, arg database.CountRepositoriesByURLForOtherOwnersParams) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx,
		`SELECT count(*) FROM repositories WHERE url = ? AND owner_id <> ?`,
		arg.Url, arg.OwnerID,
	).Scan(&count)
	return count, err
}

func (q *queries) CountUsersWithURLs(ctx context.Context) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, `SELECT count(DISTINCT user_id) FROM user_repository_urls`).Scan(&count)
	return count, err
}

func (q *queries) CreateRepository(ctx context.Context, arg database.CreateRepositoryParams) (database.Repository, error) {
	now := time.Now().UTC()
	row := q.db.QueryRowContext(ctx,
		`INSERT INTO repositories (owner_id, source, machine_name, label, description, num_open_issues, url, content_hash, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 RETURNING `+repositoryColumns,
		arg.OwnerID, arg.Source, arg.MachineName, arg.Label, arg.Description,
		arg.NumOpenIssues, arg.Url, arg.ContentHash, now, now,
	)
	return scanRepository(row)
}

func (q *queries) CreateUser(ctx context.Context, arg database.CreateUserParams) (database.User, error) {
	var u database.User
	err := q.db.QueryRowContext(ctx,
		`INSERT INTO users (name, active, created_at) VALUES (?, ?, ?) RETURNING id, name, active, created_at`,
		arg.Name, arg.Active, time.Now().UTC(),
	).Scan(&u.ID, &u.Name, &u.Active, &u.CreatedAt)
	return u, err
}

func (q *queries) DeleteAllRepositories(ctx context.Context) (int64, error) {
	result, err := q.db.ExecContext(ctx, `DELETE FROM repositories`)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (q *queries) DeleteRepository(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM repositories WHERE id = ?`, id)
	return err
}

func (q *queries) DeleteUserRepositoryURLs(ctx context.Context, userID int64) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM user_repository_urls WHERE user_id = ?`, userID)
	return err
}

func (q *queries) GetRepository(ctx context.Context, arg database.GetRepositoryParams) (database.Repository, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+repositoryColumns+` FROM repositories WHERE owner_id = ? AND source = ? AND machine_name = ?`,
		arg.OwnerID, arg.Source, arg.MachineName,
	)
	r, err := scanRepository(row)
	return r, noRows(err)
}

func (q *queries) GetUser(ctx context.Context, id int64) (database.User, error) {
	var u database.User
	err := q.db.QueryRowContext(ctx,
		`SELECT id, name, active, created_at FROM users WHERE id = ?`, id,
	).Scan(&u.ID, &u.Name, &u.Active, &u.CreatedAt)
	return u, noRows(err)
}

func (q *queries) ListActiveUserIDsWithURLs(ctx context.Context) ([]int64, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT u.id FROM users u
		 WHERE u.active = 1 AND EXISTS (SELECT 1 FROM user_repository_urls r WHERE r.user_id = u.id)
		 ORDER BY u.id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (q *queries) ListRepositoriesByOwner(ctx context.Context, ownerID int64) ([]database.Repository, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+repositoryColumns+` FROM repositories WHERE owner_id = ? ORDER BY machine_name`,
		ownerID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var repos []database.Repository
	for rows.Next() {
		r, err := scanRepository(rows)
		if err != nil {
			return nil, err
		}
		repos = append(repos, r)
	}
	return repos, rows.Err()
}

func (q *queries) ListUserRepositoryURLs(ctx context.Context, userID int64) ([]string, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT uri FROM user_repository_urls WHERE user_id = ? ORDER BY position`, userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var uris []string
	for rows.Next() {
		var uri string
		if err := rows.Scan(&uri); err != nil {
			return nil, err
		}
		uris = append(uris, uri)
	}
	return uris, rows.Err()
}

func (q *queries) SumOpenIssues(ctx context.Context) (int64, error) {
	var total int64
	err := q.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(num_open_issues), 0) FROM repositories`).Scan(&total)
	return total, err
}

func (q *queries) SumOpenIssuesByOwner(ctx context.Context, ownerID int64) (int64, error) {
	var total int64
	err := q.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(num_open_issues), 0) FROM repositories WHERE owner_id = ?`, ownerID,
	).Scan(&total)
	return total, err
}

func (q *queries) UpdateRepository(ctx context.Context, arg database.UpdateRepositoryParams) (database.Repository, error) {
	row := q.db.QueryRowContext(ctx,
		`UPDATE repositories
		 SET source = ?, machine_name = ?, label = ?, description = ?, num_open_issues = ?,
		     url = ?, content_hash = ?, updated_at = ?
		 WHERE id = ?
		 RETURNING `+repositoryColumns,
		arg.Source, arg.MachineName, arg.Label, arg.Description, arg.NumOpenIssues,
		arg.Url, arg.ContentHash, time.Now().UTC(), arg.ID,
	)
	r, err := scanRepository(row)
	return r, noRows(err)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRepository(row scanner) (database.Repository, error) {
	var r database.Repository
	err := row.Scan(
		&r.ID, &r.OwnerID, &r.Source, &r.MachineName, &r.Label, &r.Description,
		&r.NumOpenIssues, &r.Url, &r.ContentHash, &r.CreatedAt, &r.UpdatedAt,
	)
	return r, err
}
