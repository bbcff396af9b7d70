// internal/database/querier.go
package database

import (
	"context"
)

type Querier interface {
	AddUserRepositoryURL(ctx context.Context, arg AddUserRepositoryURLParams) error
	CountRepositoriesByURLForOtherOwners(ctx context.Context, arg CountRepositoriesByURLForOtherOwnersParams) (int64, error)
	CountUsersWithURLs(ctx context.Context) (int64, error)
	CreateRepository(ctx context.Context, arg CreateRepositoryParams) (Repository, error)
	CreateUser(ctx context.Context, arg CreateUserParams) (User, error)
	DeleteAllRepositories(ctx context.Context) (int64, error)
	DeleteRepository(ctx context.Context, id int64) error
	DeleteUserRepositoryURLs(ctx context.Context, userID int64) error
	GetRepository(ctx context.Context, arg GetRepositoryParams) (Repository, error)
	GetUser(ctx context.Context, id int64) (User, error)
	ListActiveUserIDsWithURLs(ctx context.Context) ([]int64, error)
	ListRepositoriesByOwner(ctx context.Context, ownerID int64) ([]Repository, error)
	ListUserRepositoryURLs(ctx context.Context, userID int64) ([]string, error)
	SumOpenIssues(ctx context.Context) (int64, error)
	SumOpenIssuesByOwner(ctx context.Context, ownerID int64) (int64, error)
	UpdateRepository(ctx context.Context, arg UpdateRepositoryParams) (Repository, error)
}

var _ Querier = (*Queries)(nil)
