// internal/syncer/syncer_test.go
package syncer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"repository-sync/internal/connector"
	"repository-sync/internal/database"
	"repository-sync/internal/database/sqlite"
	custom_errors "repository-sync/internal/errors"
	"repository-sync/internal/events"
	"repository-sync/internal/model"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// stubConnector serves canned metadata for URLs starting with prefix.
type stubConnector struct {
	id     string
	prefix string

	mu    sync.Mutex
	repos map[string]*model.RepositoryMetadata
	calls atomic.Int32
}

func newStub(id, prefix string) *stubConnector {
	return &stubConnector{id: id, prefix: prefix, repos: make(map[string]*model.RepositoryMetadata)}
}

func (c *stubConnector) ID() string               { return c.id }
func (c *stubConnector) Label() string            { return c.id }
func (c *stubConnector) Validate(uri string) bool { return strings.HasPrefix(uri, c.prefix) }
func (c *stubConnector) ValidateHelpText() string { return c.prefix + "vendor/name" }

func (c *stubConnector) GetRepo(_ context.Context, uri string) *model.RepositoryMetadata {
	c.calls.Add(1)
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.repos[uri]
	if !ok {
		return nil
	}
	cp := *m
	return &cp
}

func (c *stubConnector) set(uri, machineName string, issues int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.repos[uri] = &model.RepositoryMetadata{
		MachineName:   machineName,
		Label:         machineName,
		NumOpenIssues: issues,
		Source:        c.id,
		URL:           uri,
	}
}

// anyPortDescriptor accepts descriptor URLs on test servers, whose host carries a port.
type anyPortDescriptor struct {
	*connector.Descriptor
}

func (d anyPortDescriptor) Validate(uri string) bool {
	return strings.HasSuffix(uri, ".yml")
}

func newTestStore(t *testing.T) *sqlite.DB {
	t.Helper()
	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func createUser(t *testing.T, store database.Store, name string, urls ...string) model.User {
	t.Helper()
	ctx := context.Background()
	u, err := store.CreateUser(ctx, database.CreateUserParams{Name: name, Active: true})
	require.NoError(t, err)
	for i, uri := range urls {
		require.NoError(t, store.AddUserRepositoryURL(ctx, database.AddUserRepositoryURLParams{UserID: u.ID, Position: int32(i), Uri: uri}))
	}
	return model.User{ID: u.ID, Name: u.Name, Active: u.Active, RepositoryURLs: urls}
}

func TestUpdateRepositories_DescriptorLifecycle(t *testing.T) {
	ctx := context.Background()
	var issues atomic.Int32
	issues.Store(6)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "batman-repo:\n  label: 'The Batman Repository'\n  description: 'This is where Batman keeps all of his crime-fighting code.'\n  num_open_issues: %d\n", issues.Load())
	}))
	defer server.Close()

	client := connector.NewHTTPClient(testLogger(), time.Second)
	descriptor := anyPortDescriptor{connector.NewDescriptor(connector.Deps{HTTPClient: client, Logger: testLogger(), FetchTimeout: time.Second})}

	store := newTestStore(t)
	recorder := &events.Recorder{}
	s := New(store, []connector.Connector{descriptor}, recorder, testLogger())
	uri := server.URL + "/batman-repo.yml"
	user := createUser(t, store, "bruce", uri)

	// Created.
	summary, err := s.UpdateRepositories(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, model.Summary{Created: 1}, summary)

	records, err := s.Records(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "batman-repo", records[0].MachineName)
	assert.Equal(t, 6, records[0].NumOpenIssues)
	assert.Equal(t, connector.IDDescriptor, records[0].Source)
	firstHash := records[0].ContentHash

	// Updated in place.
	issues.Store(9)
	summary, err = s.UpdateRepositories(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, model.Summary{Updated: 1}, summary)

	records, err = s.Records(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 9, records[0].NumOpenIssues)
	assert.NotEqual(t, firstHash, records[0].ContentHash)

	// Deleted once the url is gone.
	user.RepositoryURLs = nil
	summary, err = s.UpdateRepositories(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, model.Summary{Deleted: 1}, summary)

	records, err = s.Records(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, records)

	assert.Equal(t, []events.Action{events.ActionCreated, events.ActionUpdated, events.ActionDeleted}, recorder.Actions())
}

func TestUpdateRepositories_Idempotent(t *testing.T) {
	ctx := context.Background()
	gh := newStub("github", "https://github.com/")
	gh.set("https://github.com/wayne/batman", "wayne/batman", 1)
	gh.set("https://github.com/wayne/robin", "wayne/robin", 2)

	store := newTestStore(t)
	recorder := &events.Recorder{}
	s := New(store, []connector.Connector{gh}, recorder, testLogger())
	user := createUser(t, store, "bruce", "https://github.com/wayne/batman", "https://github.com/wayne/robin")

	first, err := s.UpdateRepositories(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, 2, first.Created)

	second, err := s.UpdateRepositories(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, model.Summary{Unchanged: 2}, second)
	assert.False(t, second.Changed())
	assert.Len(t, recorder.Events(), 2)
}

func TestUpdateRepositories_HashGatedUpdateTouchesOnlyChangedRecord(t *testing.T) {
	ctx := context.Background()
	gh := newStub("github", "https://github.com/")
	gh.set("https://github.com/wayne/batman", "wayne/batman", 1)
	gh.set("https://github.com/wayne/robin", "wayne/robin", 2)

	store := newTestStore(t)
	s := New(store, []connector.Connector{gh}, nil, testLogger())
	user := createUser(t, store, "bruce", "https://github.com/wayne/batman", "https://github.com/wayne/robin")

	_, err := s.UpdateRepositories(ctx, user)
	require.NoError(t, err)

	gh.set("https://github.com/wayne/robin", "wayne/robin", 3)
	summary, err := s.UpdateRepositories(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, model.Summary{Updated: 1, Unchanged: 1}, summary)
}

func TestUpdateRepositories_UnresolvableURLDeletesOnlyItsRecord(t *testing.T) {
	ctx := context.Background()
	gh := newStub("github", "https://github.com/")
	gh.set("https://github.com/wayne/batman", "wayne/batman", 1)
	gh.set("https://github.com/wayne/robin", "wayne/robin", 2)

	store := newTestStore(t)
	s := New(store, []connector.Connector{gh}, nil, testLogger())
	user := createUser(t, store, "bruce", "https://github.com/wayne/batman", "https://github.com/wayne/robin")

	_, err := s.UpdateRepositories(ctx, user)
	require.NoError(t, err)

	gh.mu.Lock()
	delete(gh.repos, "https://github.com/wayne/robin")
	gh.mu.Unlock()

	summary, err := s.UpdateRepositories(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, model.Summary{Deleted: 1, Unchanged: 1}, summary)

	records, err := s.Records(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "wayne/batman", records[0].MachineName)
}

func TestUpdateRepositories_FirstMatchWins(t *testing.T) {
	ctx := context.Background()
	first := newStub("first", "https://dup.example/")
	second := newStub("second", "https://dup.example/")
	first.set("https://dup.example/a", "shared", 1)
	second.set("https://dup.example/a", "shared", 99)

	store := newTestStore(t)
	s := New(store, []connector.Connector{first, second}, nil, testLogger())
	user := createUser(t, store, "u", "https://dup.example/a")

	summary, err := s.UpdateRepositories(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, model.Summary{Created: 1}, summary)

	records, err := s.Records(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "first", records[0].Source)
	assert.Equal(t, 1, records[0].NumOpenIssues)
}

func TestUpdateRepositories_MachineNameMovedBetweenSourcesKeepsOldRecord(t *testing.T) {
	ctx := context.Background()
	a := newStub("a", "https://a.example/")
	b := newStub("b", "https://b.example/")
	a.set("https://a.example/repo", "shared", 1)
	b.set("https://b.example/repo", "shared", 2)

	store := newTestStore(t)
	s := New(store, []connector.Connector{a, b}, nil, testLogger())
	user := createUser(t, store, "u", "https://a.example/repo")

	summary, err := s.UpdateRepositories(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, model.Summary{Created: 1}, summary)

	// Deletion is keyed by machine name, so the record from a survives the move to b.
	user.RepositoryURLs = []string{"https://b.example/repo"}
	summary, err = s.UpdateRepositories(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, model.Summary{Created: 1}, summary)

	records, err := s.Records(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, records, 2)
	sources := []string{records[0].Source, records[1].Source}
	assert.ElementsMatch(t, []string{"a", "b"}, sources)
	for _, r := range records {
		assert.Equal(t, "shared", r.MachineName)
	}
}

func TestUpdateRepositories_DryRun(t *testing.T) {
	ctx := context.Background()
	gh := newStub("github", "https://github.com/")
	gh.set("https://github.com/wayne/batman", "wayne/batman", 1)

	store := newTestStore(t)
	recorder := &events.Recorder{}
	s := New(store, []connector.Connector{gh}, recorder, testLogger(), WithDryRun(true))
	user := createUser(t, store, "bruce", "https://github.com/wayne/batman")

	summary, err := s.UpdateRepositories(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, model.Summary{Created: 1}, summary)

	records, err := s.Records(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Empty(t, recorder.Events())
}

func TestUpdateRepositoriesForUser_UnknownUser(t *testing.T) {
	store := newTestStore(t)
	s := New(store, nil, nil, testLogger())

	_, err := s.UpdateRepositoriesForUser(context.Background(), 404)
	assert.ErrorIs(t, err, custom_errors.ErrUserNotFound)
}

func TestValidatorHelpText(t *testing.T) {
	s := New(nil, []connector.Connector{newStub("a", "https://a/"), newStub("b", "https://b/")}, nil, testLogger())
	assert.Equal(t, "https://a/vendor/name https://b/vendor/name", s.ValidatorHelpText())
}

func TestValidateRepositoryURLs(t *testing.T) {
	ctx := context.Background()

	t.Run("no connectors", func(t *testing.T) {
		s := New(newTestStore(t), nil, nil, testLogger())
		msg, err := s.ValidateRepositoryURLs(ctx, []string{"https://github.com/a/b"}, 1)
		require.NoError(t, err)
		assert.Equal(t, "There are no enabled repository plugins.", msg)
	})

	t.Run("invalid, not found and blank urls", func(t *testing.T) {
		gh := newStub("github", "https://github.com/")
		gh.set("https://github.com/wayne/batman", "wayne/batman", 1)
		s := New(newTestStore(t), []connector.Connector{gh}, nil, testLogger())

		msg, err := s.ValidateRepositoryURLs(ctx, []string{
			"  ",
			"A test string",
			" https://github.com/wayne/batman ",
			"https://github.com/wayne/missing",
		}, 1)
		require.NoError(t, err)
		assert.Equal(t,
			"The repository url A test string is not valid. The repository at the url https://github.com/wayne/missing was not found.",
			msg)
	})

	t.Run("url claimed by another user", func(t *testing.T) {
		gh := newStub("github", "https://github.com/")
		uri := "https://github.com/wayne/batman"
		gh.set(uri, "wayne/batman", 1)
		store := newTestStore(t)
		s := New(store, []connector.Connector{gh}, nil, testLogger())

		bruce := createUser(t, store, "bruce", uri)
		dick := createUser(t, store, "dick")
		_, err := s.UpdateRepositories(ctx, bruce)
		require.NoError(t, err)

		msg, err := s.ValidateRepositoryURLs(ctx, []string{uri}, dick.ID)
		require.NoError(t, err)
		assert.Contains(t, msg, "has been added by another user")

		own, err := s.ValidateRepositoryURLs(ctx, []string{uri}, bruce.ID)
		require.NoError(t, err)
		assert.Empty(t, own)

		records, err := s.Records(ctx, dick.ID)
		require.NoError(t, err)
		assert.Empty(t, records)
	})
}

func TestSetRepositoryURLs(t *testing.T) {
	ctx := context.Background()
	gh := newStub("github", "https://github.com/")
	gh.set("https://github.com/wayne/batman", "wayne/batman", 1)
	store := newTestStore(t)
	s := New(store, []connector.Connector{gh}, nil, testLogger())
	user := createUser(t, store, "bruce", "https://github.com/old/one")

	msg, err := s.SetRepositoryURLs(ctx, user.ID, []string{"nope"})
	require.NoError(t, err)
	assert.Equal(t, "The repository url nope is not valid.", msg)

	urls, err := store.ListUserRepositoryURLs(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://github.com/old/one"}, urls)

	msg, err = s.SetRepositoryURLs(ctx, user.ID, []string{"", " https://github.com/wayne/batman "})
	require.NoError(t, err)
	assert.Empty(t, msg)

	urls, err = store.ListUserRepositoryURLs(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://github.com/wayne/batman"}, urls)

	_, err = s.SetRepositoryURLs(ctx, 999, nil)
	assert.ErrorIs(t, err, custom_errors.ErrUserNotFound)
}

// MockStore is a mock of the database.Store interface.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) InTx(ctx context.Context, fn func(database.Querier) error) error {
	args := m.Called(ctx)
	if err := args.Error(0); err != nil {
		return err
	}
	return fn(m)
}
func (m *MockStore) AddUserRepositoryURL(ctx context.Context, arg database.AddUserRepositoryURLParams) error {
	return m.Called(ctx, arg).Error(0)
}
func (m *MockStore) CountRepositoriesByURLForOtherOwners(ctx context.Context, arg database.CountRepositoriesByURLForOtherOwnersParams) (int64, error) {
	args := m.Called(ctx, arg)
	return args.Get(0).(int64), args.Error(1)
}
func (m *MockStore) CountUsersWithURLs(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}
func (m *MockStore) CreateRepository(ctx context.Context, arg database.CreateRepositoryParams) (database.Repository, error) {
	args := m.Called(ctx, arg)
	return args.Get(0).(database.Repository), args.Error(1)
}
func (m *MockStore) CreateUser(ctx context.Context, arg database.CreateUserParams) (database.User, error) {
	args := m.Called(ctx, arg)
	return args.Get(0).(database.User), args.Error(1)
}
func (m *MockStore) DeleteAllRepositories(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}
func (m *MockStore) DeleteRepository(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}
func (m *MockStore) DeleteUserRepositoryURLs(ctx context.Context, userID int64) error {
	return m.Called(ctx, userID).Error(0)
}
func (m *MockStore) GetRepository(ctx context.Context, arg database.GetRepositoryParams) (database.Repository, error) {
	args := m.Called(ctx, arg)
	return args.Get(0).(database.Repository), args.Error(1)
}
func (m *MockStore) GetUser(ctx context.Context, id int64) (database.User, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(database.User), args.Error(1)
}
func (m *MockStore) ListActiveUserIDsWithURLs(ctx context.Context) ([]int64, error) {
	args := m.Called(ctx)
	return args.Get(0).([]int64), args.Error(1)
}
func (m *MockStore) ListRepositoriesByOwner(ctx context.Context, ownerID int64) ([]database.Repository, error) {
	args := m.Called(ctx, ownerID)
	return args.Get(0).([]database.Repository), args.Error(1)
}
func (m *MockStore) ListUserRepositoryURLs(ctx context.Context, userID int64) ([]string, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]string), args.Error(1)
}
func (m *MockStore) SumOpenIssues(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}
func (m *MockStore) SumOpenIssuesByOwner(ctx context.Context, ownerID int64) (int64, error) {
	args := m.Called(ctx, ownerID)
	return args.Get(0).(int64), args.Error(1)
}
func (m *MockStore) UpdateRepository(ctx context.Context, arg database.UpdateRepositoryParams) (database.Repository, error) {
	args := m.Called(ctx, arg)
	return args.Get(0).(database.Repository), args.Error(1)
}

func TestUpdateRepositories_StoreFaults(t *testing.T) {
	ctx := context.Background()
	gh := newStub("github", "https://github.com/")
	gh.set("https://github.com/wayne/batman", "wayne/batman", 1)
	user := model.User{ID: 1, RepositoryURLs: []string{"https://github.com/wayne/batman"}}
	boom := errors.New("connection reset")

	t.Run("create failure propagates and emits nothing", func(t *testing.T) {
		store := new(MockStore)
		store.On("InTx", ctx).Return(nil).Once()
		store.On("GetRepository", ctx, mock.Anything).Return(database.Repository{}, database.ErrNoRows).Once()
		store.On("CreateRepository", ctx, mock.Anything).Return(database.Repository{}, boom).Once()

		recorder := &events.Recorder{}
		s := New(store, []connector.Connector{gh}, recorder, testLogger())
		_, err := s.UpdateRepositories(ctx, user)

		assert.ErrorIs(t, err, boom)
		assert.Empty(t, recorder.Events())
		store.AssertExpectations(t)
	})

	t.Run("lookup failure propagates", func(t *testing.T) {
		store := new(MockStore)
		store.On("InTx", ctx).Return(nil).Once()
		store.On("GetRepository", ctx, mock.Anything).Return(database.Repository{}, boom).Once()

		s := New(store, []connector.Connector{gh}, nil, testLogger())
		_, err := s.UpdateRepositories(ctx, user)

		assert.ErrorIs(t, err, boom)
		store.AssertNotCalled(t, "CreateRepository", mock.Anything, mock.Anything)
	})

	t.Run("delete failure propagates", func(t *testing.T) {
		store := new(MockStore)
		store.On("InTx", ctx).Return(nil).Once()
		store.On("ListRepositoriesByOwner", ctx, int64(1)).
			Return([]database.Repository{{ID: 7, OwnerID: 1, MachineName: "gone"}}, nil).Once()
		store.On("DeleteRepository", ctx, int64(7)).Return(boom).Once()

		s := New(store, []connector.Connector{gh}, nil, testLogger())
		_, err := s.UpdateRepositories(ctx, model.User{ID: 1})

		assert.ErrorIs(t, err, boom)
		store.AssertExpectations(t)
	})

	t.Run("uniqueness lookup failure is an error, not a message", func(t *testing.T) {
		store := new(MockStore)
		store.On("CountRepositoriesByURLForOtherOwners", ctx, mock.Anything).Return(int64(0), boom).Once()

		s := New(store, []connector.Connector{gh}, nil, testLogger())
		msg, err := s.ValidateRepositoryURLs(ctx, []string{"https://github.com/wayne/batman"}, 1)

		assert.ErrorIs(t, err, boom)
		assert.Empty(t, msg)
	})
}

func TestPurgeRecords(t *testing.T) {
	ctx := context.Background()
	gh := newStub("github", "https://github.com/")
	gh.set("https://github.com/wayne/batman", "wayne/batman", 1)
	store := newTestStore(t)
	s := New(store, []connector.Connector{gh}, nil, testLogger())
	user := createUser(t, store, "bruce", "https://github.com/wayne/batman")

	_, err := s.UpdateRepositories(ctx, user)
	require.NoError(t, err)

	_, err = s.PurgeRecords(ctx)
	require.ErrorIs(t, err, custom_errors.ErrURLsStillDeclared)
	assert.Equal(t, "users still declare repository urls", err.Error())

	require.NoError(t, store.DeleteUserRepositoryURLs(ctx, user.ID))
	n, err := s.PurgeRecords(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
