package app

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repository-sync/internal/config"
	custom_errors "repository-sync/internal/errors"
	"repository-sync/internal/queue"
)

func testConfig() *config.Config {
	return &config.Config{
		LogLevel:          "info",
		DBURL:             "sqlite::memory:",
		EnabledConnectors: []string{"remote_descriptor_file", "github"},
		SyncInterval:      time.Hour,
		WorkerConcurrency: 2,
		QueuePollInterval: time.Second,
		QueueLease:        time.Minute,
		FetchTimeout:      time.Second,
		HTTPAddr:          ":0",
	}
}

func TestNew_SQLite(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	a, err := New(context.Background(), testConfig(), logger)
	require.NoError(t, err)
	defer a.Close()

	assert.IsType(t, &queue.Memory{}, a.Queue)
	assert.Equal(t,
		"http://anything.anything/anything/anything.yml (or https or yaml) https://github.com/vendor/name",
		a.Syncer.ValidatorHelpText())

	n, err := a.Distributor.CreateQueueItems(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestConnectors_UnknownID(t *testing.T) {
	cfg := testConfig()
	cfg.EnabledConnectors = []string{"github", "gitlab"}

	_, err := Connectors(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	var unknown *custom_errors.ErrUnknownConnector
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "gitlab", unknown.ID)
}

func TestMigrate_SQLite(t *testing.T) {
	assert.NoError(t, Migrate(testConfig()))
}
