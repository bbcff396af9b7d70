// Package app wires the configured store, queue, connectors and services together.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"repository-sync/internal/config"
	"repository-sync/internal/connector"
	"repository-sync/internal/database"
	"repository-sync/internal/database/sqlite"
	"repository-sync/internal/events"
	"repository-sync/internal/github"
	"repository-sync/internal/queue"
	"repository-sync/internal/syncer"
	"repository-sync/internal/worker"
)

// App holds the long-lived components shared by the service and the CLI.
type App struct {
	Config      *config.Config
	Store       database.Store
	Queue       queue.Queue
	Syncer      *syncer.Syncer
	Distributor *worker.Distributor
	Worker      *worker.Worker

	closers []func()
}

// New opens the store selected by cfg.DBURL, applies migrations and builds the services.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	a := &App{Config: cfg}

	backend, err := cfg.Backend()
	if err != nil {
		return nil, err
	}
	switch backend {
	case config.BackendPostgres:
		if err := database.Migrate(cfg.DBURL); err != nil {
			return nil, fmt.Errorf("failed to run database migrations: %w", err)
		}
		pool, err := pgxpool.New(ctx, cfg.DBURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		a.closers = append(a.closers, pool.Close)
		a.Store = database.NewStore(pool)
		a.Queue = queue.NewPostgres(pool, cfg.QueueLease)
	case config.BackendSQLite:
		db, err := sqlite.New(cfg.SQLitePath())
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		a.closers = append(a.closers, func() { db.Close() })
		a.Store = db
		a.Queue = queue.NewMemory(cfg.QueueLease)
	}
	logger.Info("Database connection established", "backend", backend)

	connectors, err := Connectors(cfg, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Syncer = syncer.New(a.Store, connectors, events.NewLogSink(logger), logger, syncer.WithDryRun(cfg.DryRun))
	a.Distributor = worker.NewDistributor(a.Store, a.Queue, a.Syncer, logger, cfg.WorkerConcurrency, cfg.SyncInterval)
	a.Worker = worker.NewWorker(a.Queue, a.Syncer, logger, cfg.WorkerConcurrency, cfg.QueuePollInterval)
	return a, nil
}

// Connectors resolves the enabled connector ids against the built-in registry.
func Connectors(cfg *config.Config, logger *slog.Logger) ([]connector.Connector, error) {
	deps := connector.Deps{
		GitHub:       github.NewClient(cfg.GithubToken, logger),
		HTTPClient:   connector.NewHTTPClient(logger, cfg.FetchTimeout),
		Logger:       logger,
		FetchTimeout: cfg.FetchTimeout,
	}
	connectors, err := connector.DefaultRegistry(deps).Resolve(cfg.EnabledConnectors)
	if err != nil {
		return nil, fmt.Errorf("invalid ENABLED_CONNECTORS: %w", err)
	}
	ids := make([]string, len(connectors))
	for i, c := range connectors {
		ids[i] = c.ID()
	}
	logger.Info("Repository connectors enabled", "connectors", ids)
	return connectors, nil
}

// Migrate applies the schema of the configured backend without building the services.
func Migrate(cfg *config.Config) error {
	backend, err := cfg.Backend()
	if err != nil {
		return err
	}
	if backend == config.BackendPostgres {
		return database.Migrate(cfg.DBURL)
	}
	db, err := sqlite.New(cfg.SQLitePath())
	if err != nil {
		return err
	}
	return db.Close()
}

// Close releases the store.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
