package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/AarnabDutta/Product-Importer-FullStack/internal/config"
	"github.com/AarnabDutta/Product-Importer-FullStack/internal/core"
	"github.com/AarnabDutta/Product-Importer-FullStack/internal/database"
	"github.com/AarnabDutta/Product-Importer-FullStack/internal/jobqueue"
	"github.com/AarnabDutta/Product-Importer-FullStack/internal/logging"
	"github.com/AarnabDutta/Product-Importer-FullStack/internal/web"
)

// loadConfig reads envFile into the environment, then loads and validates
// the configuration and sets up logging.
func loadConfig(envFile string) (*config.Config, error) {
	// Overload so the file wins over stale shell exports.
	if err := godotenv.Overload(envFile); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
		slog.Info("no .env file found, using environment variables", "path", envFile)
	} else {
		slog.Info("loaded .env file", "path", envFile)
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	logConfig(slog.Default(), cfg)
	return cfg, nil
}

// logConfig records the effective settings. Connection URLs stay masked.
func logConfig(log *slog.Logger, cfg *config.Config) {
	log.Info("configuration loaded",
		"addr", cfg.Server.Addr(),
		"config", cfg.String(),
	)
}

// app holds the connections and components shared by the subcommands.
type app struct {
	cfg        *config.Config
	pool       *pgxpool.Pool
	store      *database.Store
	broker     *redis.Client
	results    *redis.Client
	queue      *jobqueue.Queue
	status     *jobqueue.StatusStore
	dispatcher *core.Dispatcher
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	logDatabase(cfg.Database.URL)

	broker, err := jobqueue.NewClient(ctx, cfg.Redis.URL)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("job queue: %w", err)
	}

	results := broker
	if cfg.Redis.ResultEndpoint() != cfg.Redis.URL {
		results, err = jobqueue.NewClient(ctx, cfg.Redis.ResultEndpoint())
		if err != nil {
			_ = broker.Close()
			pool.Close()
			return nil, fmt.Errorf("job status store: %w", err)
		}
	}

	store := database.New(pool)
	return &app{
		cfg:        cfg,
		pool:       pool,
		store:      store,
		broker:     broker,
		results:    results,
		queue:      jobqueue.NewQueue(broker, cfg.Redis.QueueKey),
		status:     jobqueue.NewStatusStore(results, cfg.Redis.ResultTTL),
		dispatcher: core.NewDispatcher(store, store, nil, cfg.Webhook.Timeout),
	}, nil
}

func (a *app) Close() {
	if a.results != a.broker {
		_ = a.results.Close()
	}
	_ = a.broker.Close()
	a.pool.Close()
}

// service builds the request-facing service.
func (a *app) service(uploadDir string) *core.Service {
	return core.NewService(core.ServiceDeps{
		Products:   a.store,
		Webhooks:   a.store,
		Queue:      a.queue,
		Status:     a.status,
		Dispatcher: a.dispatcher,
	}, core.ServiceConfig{
		UploadDir:            uploadDir,
		MaxFileSize:          a.cfg.Upload.MaxFileSize,
		ChunkSize:            a.cfg.Import.ChunkSize,
		PollInterval:         a.cfg.Import.PollInterval,
		MaxConcurrentUploads: a.cfg.Upload.MaxConcurrent,
		UploadWait:           a.cfg.Upload.MaxWaitTime,
	})
}

// worker builds an import worker on the shared queue and status store.
func (a *app) worker() *core.Worker {
	return core.NewWorker(core.WorkerDeps{
		Queue:    a.queue,
		Status:   a.status,
		Importer: core.NewImporter(a.store, a.cfg.Import.ChunkSize),
		Notifier: a.dispatcher,
	}, a.cfg.Worker.Concurrency, a.cfg.Worker.DequeueTimeout)
}

// healthChecks probes every backing service.
func (a *app) healthChecks() []web.HealthCheck {
	checks := []web.HealthCheck{
		{Name: "database", Check: a.store.Ping},
		{Name: "redis", Check: func(ctx context.Context) error { return a.broker.Ping(ctx).Err() }},
	}
	if a.results != a.broker {
		checks = append(checks, web.HealthCheck{
			Name:  "redis_results",
			Check: func(ctx context.Context) error { return a.results.Ping(ctx).Err() },
		})
	}
	return checks
}

// logDatabase logs the database name without credentials.
func logDatabase(databaseURL string) {
	if u, err := url.Parse(databaseURL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
		return
	}
	slog.Info("connected to database")
}
