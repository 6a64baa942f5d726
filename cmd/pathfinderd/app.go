package main

import (
	"context"
	"fmt"
	"time"

	"github.com/dd0wney/cluso-pathfinder/pkg/api"
	"github.com/dd0wney/cluso-pathfinder/pkg/api/middleware"
	"github.com/dd0wney/cluso-pathfinder/pkg/config"
	"github.com/dd0wney/cluso-pathfinder/pkg/events"
	"github.com/dd0wney/cluso-pathfinder/pkg/health"
	"github.com/dd0wney/cluso-pathfinder/pkg/jobs"
	"github.com/dd0wney/cluso-pathfinder/pkg/logging"
	"github.com/dd0wney/cluso-pathfinder/pkg/metrics"
	"github.com/dd0wney/cluso-pathfinder/pkg/storage"
)

const badgerGCInterval = 5 * time.Minute

// app owns every long-lived component of the daemon
type app struct {
	graph     storage.GraphStore
	jobStore  jobs.Store
	queue     *jobs.Queue
	publisher *events.Publisher
	api       *api.Server
	logger    logging.Logger
}

func newApp(ctx context.Context, cfg *config.Config, logger logging.Logger) (_ *app, err error) {
	a := &app{logger: logger}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	a.graph, err = openGraphStore(ctx, cfg.Store, logger)
	if err != nil {
		return nil, err
	}

	a.jobStore, err = openJobStore(cfg, logger)
	if err != nil {
		return nil, err
	}

	if cfg.Events.NATSURL != "" {
		// Events are best effort; the API works without them
		a.publisher, err = events.Connect(cfg.Events.NATSURL, cfg.Events.Subject, logger)
		if err != nil {
			logger.Warn("job events disabled", logging.Error(err))
			a.publisher, err = nil, nil
		}
	}

	registry := metrics.NewRegistry()

	opts := []jobs.Option{
		jobs.WithWorkers(cfg.Jobs.Workers),
		jobs.WithBacklog(cfg.Jobs.Backlog),
		jobs.WithProcessingDelay(cfg.Jobs.ProcessingDelay),
		jobs.WithRetention(cfg.Jobs.Retention, cfg.Jobs.JanitorInterval),
		jobs.WithUnknownAsPending(cfg.Jobs.UnknownAsPending),
		jobs.WithLogger(logger),
		jobs.WithMetrics(registry),
	}
	if a.publisher != nil {
		opts = append(opts, jobs.WithPublisher(a.publisher))
	}

	a.queue, err = jobs.NewQueue(a.graph, a.jobStore, opts...)
	if err != nil {
		return nil, err
	}

	trusted, err := middleware.ParseTrustedProxies(cfg.Server.TrustedProxies)
	if err != nil {
		return nil, err
	}

	a.api = api.NewServer(a.graph, a.queue, api.Config{
		Backend:        cfg.Store.Backend,
		MaxBodyBytes:   cfg.Server.MaxBodyBytes,
		RateLimit:      cfg.Server.RateLimit,
		RateBurst:      cfg.Server.RateBurst,
		TrustedProxies: trusted,
		Logger:         logger,
		Metrics:        registry,
	})

	if a.publisher != nil {
		a.api.HealthChecker().RegisterCheck("event_bus", health.EventBusCheck(a.publisher))
	}

	return a, nil
}

func openGraphStore(ctx context.Context, cfg config.StoreConfig, logger logging.Logger) (storage.GraphStore, error) {
	switch cfg.Backend {
	case config.BackendPostgres:
		pgCfg := storage.DefaultPGConfig(cfg.DatabaseURL)
		pgCfg.Logger = logger
		store, err := storage.NewPGStore(ctx, pgCfg)
		if err != nil {
			return nil, fmt.Errorf("open postgres graph store: %w", err)
		}
		return store, nil

	default:
		store, err := storage.NewGraphStorageWithConfig(storage.StorageConfig{
			DataDir:     cfg.DataDir,
			CompressWAL: cfg.CompressWAL,
			SyncWrites:  cfg.SyncWrites,
			Logger:      logger,
		})
		if err != nil {
			return nil, fmt.Errorf("open graph store: %w", err)
		}
		return store, nil
	}
}

func openJobStore(cfg *config.Config, logger logging.Logger) (jobs.Store, error) {
	if cfg.Jobs.Store != config.BackendBadger {
		return jobs.NewMemoryStore(), nil
	}

	store, err := jobs.NewBadgerStore(jobs.BadgerConfig{
		Path:       cfg.Jobs.BadgerDir,
		SyncWrites: cfg.Store.SyncWrites,
		TTL:        jobs.BadgerTTL(cfg.Jobs.Retention, cfg.Jobs.JanitorInterval),
		GCInterval: badgerGCInterval,
		Logger:     logger,
	})
	if err != nil {
		return nil, fmt.Errorf("open badger job store: %w", err)
	}
	return store, nil
}

// Close stops intake first, then releases stores in dependency order
func (a *app) Close() {
	if a.api != nil {
		a.api.Close()
	}
	if a.queue != nil {
		a.queue.Close()
	}
	if a.jobStore != nil {
		if err := a.jobStore.Close(); err != nil {
			a.logger.Error("failed to close job store", logging.Error(err))
		}
	}
	if a.publisher != nil {
		a.publisher.Close()
	}
	if a.graph != nil {
		if err := a.graph.Close(); err != nil {
			a.logger.Error("failed to close graph store", logging.Error(err))
		}
	}
}
