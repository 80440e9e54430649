// Package app initializes and holds long-lived services, acting as the
// dependency injection container for the CLI commands.
package app

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/pubsub"
	gcsstorage "cloud.google.com/go/storage"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/webindexer/internal/api"
	"github.com/JakeFAU/webindexer/internal/classifier"
	"github.com/JakeFAU/webindexer/internal/clock/system"
	"github.com/JakeFAU/webindexer/internal/config"
	"github.com/JakeFAU/webindexer/internal/dispatcher"
	"github.com/JakeFAU/webindexer/internal/extract"
	collyfetcher "github.com/JakeFAU/webindexer/internal/fetcher/colly"
	"github.com/JakeFAU/webindexer/internal/id/uuid"
	"github.com/JakeFAU/webindexer/internal/indexer"
	"github.com/JakeFAU/webindexer/internal/logging"
	"github.com/JakeFAU/webindexer/internal/pipeline"
	pubsubpublisher "github.com/JakeFAU/webindexer/internal/publisher/pubsub"
	"github.com/JakeFAU/webindexer/internal/report"
	"github.com/JakeFAU/webindexer/internal/scoring"
	"github.com/JakeFAU/webindexer/internal/storage"
	"github.com/JakeFAU/webindexer/internal/storage/gcs"
	"github.com/JakeFAU/webindexer/internal/storage/local"
	"github.com/JakeFAU/webindexer/internal/storage/memory"
	"github.com/JakeFAU/webindexer/internal/storage/postgres"
	"github.com/JakeFAU/webindexer/internal/storage/sqlite"
	"github.com/JakeFAU/webindexer/internal/telemetry"
	"github.com/JakeFAU/webindexer/internal/textnorm"
	"github.com/JakeFAU/webindexer/internal/tfidf"
)

// App holds the shared services built from one Config.
type App struct {
	cfg       config.Config
	logger    *zap.Logger
	store     storage.Store
	publisher indexer.Publisher
	reports   *report.Writer
	clock     indexer.Clock
	ids       indexer.IDGenerator
	closers   []func() error
}

// Option customizes App construction.
type Option func(*App)

// WithPublisher overrides the publisher built from config.
func WithPublisher(p indexer.Publisher) Option {
	return func(a *App) { a.publisher = p }
}

// WithReportStore overrides the report destination built from config.
func WithReportStore(store indexer.BlobStore) Option {
	return func(a *App) { a.reports = report.New(store, a.cfg.Report.Prefix, logging.Component(a.logger, "report")) }
}

// New opens the configured store, publisher and report sink. It fails fast
// if any configured service cannot be initialized.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger, opts ...Option) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{cfg: cfg, logger: logger, clock: system.New(), ids: uuid.New()}

	tp, err := telemetry.InitTracerProvider(ctx, telemetry.ServiceName, "")
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}
	a.closers = append(a.closers, func() error { return tp.Shutdown(context.WithoutCancel(ctx)) })

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return nil, errors.Join(err, a.Close())
	}
	a.store = store
	a.closers = append(a.closers, store.Close)

	for _, opt := range opts {
		opt(a)
	}

	if a.publisher == nil && cfg.Publisher.Topic != "" {
		client, err := pubsub.NewClient(ctx, cfg.Publisher.ProjectID)
		if err != nil {
			return nil, errors.Join(fmt.Errorf("init pubsub client: %w", err), a.Close())
		}
		pub := pubsubpublisher.New(client)
		a.publisher = pub
		a.closers = append(a.closers, pub.Close)
		logger.Info("publishing indexed notifications", zap.String("topic", cfg.Publisher.Topic))
	}

	if a.reports == nil {
		blobs, err := a.openReportStore(ctx)
		if err != nil {
			return nil, errors.Join(err, a.Close())
		}
		if blobs != nil {
			a.reports = report.New(blobs, cfg.Report.Prefix, logging.Component(logger, "report"))
		}
	}
	return a, nil
}

func openStore(ctx context.Context, full config.Config, logger *zap.Logger) (storage.Store, error) {
	cfg := full.Storage
	switch cfg.Driver {
	case config.DriverPostgres:
		maxConns := full.PostgresMaxConns()
		logger.Info("connecting to postgres", zap.Int32("max_conns", maxConns))
		store, err := postgres.New(ctx, postgres.Config{DSN: cfg.DSN, MaxConns: maxConns})
		if err != nil {
			return nil, fmt.Errorf("init postgres store: %w", err)
		}
		return store, nil
	case config.DriverSQLite:
		logger.Info("opening sqlite store", zap.String("dir", cfg.SQLiteDir))
		store, err := sqlite.Open(cfg.SQLiteDir)
		if err != nil {
			return nil, fmt.Errorf("init sqlite store: %w", err)
		}
		return store, nil
	case config.DriverMemory:
		logger.Info("using in-memory store; nothing will be persisted")
		return memory.NewStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage driver: %s", cfg.Driver)
	}
}

func (a *App) openReportStore(ctx context.Context) (indexer.BlobStore, error) {
	switch {
	case a.cfg.Report.Dir != "":
		blobs, err := local.New(local.Config{BaseDir: a.cfg.Report.Dir})
		if err != nil {
			return nil, fmt.Errorf("init report dir: %w", err)
		}
		return blobs, nil
	case a.cfg.Report.Bucket != "":
		client, err := gcsstorage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("init gcs client: %w", err)
		}
		a.closers = append(a.closers, client.Close)
		blobs, err := gcs.New(client, gcs.Config{Bucket: a.cfg.Report.Bucket})
		if err != nil {
			return nil, fmt.Errorf("init report bucket: %w", err)
		}
		return blobs, nil
	default:
		return nil, nil
	}
}

// Store returns the configured store.
func (a *App) Store() storage.Store {
	return a.store
}

// Logger returns the shared logger.
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// Migrate creates the schema of the configured store.
func (a *App) Migrate(ctx context.Context) error {
	if err := a.store.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	a.logger.Info("schema ready", zap.String("driver", a.cfg.Storage.Driver))
	return nil
}

// NewDispatcher wires the per-URL pipeline and the admission pool.
func (a *App) NewDispatcher() *dispatcher.Dispatcher {
	norm := textnorm.New()
	fetcher := collyfetcher.New(collyfetcher.Config{
		UserAgent:    a.cfg.Fetch.UserAgent,
		Timeout:      a.cfg.FetchTimeout(),
		MaxBodyBytes: a.cfg.Fetch.MaxBodyBytes,
	})
	pipe := pipeline.New(
		a.store,
		classifier.New(fetcher, uint64(a.cfg.Fetch.MaxBodyBytes), logging.Component(a.logger, "classifier")),
		fetcher,
		extract.New(a.ids, norm),
		scoring.New(a.ids, norm, scoring.Options{
			TopK:             a.cfg.Scoring.TopK,
			TitleBoost:       int32(a.cfg.Scoring.TitleBoost),
			DescriptionBoost: int32(a.cfg.Scoring.DescriptionBoost),
		}),
		a.publisher,
		a.clock,
		pipeline.Config{FetchTimeout: a.cfg.FetchTimeout(), Topic: a.cfg.Publisher.Topic},
		logging.Component(a.logger, "pipeline"),
	)
	return dispatcher.New(pipe, dispatcher.Config{Concurrency: a.cfg.Crawl.Concurrency}, a.clock, a.ids,
		logging.Component(a.logger, "dispatcher"))
}

// Crawl indexes urls, serving the ops endpoints while it runs when
// server.addr is set, and writes the run report when a sink is configured.
func (a *App) Crawl(ctx context.Context, urls []string) (indexer.Summary, error) {
	if err := a.Migrate(ctx); err != nil {
		return indexer.Summary{}, err
	}
	d := a.NewDispatcher()

	var summary indexer.Summary
	serverCtx, stopServer := context.WithCancel(ctx)
	defer stopServer()

	g, gctx := errgroup.WithContext(serverCtx)
	if a.cfg.Server.Addr != "" {
		srv := api.NewServer(d, a.store, logging.Component(a.logger, "api"))
		g.Go(func() error { return srv.ListenAndServe(gctx, a.cfg.Server.Addr) })
	}
	g.Go(func() error {
		defer stopServer()
		summary = d.Run(ctx, urls)
		return nil
	})
	if err := g.Wait(); err != nil {
		return summary, err
	}

	if a.reports != nil {
		if _, err := a.reports.Write(context.WithoutCancel(ctx), summary); err != nil {
			return summary, fmt.Errorf("write run report: %w", err)
		}
	}
	return summary, nil
}

// RebuildScores recomputes the TF-IDF table.
func (a *App) RebuildScores(ctx context.Context) (int, error) {
	if err := a.Migrate(ctx); err != nil {
		return 0, err
	}
	agg := tfidf.New(a.store, a.ids, tfidf.Config{BatchSize: a.cfg.TFIDF.BatchSize}, logging.Component(a.logger, "tfidf"))
	n, err := agg.Rebuild(ctx)
	if err != nil {
		return n, fmt.Errorf("rebuild scores: %w", err)
	}
	return n, nil
}

// Close releases every service in reverse order of construction.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}
