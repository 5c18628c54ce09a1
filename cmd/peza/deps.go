package main

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/NathanBvumbwe/peza-ganyu/internal/archive"
	"github.com/NathanBvumbwe/peza-ganyu/internal/categorize"
	"github.com/NathanBvumbwe/peza-ganyu/internal/config"
	"github.com/NathanBvumbwe/peza-ganyu/internal/db"
	"github.com/NathanBvumbwe/peza-ganyu/internal/embedding"
	"github.com/NathanBvumbwe/peza-ganyu/internal/events"
	"github.com/NathanBvumbwe/peza-ganyu/internal/fetch"
	"github.com/NathanBvumbwe/peza-ganyu/internal/ingestion"
	"github.com/NathanBvumbwe/peza-ganyu/internal/llm"
	"github.com/NathanBvumbwe/peza-ganyu/internal/observability"
	"github.com/NathanBvumbwe/peza-ganyu/internal/pipeline"
	"github.com/NathanBvumbwe/peza-ganyu/internal/ranking"
	"github.com/NathanBvumbwe/peza-ganyu/internal/recommend"
	"github.com/NathanBvumbwe/peza-ganyu/internal/sources"
)

// app holds the wired pipeline for one command invocation.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	db     *db.DB
	driver *recommend.Driver
	runner *pipeline.Runner

	closers []func() error
}

// newApp loads the configuration and wires every component. onProgress may
// be nil.
func newApp(ctx context.Context, onProgress pipeline.ProgressCallback) (a *app, err error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("database URL is required (set DATABASE_URL or --database-url)")
	}

	logger, err := observability.NewLogger(cfg.Log.JSON, cfg.Log.Debug)
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	a = &app{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	a.db = database
	a.closers = append(a.closers, func() error { database.Close(); return nil })

	adapters, err := sources.Build(cfg.Scrape.Sources, cfg.Scrape.Feeds)
	if err != nil {
		return nil, err
	}
	fetcher, err := newFetcher(cfg.Scrape)
	if err != nil {
		return nil, err
	}
	orchestrator := ingestion.NewOrchestrator(database, ingestion.Options{
		Source: sources.Config{
			Fetcher:      fetcher,
			RequestDelay: cfg.Scrape.RequestDelay,
			ListRetry:    fetch.RetryPolicy{MaxAttempts: cfg.Scrape.MaxAttempts, Delay: cfg.Scrape.ListRetryDelay},
			DetailRetry:  fetch.RetryPolicy{MaxAttempts: cfg.Scrape.MaxAttempts, Delay: cfg.Scrape.DetailRetryDelay},
			Logger:       logger,
		},
		Concurrency: cfg.Scrape.Concurrency,
		Logger:      logger,
	})

	classifier, err := a.newClassifier(ctx)
	if err != nil {
		return nil, err
	}
	stage := categorize.NewStage(database, classifier, logger)

	embedder, err := a.newEmbedder(ctx)
	if err != nil {
		return nil, err
	}

	publisher := a.newPublisher()

	archiver, err := a.newArchiver(ctx)
	if err != nil {
		return nil, err
	}

	a.driver = recommend.NewDriver(database, ranking.NewMatcher(embedder), recommend.Options{
		Concurrency: cfg.Match.Concurrency,
		Publisher:   publisher,
		Logger:      logger,
	})
	a.runner = pipeline.NewRunner(orchestrator, stage, a.driver, pipeline.Options{
		Adapters:   adapters,
		TopN:       cfg.TopN,
		Archiver:   archiver,
		Logger:     logger,
		OnProgress: onProgress,
	})

	return a, nil
}

func newFetcher(cfg config.ScrapeConfig) (fetch.Fetcher, error) {
	opts := &fetch.Options{
		Timeout:   cfg.Timeout,
		UserAgent: cfg.UserAgent,
		Proxy:     cfg.Proxy,
	}
	if cfg.UseBrowser {
		return fetch.NewBrowser(opts), nil
	}
	return fetch.NewHTTP(opts)
}

func (a *app) newClassifier(ctx context.Context) (categorize.Categorizer, error) {
	switch a.cfg.Categorizer.Provider {
	case config.ProviderGemini:
		client, err := llm.NewClient(ctx, llm.DefaultGeminiConfig(), a.cfg.Categorizer.APIKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create categorizer client: %w", err)
		}
		a.closers = append(a.closers, client.Close)
		return categorize.NewGeminiClassifier(client, a.cfg.Categorizer.BatchSize, a.logger), nil
	default:
		return categorize.NewKeywordClassifier(), nil
	}
}

// newEmbedder wraps the configured embedder in the Redis cache when one is
// reachable.
func (a *app) newEmbedder(ctx context.Context) (embedding.Embedder, error) {
	lazy, err := embedding.FromConfig(a.cfg.Embedding, a.logger)
	if err != nil {
		return nil, err
	}
	if a.cfg.Redis.URL == "" {
		return lazy, nil
	}

	rc, err := embedding.NewRedisClient(ctx, a.cfg.Redis.URL)
	if err != nil {
		a.logger.Warn("embedding cache unavailable, continuing without it", zap.Error(err))
		return lazy, nil
	}
	a.closers = append(a.closers, rc.Close)
	a.logger.Info("embedding cache enabled", zap.Duration("ttl", a.cfg.Redis.TTL))
	return embedding.NewCached(lazy, embedding.NewRedisStore(rc, a.cfg.Redis.TTL), a.logger), nil
}

// newPublisher falls back to events.Nop when the brokers are unreachable;
// match events are best effort.
func (a *app) newPublisher() events.Publisher {
	if len(a.cfg.Kafka.Brokers) == 0 {
		return events.Nop{}
	}
	p, err := events.NewKafkaPublisher(a.cfg.Kafka.Brokers, a.cfg.Kafka.Topic)
	if err != nil {
		a.logger.Warn("match events unavailable, continuing without them",
			zap.Strings("brokers", a.cfg.Kafka.Brokers), zap.Error(err))
		return events.Nop{}
	}
	a.closers = append(a.closers, p.Close)
	return p
}

func (a *app) newArchiver(ctx context.Context) (archive.Archiver, error) {
	if a.cfg.Archive.Bucket == "" {
		return archive.Nop{}, nil
	}
	return archive.NewS3Archiver(ctx, a.cfg.Archive)
}

// Close releases every connection in reverse order of creation.
func (a *app) Close() {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		a.logger.Warn("error during shutdown", zap.Error(err))
	}
	_ = a.logger.Sync()
}
