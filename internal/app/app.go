// Package app constructs the shared services once per process and wires
// them into the API router, the scheduler and the batch drivers.
package app

import (
	"context"
	"fmt"
	"log"

	"mls-property-api/internal/cache"
	"mls-property-api/internal/cleanup"
	"mls-property-api/internal/config"
	"mls-property-api/internal/database"
	"mls-property-api/internal/handlers"
	"mls-property-api/internal/history"
	"mls-property-api/internal/images"
	"mls-property-api/internal/imaging"
	"mls-property-api/internal/ingest"
	"mls-property-api/internal/lock"
	"mls-property-api/internal/migration"
	"mls-property-api/internal/mls"
	"mls-property-api/internal/objectstore"
	"mls-property-api/internal/scheduler"
	"mls-property-api/internal/search"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// App holds every long-lived service.
type App struct {
	Config    *config.Config
	Store     *database.Store
	Feed      *mls.Client
	Media     *mls.MediaFetcher
	Objects   *objectstore.Store
	Redis     *redis.Client
	Keyword   *search.SearchClient
	History   *history.Service
	Pipeline  *ingest.Pipeline
	Processor *images.Processor
	Gateway   *images.Gateway
	Migrator  *migration.Orchestrator
	Cleanup   *cleanup.Service
	Scheduler *scheduler.Scheduler
}

// Build validates cfg and connects every configured backend. Missing
// database or object storage settings fail here, before any work starts.
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &App{Config: cfg}

	store, err := database.Open(cfg.Database)
	if err != nil {
		return nil, err
	}
	if err := store.InitSchema(); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	a.Store = store

	objects, err := objectstore.New(cfg.Storage, cfg.Images.CacheControl)
	if err != nil {
		a.Close()
		return nil, err
	}
	if err := objects.EnsureBucket(ctx); err != nil {
		log.Printf("Warning: bucket check failed: %v", err)
	}
	a.Objects = objects

	var (
		locker     lock.Locker = lock.NewLocalLocker()
		imageCache cache.ImageCache
	)
	if cfg.Redis.URL != "" {
		client, err := cache.NewRedisClient(ctx, cfg.Redis.URL)
		if err != nil {
			log.Printf("Warning: Redis unavailable, using in-process locks and no proxy cache: %v", err)
		} else {
			a.Redis = client
			locker = lock.NewRedisLocker(client, cfg.Redis.GetLockTTL())
			imageCache = cache.NewRedisImageCache(client, cfg.Images.GetProxyCacheTTL(), cfg.Images.ProxyCacheMaxBytes)
		}
	}

	a.History = history.NewService(store.DB())
	a.Feed = mls.NewClient(mls.ConfigFrom(cfg))
	a.Media = mls.NewMediaFetcher(mls.MediaFetcherConfigFrom(cfg))

	ingestOpts := ingest.Options{
		Concurrency: cfg.Ingest.Concurrency,
		PageSize:    cfg.MLS.PageSize,
		Changes:     a.History,
	}
	if cfg.Search.Meilisearch.Host != "" {
		a.Keyword = search.NewSearchClient(cfg.Search.Meilisearch.Host, cfg.Search.Meilisearch.APIKey, cfg.Search.Meilisearch.Index)
		if err := a.Keyword.InitIndex(); err != nil {
			log.Printf("Warning: Failed to initialize search index: %v", err)
		}
		ingestOpts.Indexer = a.Keyword
	}
	a.Pipeline = ingest.NewPipeline(a.Feed, store, ingestOpts)

	a.Processor = images.NewProcessor(store, a.Media, objects, locker, imaging.Options{
		MaxDimension: cfg.Images.MaxDimension,
		Quality:      cfg.Images.WebPQuality,
	})
	proxy := mls.NewMediaFetcher(mls.MediaFetcherConfig{
		Timeout:   cfg.Images.GetProxyTimeout(),
		MaxBytes:  cfg.Images.MaxSourceBytes,
		UserAgent: cfg.MLS.UserAgent,
	})
	a.Gateway = images.NewGateway(store, proxy, imageCache)
	a.Migrator = migration.NewOrchestrator(store, a.Processor)

	if a.Keyword != nil {
		a.Cleanup = cleanup.NewService(store.DB(), objects, a.Keyword)
	} else {
		a.Cleanup = cleanup.NewService(store.DB(), objects, nil)
	}
	a.Scheduler = scheduler.NewScheduler(cfg, a.Pipeline, a.Migrator)

	return a, nil
}

// MigrationDefaults are the configured batch settings.
func (a *App) MigrationDefaults() migration.Options {
	return migration.Options{
		BatchSize:   a.Config.Migration.BatchSize,
		Concurrency: a.Config.Migration.Concurrency,
	}
}

// Router builds the HTTP API.
func (a *App) Router() *gin.Engine {
	var keyword *handlers.KeywordHandler
	if a.Keyword != nil {
		keyword = handlers.NewKeywordHandler(a.Keyword, a.Store)
	}

	return handlers.NewRouter(a.Config.Server.AllowedOrigins, handlers.Handlers{
		Properties:   handlers.NewPropertyHandler(a.Store, search.NewEngine(a.Store.DB()), a.History),
		Autocomplete: handlers.NewAutocompleteHandler(search.NewAutocompleter(a.Store.DB())),
		Images:       handlers.NewImageHandler(a.Gateway, a.Processor),
		Keyword:      keyword,
		Admin:        handlers.NewAdminHandler(a.Store, a.Scheduler, a.Cleanup, a.History, a.Feed, a.MigrationDefaults()),
	})
}

// Close releases connections.
func (a *App) Close() {
	if a.Scheduler != nil {
		a.Scheduler.Stop()
	}
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if a.Store != nil {
		_ = a.Store.Close()
	}
}
