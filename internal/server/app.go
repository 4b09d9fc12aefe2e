// Package server builds the announcer's dependencies from configuration and runs it.
package server

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/JakeFAU/predb-announcer/internal/api"
	"github.com/JakeFAU/predb-announcer/internal/catalog/srrdb"
	"github.com/JakeFAU/predb-announcer/internal/clock/system"
	"github.com/JakeFAU/predb-announcer/internal/config"
	"github.com/JakeFAU/predb-announcer/internal/dedup"
	collyfetcher "github.com/JakeFAU/predb-announcer/internal/fetcher/colly"
	"github.com/JakeFAU/predb-announcer/internal/hash/sha256"
	"github.com/JakeFAU/predb-announcer/internal/id/uuid"
	"github.com/JakeFAU/predb-announcer/internal/logging"
	"github.com/JakeFAU/predb-announcer/internal/metadata"
	"github.com/JakeFAU/predb-announcer/internal/notify"
	"github.com/JakeFAU/predb-announcer/internal/pipeline"
	"github.com/JakeFAU/predb-announcer/internal/publish"
	memorypublisher "github.com/JakeFAU/predb-announcer/internal/publisher/memory"
	gcppublisher "github.com/JakeFAU/predb-announcer/internal/publisher/pubsub"
	"github.com/JakeFAU/predb-announcer/internal/release"
	"github.com/JakeFAU/predb-announcer/internal/render"
	"github.com/JakeFAU/predb-announcer/internal/social/twitter"
	gcsstorage "github.com/JakeFAU/predb-announcer/internal/storage/gcs"
	localstorage "github.com/JakeFAU/predb-announcer/internal/storage/local"
	memoryStorage "github.com/JakeFAU/predb-announcer/internal/storage/memory"
	"github.com/JakeFAU/predb-announcer/internal/storage/multi"
	pgstore "github.com/JakeFAU/predb-announcer/internal/storage/postgres"
	sqlitestore "github.com/JakeFAU/predb-announcer/internal/storage/sqlite"
	"github.com/JakeFAU/predb-announcer/internal/storage/zipline"
)

// Options carries command-line overrides.
type Options struct {
	// Once forces a single pass with cold-start suppression disabled.
	Once bool
}

// App contains the application's dependencies.
type App struct {
	cfg       config.Config
	logger    *zap.Logger
	poller    *pipeline.Poller
	apiServer *api.Server

	storage       *storage.Client
	pubsubClient  *pubsub.Client
	pubsubTopic   *gcppublisher.Publisher
	postgresStore *pgstore.ReleaseStore
	sqliteStore   *sqlitestore.ReleaseStore
}

// Run starts the poller (and the HTTP server when enabled) and blocks until the
// poller returns or the process is signalled.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serverDone := make(chan error, 1)
	if a.apiServer != nil {
		go func() {
			serverDone <- a.apiServer.ListenAndServe(ctx)
		}()
	} else {
		serverDone <- nil
	}

	err := a.poller.Run(ctx)
	stop()
	if serr := <-serverDone; serr != nil {
		a.logger.Error("http server error", zap.Error(serr))
	}
	if errors.Is(err, context.Canceled) {
		a.logger.Info("shutdown initiated")
		return nil
	}
	return err
}

// Close releases every client the App opened.
func (a *App) Close() {
	if a.pubsubTopic != nil {
		a.pubsubTopic.Stop()
	}
	if a.pubsubClient != nil {
		if err := a.pubsubClient.Close(); err != nil {
			a.logger.Warn("pubsub client close failed", zap.Error(err))
		}
	}
	if a.storage != nil {
		if err := a.storage.Close(); err != nil {
			a.logger.Warn("gcs client close failed", zap.Error(err))
		}
	}
	if a.postgresStore != nil {
		a.postgresStore.Close()
	}
	if a.sqliteStore != nil {
		if err := a.sqliteStore.Close(); err != nil {
			a.logger.Warn("sqlite store close failed", zap.Error(err))
		}
	}
	a.logger.Info("shutdown complete")
	_ = a.logger.Sync()
}

// Build creates the application's dependencies.
func Build(ctx context.Context, cfg config.Config, opts Options) (*App, error) {
	logger, err := logging.New(cfg.Logging.Development, cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("logger init failed: %w", err)
	}
	zap.ReplaceGlobals(logger)
	return build(ctx, cfg, opts, logger)
}

func build(ctx context.Context, cfg config.Config, opts Options, logger *zap.Logger) (*App, error) {
	app := &App{cfg: cfg, logger: logger}
	singlePass := cfg.SinglePass() || opts.Once
	logger.Info("building application dependencies",
		zap.String("renderer", cfg.Render.Renderer),
		zap.String("storage", cfg.Storage.Backend),
		zap.Bool("persist", cfg.Persist.Enabled),
		zap.Bool("single_pass", singlePass),
	)

	clock := system.New()
	notifier := notify.New(notify.Config{
		Discord: notify.DiscordConfig{Enabled: cfg.Discord.Enabled, Webhook: cfg.Discord.Webhook},
		Ntfy: notify.NtfyConfig{
			Enabled:     cfg.Ntfy.Enabled,
			Server:      cfg.Ntfy.Server,
			Token:       cfg.Ntfy.Token,
			Topic:       cfg.Ntfy.Topic,
			PublicTopic: cfg.Ntfy.PublicTopic,
		},
		Timeout: cfg.HTTPTimeout(),
	}, nil, clock, logger.Named("notify"))

	fetcher := collyfetcher.New(collyfetcher.Config{
		UserAgent: cfg.HTTP.UserAgent,
		Timeout:   cfg.HTTPTimeout(),
		Debug:     cfg.Common.Debug,
	}, notifier, logger.Named("fetch"))

	catalog, err := srrdb.New(srrdb.Config{
		ScanURL:    cfg.Catalog.ScanURL,
		DetailsURL: cfg.Catalog.DetailsURL,
		FileURL:    cfg.Catalog.FileURL,
	}, fetcher)
	if err != nil {
		return nil, fmt.Errorf("catalog init failed: %w", err)
	}

	links := metadata.Links{
		Thumbnail: cfg.Links.ThumbnailURL,
		Tinfoil:   cfg.Links.TinfoilURL,
		EShop:     cfg.Links.EShopURL,
	}
	store := metadata.NewStore(catalog)
	extractor := metadata.NewExtractor(store, catalog, fetcher, links, logger.Named("metadata"))

	renderer, err := render.New(render.Config{
		Kind:           cfg.RenderKind(),
		FontPath:       cfg.Render.FontPath,
		FontSize:       cfg.Render.FontSize,
		FontWidth:      cfg.Render.FontWidth,
		LineHeight:     cfg.Render.LineHeight,
		Background:     cfg.Render.Background,
		Foreground:     cfg.Render.Foreground,
		JPEGQuality:    cfg.Render.JPEGQuality,
		AnsiloveBinary: cfg.Render.AnsiloveBinary,
		InfektBinary:   cfg.Render.InfektBinary,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("renderer init failed: %w", err)
	}

	blobs, err := setupStorage(ctx, app)
	if err != nil {
		app.Close()
		return nil, err
	}

	social, err := twitter.New(twitter.Config{
		ConsumerKey:    cfg.Twitter.ConsumerKey,
		ConsumerSecret: cfg.Twitter.ConsumerSecret,
		AccessToken:    cfg.Twitter.AccessToken,
		AccessSecret:   cfg.Twitter.AccessTokenSecret,
		Username:       cfg.Twitter.Username,
		Timeout:        cfg.HTTPTimeout(),
	}, nil)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("twitter client init failed: %w", err)
	}

	publishOpts := []publish.Option{publish.WithLinks(links), publish.WithTimeout(cfg.HTTPTimeout())}
	records, err := setupPersistence(ctx, app, clock)
	if err != nil {
		app.Close()
		return nil, err
	}
	if records != nil {
		publishOpts = append(publishOpts, publish.WithRecordStore(records))
	}
	publisher := publish.New(blobs, social, fetcher, notifier, logger, publishOpts...)

	app.poller = pipeline.New(
		catalog,
		dedup.New(sha256.New(), !singlePass),
		store,
		extractor,
		renderer,
		publisher,
		notifier,
		clock,
		pipeline.Config{
			ReleaseDelay: cfg.Common.ReleaseDelay,
			CycleDelay:   cfg.Common.CycleDelay,
			SinglePass:   singlePass,
		},
		logger,
	)

	if cfg.Server.Enabled {
		var apiOpts []api.Option
		if app.sqliteStore != nil {
			apiOpts = append(apiOpts, api.WithArchive(app.sqliteStore))
		}
		app.apiServer = api.NewServer(app.poller, api.Config{Addr: fmt.Sprintf(":%d", cfg.Server.Port)}, logger, apiOpts...)
	}
	return app, nil
}

func setupStorage(ctx context.Context, app *App) (release.BlobStore, error) {
	cfg := app.cfg.Storage
	switch cfg.Backend {
	case config.StorageZipline:
		app.logger.Info("using zipline storage backend")
		blobs, err := zipline.New(zipline.Config{
			URL:     cfg.Zipline.URL,
			Token:   cfg.Zipline.Token,
			Timeout: app.cfg.HTTPTimeout(),
		}, nil)
		if err != nil {
			return nil, fmt.Errorf("zipline blob store init failed: %w", err)
		}
		return blobs, nil
	case config.StorageGCS:
		app.logger.Info("using GCS storage backend", zap.String("bucket", cfg.GCS.Bucket))
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("gcs client init failed: %w", err)
		}
		app.storage = client
		blobs, err := gcsstorage.New(client, gcsstorage.Config{
			Bucket:        cfg.GCS.Bucket,
			Prefix:        cfg.GCS.Prefix,
			PublicBaseURL: cfg.GCS.PublicBaseURL,
		})
		if err != nil {
			return nil, fmt.Errorf("gcs blob store init failed: %w", err)
		}
		return blobs, nil
	case config.StorageLocal:
		app.logger.Info("using local storage backend", zap.String("path", cfg.Local.BaseDir))
		blobs, err := localstorage.New(localstorage.Config{
			BaseDir:   cfg.Local.BaseDir,
			PublicURL: cfg.Local.PublicURL,
		})
		if err != nil {
			return nil, fmt.Errorf("local blob store init failed: %w", err)
		}
		return blobs, nil
	default:
		app.logger.Info("using in-memory storage backend")
		return memoryStorage.NewBlobStore(), nil
	}
}

func setupPersistence(ctx context.Context, app *App, clock release.Clock) (release.RecordStore, error) {
	cfg := app.cfg.Persist
	if !cfg.Enabled {
		app.logger.Info("record persistence disabled")
		return nil, nil
	}
	ids := uuid.New()
	var sinks []multi.Sink
	for _, backend := range cfg.Backends {
		switch backend {
		case config.PersistPostgres:
			store, err := pgstore.New(ctx, pgstore.Config{
				DSN:             cfg.Postgres.DSN,
				Table:           cfg.Postgres.Table,
				MaxConns:        cfg.Postgres.MaxConns,
				MinConns:        cfg.Postgres.MinConns,
				MaxConnLifetime: cfg.Postgres.MaxConnLifetime,
			}, ids, clock)
			if err != nil {
				return nil, fmt.Errorf("postgres store init failed: %w", err)
			}
			app.postgresStore = store
			if err := store.EnsureSchema(ctx); err != nil {
				return nil, fmt.Errorf("postgres schema init failed: %w", err)
			}
			sinks = append(sinks, multi.Sink{Name: backend, Store: store})
			app.logger.Info("postgres record store initialized", zap.String("table", cfg.Postgres.Table))
		case config.PersistSQLite:
			store, err := sqlitestore.Open(ctx, cfg.SQLite.Path, ids, clock)
			if err != nil {
				return nil, fmt.Errorf("sqlite store init failed: %w", err)
			}
			app.sqliteStore = store
			sinks = append(sinks, multi.Sink{Name: backend, Store: store})
			app.logger.Info("sqlite record store initialized", zap.String("path", cfg.SQLite.Path))
		case config.PersistPubSub:
			client, err := pubsub.NewClient(ctx, cfg.PubSub.ProjectID)
			if err != nil {
				return nil, fmt.Errorf("pubsub client init failed: %w", err)
			}
			app.pubsubClient = client
			app.pubsubTopic = gcppublisher.New(client.Topic(cfg.PubSub.TopicName))
			sinks = append(sinks, multi.Sink{Name: backend, Store: app.pubsubTopic})
			app.logger.Info("Pub/Sub record stream initialized",
				zap.String("project", cfg.PubSub.ProjectID),
				zap.String("topic", cfg.PubSub.TopicName),
			)
		case config.PersistMemory:
			app.logger.Warn("using in-memory record store, records are lost on exit")
			sinks = append(sinks, multi.Sink{Name: backend, Store: memorypublisher.New()})
		default:
			return nil, fmt.Errorf("unknown persist backend %q", backend)
		}
	}
	if len(sinks) == 1 {
		return sinks[0].Store, nil
	}
	return multi.New(app.logger.Named("persist"), sinks...), nil
}
