// Package app wires configuration, storage backends and services into a runnable application.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-idcard/internal/capture"
	"github.com/noah-isme/sma-idcard/internal/catalog"
	"github.com/noah-isme/sma-idcard/internal/handler"
	"github.com/noah-isme/sma-idcard/internal/repository"
	"github.com/noah-isme/sma-idcard/internal/service"
	"github.com/noah-isme/sma-idcard/pkg/cache"
	"github.com/noah-isme/sma-idcard/pkg/config"
	"github.com/noah-isme/sma-idcard/pkg/database"
	"github.com/noah-isme/sma-idcard/pkg/jobs"
	"github.com/noah-isme/sma-idcard/pkg/storage"
)

type kvStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetMany(ctx context.Context, values map[string][]byte) error
}

// App holds the assembled services.
type App struct {
	Config     *config.Config
	Logger     *zap.Logger
	Metrics    *service.MetricsService
	Records    *service.RecordService
	Templates  *service.TemplateService
	Cards      *service.CardService
	Photos     *service.PhotoService
	Exports    *service.ExportService
	ExportJobs *service.ExportJobService

	queue   *jobs.Queue
	ready   handler.ReadinessCheck
	closers []func() error
	cancel  context.CancelFunc
}

// New builds the application for the configured store backend.
func New(cfg *config.Config, logr *zap.Logger) (*App, error) {
	if logr == nil {
		logr = zap.NewNop()
	}
	a := &App{Config: cfg, Logger: logr, Metrics: service.NewMetricsService()}

	store, err := a.openStore(context.Background())
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	cat, err := catalog.Load()
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("load template catalogue: %w", err)
	}

	photoStore, err := storage.NewLocalStorage(cfg.Photos.StorageDir)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("init photo storage: %w", err)
	}
	exportStore, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("init export storage: %w", err)
	}

	a.Records = service.NewRecordService(store, validator.New(), a.Metrics, logr, service.RecordServiceConfig{})
	a.Templates = service.NewTemplateService(cat, store, a.Metrics, logr)
	a.Cards = service.NewCardService(a.Records, a.Templates, logr)
	a.Photos = service.NewPhotoService(photoStore, logr, service.PhotoServiceConfig{
		MaxFileSize:  cfg.Photos.MaxFileSizeBytes,
		AllowedMIMEs: cfg.Photos.AllowedMIMEs,
	})

	rasterizer, err := capture.NewRasterizer(capture.Options{Width: cfg.Card.Width, QRSize: cfg.Card.QRSize}, a.Photos)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("init rasterizer: %w", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
	a.Exports = service.NewExportService(a.Cards, rasterizer, a.Records, exportStore, signer, a.Metrics, logr, service.ExportConfig{
		APIPrefix:       cfg.APIPrefix,
		ResultTTL:       cfg.Exports.SignedURLTTL,
		CleanupInterval: cfg.Exports.CleanupInterval,
	}, nil, nil, nil)

	a.ExportJobs = service.NewExportJobService(a.Cards, a.Exports, nil, logr)
	a.queue = jobs.NewQueue("card-exports", a.ExportJobs.Handle, jobs.QueueConfig{
		Workers:    cfg.Exports.WorkerConcurrency,
		MaxRetries: 0,
		Logger:     logr,
	})
	a.ExportJobs.AttachQueue(a.queue)

	return a, nil
}

func (a *App) openStore(ctx context.Context) (kvStore, error) {
	cfg := a.Config
	switch cfg.Store.Backend {
	case config.StoreMemory:
		a.ready = func(context.Context) error { return nil }
		return repository.NewMemoryKVRepository(), nil
	case config.StoreRedis:
		client, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		a.closers = append(a.closers, client.Close)
		a.ready = func(ctx context.Context) error { return client.Ping(ctx).Err() }
		return repository.NewRedisKVRepository(client, cfg.Redis.KeyPrefix), nil
	case config.StorePostgres:
		db, err := database.NewPostgres(cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		return a.sqlStore(ctx, db)
	case config.StoreSQLite, "":
		db, err := database.NewSQLite(cfg.SQLite)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		return a.sqlStore(ctx, db)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

func (a *App) sqlStore(ctx context.Context, db *sqlx.DB) (kvStore, error) {
	a.closers = append(a.closers, db.Close)
	a.ready = db.PingContext
	repo := repository.NewSQLKVRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure kv schema: %w", err)
	}
	return repo, nil
}

// Router builds the HTTP engine over the assembled services.
func (a *App) Router() *gin.Engine {
	return handler.NewRouter(a.Config, a.Logger, a.Metrics, handler.Handlers{
		Students:  handler.NewStudentHandler(a.Records, a.Exports),
		Photos:    handler.NewPhotoHandler(a.Photos),
		Templates: handler.NewTemplateHandler(a.Templates),
		Cards:     handler.NewCardHandler(a.Cards, a.Exports, a.ExportJobs),
		Exports:   handler.NewExportHandler(a.ExportJobs, a.Exports),
		Metrics:   handler.NewMetricsHandler(a.Metrics, a.Ready),
	})
}

// Start launches the export workers and the cleanup loops for artefacts and settled jobs.
func (a *App) Start(ctx context.Context) {
	ctx, a.cancel = context.WithCancel(ctx)
	a.queue.Start(ctx)
	a.Exports.StartCleanup(ctx)
	a.ExportJobs.StartCleanup(ctx, a.Config.Exports.CleanupInterval, a.Config.Exports.SignedURLTTL)
}

// Ready reports whether the store backend is reachable.
func (a *App) Ready(ctx context.Context) error {
	if a.ready == nil {
		return nil
	}
	return a.ready(ctx)
}

// Close stops background work, fails exports that never ran and releases backend connections.
func (a *App) Close() error {
	if a.cancel != nil {
		a.cancel()
	}
	if a.queue != nil {
		if unhandled := a.queue.Stop(); len(unhandled) > 0 {
			a.ExportJobs.Abandon(unhandled, "export cancelled: shutting down")
		}
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
