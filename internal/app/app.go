package app

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/yungbote/cookgpt-backend/internal/cache"
	"github.com/yungbote/cookgpt-backend/internal/data/db"
	"github.com/yungbote/cookgpt-backend/internal/data/repos"
	"github.com/yungbote/cookgpt-backend/internal/generation/prompts"
	apphttp "github.com/yungbote/cookgpt-backend/internal/http"
	"github.com/yungbote/cookgpt-backend/internal/modules/chat"
	"github.com/yungbote/cookgpt-backend/internal/modules/chat/stream"
	"github.com/yungbote/cookgpt-backend/internal/observability"
	"github.com/yungbote/cookgpt-backend/internal/platform/logger"
	"github.com/yungbote/cookgpt-backend/internal/tasks"
	"github.com/yungbote/cookgpt-backend/internal/temporalx"
)

type App struct {
	Log      *logger.Logger
	Cfg      Config
	Temporal temporalx.Config
	Otel     observability.OtelConfig
	DB       *gorm.DB
	Clients  *Clients
	Metrics  *observability.Metrics
	Repos    repos.Set
	Store    *chat.Store
	Sender   *chat.Sender
	Queue    tasks.Queue
	Services Services
	Server   *apphttp.Server

	pg           *db.PostgresService
	local        *tasks.LocalQueue
	shutdownOtel func(context.Context) error
}

// New connects every dependency, migrates the schema and wires the HTTP
// server. The returned App must be closed.
func New(ctx context.Context, log *logger.Logger) (_ *App, err error) {
	log.Info("Loading environment variables...")
	cfg, err := LoadConfig(log)
	if err != nil {
		return nil, err
	}
	a := &App{Log: log, Cfg: cfg, Temporal: temporalx.LoadConfig(log), Otel: observability.LoadOtelConfig(log)}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	a.shutdownOtel = observability.InitOTel(ctx, log, a.Otel)

	a.pg, err = db.NewPostgresService(log)
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}
	if err := a.pg.AutoMigrateAll(); err != nil {
		return nil, fmt.Errorf("automigrate: %w", err)
	}
	a.DB = a.pg.DB()

	a.Clients, err = wireClients(ctx, log, cfg, a.Temporal)
	if err != nil {
		return nil, err
	}
	if cfg.MetricsEnabled {
		a.Metrics = observability.NewMetrics()
	}

	if err := a.wireCore(); err != nil {
		return nil, err
	}
	a.Services, err = wireServices(a)
	if err != nil {
		return nil, err
	}
	a.Server, err = wireServer(a)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// wireCore builds the chat store, the sender and the task queue.
func (a *App) wireCore() error {
	log, cfg := a.Log, a.Cfg
	a.Repos = repos.New(a.DB, log)

	backend, err := wireBackend(log, cfg, a.Clients)
	if err != nil {
		return err
	}
	set, err := loadPrompts(cfg)
	if err != nil {
		return err
	}

	mediaSvc := wireMedia(log, cfg, a.Clients, set)
	a.Store = chat.NewStore(chat.StoreDeps{
		DB:      a.DB,
		Log:     log,
		Threads: a.Repos.Thread,
		Chats:   a.Repos.Chat,
		Media:   a.Repos.ChatMedia,
		Cache:   cache.NewInvalidator(a.cacheStore(), log),
		Blobs:   mediaSvc,
	})

	deps := chat.SenderDeps{
		Store:   a.Store,
		Users:   a.Repos.User,
		Backend: backend,
		Prompts: set,
		Streams: a.streamStore(),
		Log:     log,
	}
	if a.Metrics != nil {
		deps.Observer = a.Metrics
	}
	a.Sender = chat.NewSender(deps)

	switch cfg.TaskQueue {
	case QueueTemporal:
		a.Queue = tasks.NewTemporalQueue(a.Clients.Temporal, a.Temporal.TaskQueue, log)
	default:
		a.local = tasks.NewLocalQueue(a.Sender, cfg.LocalWorkers, cfg.TaskTimeout, log)
		a.Queue = a.local
	}
	a.Services.media = mediaSvc
	return nil
}

func loadPrompts(cfg Config) (*prompts.Set, error) {
	if cfg.PromptsPath != "" {
		return prompts.Load(cfg.PromptsPath)
	}
	return prompts.Default()
}

// Serve runs the HTTP server, plus the Temporal worker when EMBEDDED_WORKER
// is set, until ctx is cancelled.
func (a *App) Serve(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.Server.Run(gctx, a.Cfg.HTTPAddr, a.Cfg.ShutdownDrain)
	})
	if a.Cfg.EmbeddedWorker && a.Cfg.TaskQueue == QueueTemporal {
		g.Go(func() error { return a.RunWorker(gctx) })
	}
	return g.Wait()
}

// RunWorker polls the Temporal task queue until ctx is cancelled.
func (a *App) RunWorker(ctx context.Context) error {
	if a.Clients == nil || a.Clients.Temporal == nil {
		return fmt.Errorf("worker requires TASK_QUEUE_MODE=%q", QueueTemporal)
	}
	w, err := tasks.NewWorker(a.Log, a.Clients.Temporal, a.Temporal, a.Sender, a.Cfg.WorkerConcurrency)
	if err != nil {
		return err
	}
	return w.Run(ctx)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.local != nil {
		a.local.Wait()
	}
	a.Clients.Close()
	if a.pg != nil {
		_ = a.pg.Close()
	}
	if a.shutdownOtel != nil {
		_ = a.shutdownOtel(context.Background())
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}

func (a *App) cacheStore() cache.Store {
	if a.Services.cache != nil {
		return a.Services.cache
	}
	if a.Clients.Redis != nil {
		a.Services.cache = cache.NewRedisStore(a.Clients.Redis, "cookgpt:cache:")
	} else {
		a.Services.cache = cache.NewMemoryStore()
	}
	return a.Services.cache
}

func (a *App) streamStore() stream.Store {
	if a.Services.streams != nil {
		return a.Services.streams
	}
	if a.Clients.Redis != nil {
		a.Services.streams = stream.NewRedisStore(a.Clients.Redis, a.Cfg.StreamTTL)
	} else {
		a.Services.streams = stream.NewMemoryStore()
	}
	return a.Services.streams
}
