// Package app собирает зависимости сервисов из конфигурации окружения.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"devfeed/internal/adapters/registry"
	"devfeed/internal/adapters/repo"
	"devfeed/internal/adapters/scorer"
	"devfeed/internal/adapters/telegram"
	"devfeed/internal/domain"
	"devfeed/internal/infra/cache"
	"devfeed/internal/infra/config"
	"devfeed/internal/infra/db"
	"devfeed/internal/infra/httpclient"
	applog "devfeed/internal/infra/log"
	"devfeed/internal/infra/pubsub"
	"devfeed/internal/infra/queue"
	"devfeed/internal/usecase/ingest"
	"devfeed/internal/usecase/retention"
	"devfeed/internal/usecase/status"
)

// App содержит собранные компоненты ядра загрузки.
type App struct {
	Config    config.AppConfig
	Log       zerolog.Logger
	Store     domain.Store
	Redis     *redis.Client
	Locks     domain.Cache
	Publisher domain.StatusPublisher
	Registry  *registry.Registry
	Status    *status.Broadcaster
	Runner    *ingest.Runner
	Retention *retention.Service
	Jobs      *ingest.JobHandler
	Scheduler *ingest.Scheduler

	closers []func() error
}

// New подключается к хранилищу и Redis (если задан) и собирает сервисы.
func New(ctx context.Context, cfg config.AppConfig, logger zerolog.Logger) (*App, error) {
	a := &App{Config: cfg, Log: logger}

	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.Store = store
	a.closers = append(a.closers, store.Close)

	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := client.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			_ = a.Close()
			_ = client.Close()
			return nil, fmt.Errorf("app: redis %s: %w", cfg.RedisAddr, err)
		}
		a.Redis = client
		a.closers = append(a.closers, client.Close)
		a.Locks = cache.NewRedis(client)
		a.Publisher = pubsub.NewRedisPublisher(client)
	} else {
		a.Locks = cache.NewMemory()
		a.Publisher = pubsub.NewHub().WithLogger(applog.Component(logger, "pubsub"))
	}

	var hooks []status.FinishHook
	if cfg.Telegram.Token != "" && cfg.Telegram.AlertChatID != 0 {
		bot, err := telegram.NewBotSender(cfg.Telegram.Token)
		if err != nil {
			logger.Warn().Err(err).Msg("app: telegram alerts disabled")
		} else {
			hooks = append(hooks, telegram.NewAlertNotifier(bot, cfg.Telegram.AlertChatID, applog.Component(logger, "telegram")))
		}
	}

	a.Registry = registry.NewDefault(httpclient.Options{
		Timeout:       cfg.Schedule.FetchTimeout,
		UserAgent:     cfg.Providers.UserAgent,
		RatePerSecond: cfg.Providers.RatePerSec,
	}, registry.Endpoints{
		GitHubAPIURL: cfg.Providers.GitHubAPIURL,
		GitHubToken:  cfg.Providers.GitHubToken,
		HNAPIURL:     cfg.Providers.HNAPIURL,
		RedditAPIURL: cfg.Providers.RedditAPIURL,
	}, applog.Component(logger, "adapters"))

	a.Status = status.NewBroadcaster(store, a.Publisher, applog.Component(logger, "status"), hooks...)
	a.Runner = ingest.NewRunner(store, a.Registry, scorer.New(), a.Status, applog.Component(logger, "ingest"), ingest.Options{
		Parallelism: cfg.Schedule.Parallelism,
		RunTimeout:  cfg.Schedule.RunTimeout,
	})
	a.Retention = retention.NewService(store, applog.Component(logger, "retention"))
	a.Jobs = ingest.NewJobHandler(a.Runner, a.Retention, applog.Component(logger, "jobs"))
	a.Scheduler = ingest.NewScheduler(a.Runner, a.Retention, a.Locks, applog.Component(logger, "scheduler"))
	return a, nil
}

func openStore(ctx context.Context, cfg config.AppConfig) (domain.Store, error) {
	switch cfg.Store.Driver {
	case config.StoreDriverPostgres:
		if cfg.Store.PGDSN == "" {
			return nil, errors.New("app: не указан PG_DSN")
		}
		pool, err := db.Connect(cfg.Store.PGDSN)
		if err != nil {
			return nil, fmt.Errorf("app: postgres: %w", err)
		}
		store := repo.NewPostgres(pool)
		if err := store.EnsureSchema(ctx); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("app: схема postgres: %w", err)
		}
		return store, nil
	case config.StoreDriverSQLite:
		conn, err := db.OpenSQLite(cfg.Store.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("app: sqlite: %w", err)
		}
		store, err := repo.NewSQLite(ctx, conn)
		if err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("app: схема sqlite: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("app: неизвестный STORE_DRIVER %q", cfg.Store.Driver)
	}
}

// RefreshQueue открывает очередь ручных обновлений выбранного бэкенда.
func (a *App) RefreshQueue() (domain.RefreshQueue, error) {
	switch a.Config.Queues.Backend {
	case config.QueueBackendRedis:
		if a.Redis == nil {
			return nil, errors.New("app: очередь redis требует REDIS_ADDR")
		}
		return queue.NewRedisRefreshQueue(a.Redis, a.Config.Queues.Refresh), nil
	case config.QueueBackendRabbitMQ:
		if a.Config.Queues.RabbitURL == "" {
			return nil, errors.New("app: очередь rabbitmq требует RABBITMQ_URL")
		}
		q, err := queue.NewRabbitRefreshQueue(a.Config.Queues.RabbitURL, a.Config.Queues.Refresh)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, q.Close)
		return q, nil
	default:
		return nil, fmt.Errorf("app: неизвестный QUEUE_BACKEND %q", a.Config.Queues.Backend)
	}
}

// SyncSources загружает YAML-файл источников и сохраняет их. Статус и last_fetched_at
// существующих источников не меняются, отсутствующие в файле источники не удаляются.
func (a *App) SyncSources(ctx context.Context, path string) ([]domain.Source, error) {
	sources, err := config.LoadSources(path)
	if err != nil {
		return nil, err
	}
	saved := make([]domain.Source, 0, len(sources))
	for _, src := range sources {
		stored, err := a.Store.UpsertSource(ctx, src)
		if err != nil {
			return saved, fmt.Errorf("app: сохранение источника %s: %w", src.ID, err)
		}
		saved = append(saved, stored)
	}
	a.Log.Info().Str("file", path).Int("sources", len(saved)).Msg("app: sources synced")
	return saved, nil
}

// Close освобождает ресурсы в обратном порядке открытия.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
