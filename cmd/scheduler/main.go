package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"devfeed/internal/app"
	"devfeed/internal/infra/config"
	applog "devfeed/internal/infra/log"
	"devfeed/internal/infra/metrics"
)

func main() {
	cfg := config.Load()
	logger := applog.NewLogger(cfg.AppEnv)

	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.StartServer(ctx, applog.Component(logger, "metrics"), cfg.MetricsAddr)

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("scheduler: не удалось инициализировать зависимости")
	}
	defer a.Close()

	if cfg.SourcesFile != "" {
		if _, err := a.SyncSources(ctx, cfg.SourcesFile); err != nil {
			logger.Fatal().Err(err).Str("file", cfg.SourcesFile).Msg("scheduler: не удалось загрузить источники")
		}
	}

	if cfg.Schedule.ViaQueue {
		q, err := a.RefreshQueue()
		if err != nil {
			logger.Fatal().Err(err).Msg("scheduler: не удалось открыть очередь обновлений")
		}
		a.Scheduler.WithQueue(q)
	}

	logger.Info().
		Bool("via_queue", cfg.Schedule.ViaQueue).
		Dur("fetch_interval", cfg.Schedule.FetchInterval).
		Dur("retention_interval", cfg.Schedule.RetentionInterval).
		Int("parallelism", cfg.Schedule.Parallelism).
		Msg("scheduler: запуск")
	a.Scheduler.Run(ctx, cfg.Schedule.FetchInterval, cfg.Schedule.RetentionInterval)
	logger.Info().Msg("scheduler: остановлен")
}
