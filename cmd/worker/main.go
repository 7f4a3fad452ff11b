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
		logger.Fatal().Err(err).Msg("worker: не удалось инициализировать зависимости")
	}
	defer a.Close()

	refreshQueue, err := a.RefreshQueue()
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: не удалось подключиться к очереди")
	}

	worker := app.NewWorker(refreshQueue, a.Jobs, a.Locks, cfg.Queues.MaxAttempts, applog.Component(logger, "worker"))
	logger.Info().Str("backend", cfg.Queues.Backend).Str("queue", cfg.Queues.Refresh).Msg("worker: запуск обработки очереди")
	worker.Run(ctx)
	logger.Info().Msg("worker: остановлен")
}
