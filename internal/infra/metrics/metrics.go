package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	SourceRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "source_runs_total",
		Help: "Количество прогонов источников по исходу",
	}, []string{"provider", "outcome"})

	SourceRunSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "source_run_seconds",
		Help:    "Длительность прогона источника",
		Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 20, 30, 60, 120, 300},
	}, []string{"provider"})

	PostsCreatedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "posts_created_total",
		Help: "Новые элементы, сохранённые при прогоне",
	}, []string{"provider"})

	PostsSkippedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "posts_skipped_total",
		Help: "Элементы, которые уже были сохранены ранее",
	}, []string{"provider"})

	RetentionDeletedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "retention_deleted_total",
		Help: "Элементы, удалённые очисткой по сроку хранения",
	})

	StatusEventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "status_events_total",
		Help: "Опубликованные события статусов",
	}, []string{"kind"})

	NetworkRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "network_request_duration_seconds",
		Help:    "Длительность сетевых запросов",
		Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 15, 20, 30, 45, 60},
	}, []string{"component", "operation", "target", "status"})

	NetworkRequestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "network_request_total",
		Help: "Количество сетевых запросов",
	}, []string{"component", "operation", "target", "status"})
)

// MustRegister регистрирует метрики.
func MustRegister(registerer prometheus.Registerer) {
	registerer.MustRegister(
		SourceRunsTotal,
		SourceRunSeconds,
		PostsCreatedTotal,
		PostsSkippedTotal,
		RetentionDeletedTotal,
		StatusEventsTotal,
		NetworkRequestDuration,
		NetworkRequestTotal,
	)
}

// StartServer запускает HTTP сервер с эндпоинтом /metrics.
func StartServer(ctx context.Context, logger zerolog.Logger, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	shutdownCtx, cancel := context.WithCancel(context.Background())
	go func() {
		select {
		case <-ctx.Done():
		case <-shutdownCtx.Done():
		}
		shutdownTimeout, timeoutCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer timeoutCancel()
		if err := srv.Shutdown(shutdownTimeout); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics: graceful shutdown failed")
		}
	}()

	go func() {
		logger.Info().Str("addr", addr).Msg("metrics: server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics: server stopped")
		}
		cancel()
	}()
}

// ObserveNetworkRequest записывает длительность и статус сетевого запроса.
func ObserveNetworkRequest(component, operation, target string, start time.Time, err error) {
	if component == "" {
		component = "unknown"
	}
	if operation == "" {
		operation = "unknown"
	}
	if target == "" {
		target = "unknown"
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	duration := time.Since(start).Seconds()
	NetworkRequestDuration.WithLabelValues(component, operation, target, status).Observe(duration)
	NetworkRequestTotal.WithLabelValues(component, operation, target, status).Inc()
}

// ObserveSourceRun записывает исход и длительность прогона источника.
func ObserveSourceRun(provider, outcome string, duration time.Duration) {
	SourceRunsTotal.WithLabelValues(provider, outcome).Inc()
	SourceRunSeconds.WithLabelValues(provider).Observe(duration.Seconds())
}

// AddPosts учитывает созданные и пропущенные элементы.
func AddPosts(provider string, created, skipped int) {
	if created > 0 {
		PostsCreatedTotal.WithLabelValues(provider).Add(float64(created))
	}
	if skipped > 0 {
		PostsSkippedTotal.WithLabelValues(provider).Add(float64(skipped))
	}
}

// AddRetentionDeleted учитывает удалённые при очистке элементы.
func AddRetentionDeleted(n int64) {
	if n > 0 {
		RetentionDeletedTotal.Add(float64(n))
	}
}

// IncStatusEvent учитывает опубликованное событие статуса.
func IncStatusEvent(kind string) {
	StatusEventsTotal.WithLabelValues(kind).Inc()
}
