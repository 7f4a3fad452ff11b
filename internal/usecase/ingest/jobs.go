package ingest

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"devfeed/internal/domain"
)

// Sweeper выполняет очистку устаревших элементов.
type Sweeper interface {
	Sweep(ctx context.Context) (int64, error)
}

// JobHandler выполняет задачи из очереди обновлений.
type JobHandler struct {
	runner  *Runner
	sweeper Sweeper
	log     zerolog.Logger
}

// NewJobHandler создаёт обработчик задач.
func NewJobHandler(runner *Runner, sweeper Sweeper, log zerolog.Logger) *JobHandler {
	return &JobHandler{runner: runner, sweeper: sweeper, log: log}
}

// Handle выполняет задачу. Ошибка означает, что задачу стоит доставить повторно:
// неудачный прогон источника ошибкой не считается, он уже отражён в статусе источника.
func (h *JobHandler) Handle(ctx context.Context, job domain.RefreshJob) error {
	log := h.log.With().Str("job_id", job.ID).Str("kind", string(job.Kind)).Str("cause", string(job.Cause)).Logger()
	switch job.Kind {
	case domain.RefreshKindSource:
		res, err := h.runner.RunSource(ctx, job.SourceID)
		if err != nil {
			return err
		}
		log.Info().Str("source", res.SourceID).Str("status", res.Status).Msg("ingest: job done")
		return nil
	case domain.RefreshKindProvider:
		provider, ok := domain.ParseProviderType(string(job.Provider))
		if !ok {
			return fmt.Errorf("ingest: неизвестный провайдер %q", job.Provider)
		}
		results, err := h.runner.RunProvider(ctx, provider)
		if err != nil {
			return err
		}
		log.Info().Str("provider", string(provider)).Int("sources", len(results)).Msg("ingest: job done")
		return nil
	case domain.RefreshKindSweep:
		if h.sweeper == nil {
			return fmt.Errorf("ingest: очистка не настроена")
		}
		deleted, err := h.sweeper.Sweep(ctx)
		if err != nil {
			return err
		}
		log.Info().Int64("deleted", deleted).Msg("ingest: job done")
		return nil
	default:
		return fmt.Errorf("ingest: неизвестный тип задачи %q", job.Kind)
	}
}
