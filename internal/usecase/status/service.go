// Package status публикует смену статусов источников: сохраняет статус в хранилище
// и рассылает событие в канал источника и агрегированный канал.
package status

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"devfeed/internal/domain"
	"devfeed/internal/infra/metrics"
)

// FinishHook получает терминальный статус источника после публикации.
type FinishHook interface {
	SourceFinished(ctx context.Context, src domain.Source, status string) error
}

// Broadcaster реализует domain.StatusBroadcaster.
type Broadcaster struct {
	sources   domain.SourceRepo
	publisher domain.StatusPublisher
	hooks     []FinishHook
	log       zerolog.Logger
	now       func() time.Time
}

var _ domain.StatusBroadcaster = (*Broadcaster)(nil)

// NewBroadcaster создаёт сервис публикации статусов.
func NewBroadcaster(sources domain.SourceRepo, publisher domain.StatusPublisher, log zerolog.Logger, hooks ...FinishHook) *Broadcaster {
	return &Broadcaster{
		sources:   sources,
		publisher: publisher,
		hooks:     hooks,
		log:       log,
		now:       time.Now,
	}
}

// Refreshing сохраняет статус "refreshing" и публикует событие начала прогона.
func (b *Broadcaster) Refreshing(ctx context.Context, src domain.Source, runID string) error {
	if err := b.sources.UpdateSourceStatus(ctx, src.ID, domain.StatusRefreshing, nil); err != nil {
		return fmt.Errorf("status: сохранение refreshing: %w", err)
	}
	event := domain.StatusEvent{SourceID: src.ID, Status: domain.StatusRefreshing, RunID: runID, At: b.now().UTC()}
	return b.publish(ctx, event, "refreshing")
}

// Finished вычисляет терминальный статус прогона, сохраняет его и публикует.
// last_fetched_at обновляется только при успешном прогоне.
func (b *Broadcaster) Finished(ctx context.Context, src domain.Source, runID string, created int, runErr error) (string, error) {
	now := b.now().UTC()
	status := domain.StatusOKWithCount(created)
	var fetchedAt *time.Time
	kind := "ok"
	if runErr != nil {
		status = domain.StatusFromError(runErr)
		created = 0
		kind = "error"
	} else {
		fetchedAt = &now
	}

	// Терминальный статус сохраняем даже после отмены контекста прогона.
	persistCtx := context.WithoutCancel(ctx)
	var errs []error
	if err := b.sources.UpdateSourceStatus(persistCtx, src.ID, status, fetchedAt); err != nil {
		errs = append(errs, fmt.Errorf("status: сохранение %q: %w", status, err))
	}
	event := domain.StatusEvent{SourceID: src.ID, Status: status, Created: created, RunID: runID, At: now}
	if err := b.publish(persistCtx, event, kind); err != nil {
		errs = append(errs, err)
	}
	for _, hook := range b.hooks {
		if err := hook.SourceFinished(persistCtx, src, status); err != nil {
			b.log.Warn().Err(err).Str("source", src.ID).Msg("status: finish hook failed")
		}
	}
	return status, errors.Join(errs...)
}

func (b *Broadcaster) publish(ctx context.Context, event domain.StatusEvent, kind string) error {
	var errs []error
	for _, channel := range []string{domain.StatusChannel(event.SourceID), domain.StatusChannelAll} {
		if err := b.publisher.Publish(ctx, channel, event); err != nil {
			errs = append(errs, fmt.Errorf("status: публикация в %s: %w", channel, err))
		}
	}
	metrics.IncStatusEvent(kind)
	b.log.Debug().Str("source", event.SourceID).Str("status", event.Status).Str("run_id", event.RunID).Msg("status: published")
	return errors.Join(errs...)
}
