package app

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"devfeed/internal/domain"
)

const attemptsTTL = 24 * time.Hour

// JobHandler выполняет задачу обновления.
type JobHandler interface {
	Handle(ctx context.Context, job domain.RefreshJob) error
}

// Worker читает очередь обновлений и выполняет задачи с ограниченным числом повторов.
type Worker struct {
	queue       domain.RefreshQueue
	handler     JobHandler
	attempts    domain.Cache
	maxAttempts int
	log         zerolog.Logger
}

// NewWorker создаёт обработчик очереди.
func NewWorker(queue domain.RefreshQueue, handler JobHandler, attempts domain.Cache, maxAttempts int, log zerolog.Logger) *Worker {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Worker{queue: queue, handler: handler, attempts: attempts, maxAttempts: maxAttempts, log: log}
}

// Run обрабатывает задачи до отмены контекста.
func (w *Worker) Run(ctx context.Context) {
	for {
		if err := w.ProcessOne(ctx); err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return
			}
			w.log.Error().Err(err).Msg("worker: ошибка чтения очереди")
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
		}
	}
}

// ProcessOne получает и выполняет одну задачу. Ошибка возвращается только при сбое очереди.
func (w *Worker) ProcessOne(ctx context.Context) error {
	job, ack, err := w.queue.Receive(ctx)
	if err != nil {
		return err
	}
	jobLog := w.log.With().
		Str("job_id", job.ID).
		Str("kind", string(job.Kind)).
		Str("cause", string(job.Cause)).
		Logger()

	attempt := w.nextAttempt(ctx, job.ID)
	jobLog = jobLog.With().Int("attempt", attempt).Logger()

	if err := w.handler.Handle(ctx, job); err != nil {
		if attempt < w.maxAttempts && ctx.Err() == nil {
			jobLog.Warn().Err(err).Msg("worker: задача завершилась ошибкой, повторим позже")
			if ackErr := ack(false); ackErr != nil {
				jobLog.Error().Err(ackErr).Msg("worker: не удалось вернуть задачу в очередь")
			}
			return nil
		}
		jobLog.Error().Err(err).Msg("worker: достигнут предел попыток, задача снята")
	}
	if err := ack(true); err != nil {
		jobLog.Error().Err(err).Msg("worker: не удалось подтвердить задачу")
	}
	return nil
}

func (w *Worker) nextAttempt(ctx context.Context, jobID string) int {
	if jobID == "" || w.attempts == nil {
		return 1
	}
	key := "refresh_attempt:" + jobID
	attempt := 1
	if raw, err := w.attempts.Get(ctx, key); err == nil {
		if n, err := strconv.Atoi(string(raw)); err == nil {
			attempt = n + 1
		}
	}
	if err := w.attempts.Set(ctx, key, []byte(strconv.Itoa(attempt)), attemptsTTL); err != nil {
		w.log.Warn().Err(err).Str("job_id", jobID).Msg("worker: не удалось сохранить номер попытки")
	}
	return attempt
}
