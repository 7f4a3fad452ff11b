package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"devfeed/internal/domain"
)

// Scheduler запускает прогоны по таймеру. Слот тика захватывается через Cache.Once,
// поэтому несколько реплик планировщика не запускают один провайдер дважды за слот.
// С очередью (WithQueue) захваченные слоты ставятся задачами для воркеров вместо прогона в процессе.
type Scheduler struct {
	runner  *Runner
	sweeper Sweeper
	locks   domain.Cache
	queue   domain.RefreshQueue
	log     zerolog.Logger
	now     func() time.Time
	newID   func() string
}

// NewScheduler создаёт планировщик. sweeper может быть nil.
func NewScheduler(runner *Runner, sweeper Sweeper, locks domain.Cache, log zerolog.Logger) *Scheduler {
	return &Scheduler{runner: runner, sweeper: sweeper, locks: locks, log: log, now: time.Now, newID: uuid.NewString}
}

// WithQueue переключает планировщик на постановку задач в очередь.
func (s *Scheduler) WithQueue(queue domain.RefreshQueue) *Scheduler {
	s.queue = queue
	return s
}

func (s *Scheduler) enqueue(ctx context.Context, job domain.RefreshJob) error {
	job.ID = s.newID()
	job.RequestedAt = s.now().UTC()
	job.Cause = domain.RefreshCauseScheduled
	if err := s.queue.Enqueue(ctx, job); err != nil {
		return fmt.Errorf("scheduler: постановка задачи %s: %w", job.Kind, err)
	}
	s.log.Debug().Str("job_id", job.ID).Str("kind", string(job.Kind)).Str("provider", string(job.Provider)).Msg("scheduler: job enqueued")
	return nil
}

// TickKey возвращает ключ блокировки провайдера для слота.
func TickKey(name string, slot time.Time) string {
	return fmt.Sprintf("tick:%s:%d", name, slot.Unix())
}

// FetchTick запускает провайдеров, для которых удалось захватить слот. В режиме очереди
// прогоны выполняют воркеры, и результатов нет.
func (s *Scheduler) FetchTick(ctx context.Context, interval time.Duration) ([]domain.RunResult, error) {
	slot := s.now().UTC().Truncate(interval)
	var (
		acquired []domain.ProviderType
		errs     []error
	)
	for _, provider := range s.runner.adapters.Providers() {
		err := s.locks.Once(ctx, TickKey(string(provider), slot), interval, func() error {
			if s.queue != nil {
				return s.enqueue(ctx, domain.RefreshJob{Kind: domain.RefreshKindProvider, Provider: provider})
			}
			acquired = append(acquired, provider)
			return nil
		})
		if err != nil {
			s.log.Warn().Err(err).Str("provider", string(provider)).Msg("scheduler: tick failed")
			errs = append(errs, err)
		}
	}
	if s.queue != nil {
		return nil, errors.Join(errs...)
	}
	if len(acquired) == 0 {
		s.log.Debug().Time("slot", slot).Msg("scheduler: slot already taken")
		return nil, nil
	}
	return s.runner.RunProviders(ctx, acquired)
}

// SweepTick выполняет очистку, если слот ещё не занят. В режиме очереди ставит задачу sweep.
func (s *Scheduler) SweepTick(ctx context.Context, interval time.Duration) (int64, error) {
	if s.sweeper == nil {
		return 0, nil
	}
	slot := s.now().UTC().Truncate(interval)
	var deleted int64
	err := s.locks.Once(ctx, TickKey("retention", slot), interval, func() error {
		if s.queue != nil {
			return s.enqueue(ctx, domain.RefreshJob{Kind: domain.RefreshKindSweep})
		}
		var err error
		deleted, err = s.sweeper.Sweep(ctx)
		return err
	})
	return deleted, err
}

// Run выполняет тики до отмены контекста. Первый прогон и первая очистка выполняются сразу.
func (s *Scheduler) Run(ctx context.Context, fetchInterval, sweepInterval time.Duration) {
	fetch := time.NewTicker(fetchInterval)
	defer fetch.Stop()
	sweep := time.NewTicker(sweepInterval)
	defer sweep.Stop()

	s.fetch(ctx, fetchInterval)
	s.sweep(ctx, sweepInterval)
	for {
		select {
		case <-ctx.Done():
			return
		case <-fetch.C:
			s.fetch(ctx, fetchInterval)
		case <-sweep.C:
			s.sweep(ctx, sweepInterval)
		}
	}
}

func (s *Scheduler) fetch(ctx context.Context, interval time.Duration) {
	results, err := s.FetchTick(ctx, interval)
	if err != nil {
		s.log.Error().Err(err).Msg("scheduler: fetch tick failed")
	}
	failed := 0
	for _, res := range results {
		if res.Err != nil {
			failed++
		}
	}
	if len(results) > 0 {
		s.log.Info().Int("sources", len(results)).Int("failed", failed).Msg("scheduler: fetch tick done")
	}
}

func (s *Scheduler) sweep(ctx context.Context, interval time.Duration) {
	if _, err := s.SweepTick(ctx, interval); err != nil {
		s.log.Error().Err(err).Msg("scheduler: sweep tick failed")
	}
}
