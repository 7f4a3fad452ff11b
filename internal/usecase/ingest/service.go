// Package ingest запускает адаптеры провайдеров и складывает результат в хранилище.
// Каждый прогон источника изолирован: ошибка или паника одного источника не мешает остальным.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"devfeed/internal/domain"
	"devfeed/internal/infra/metrics"
)

const (
	defaultParallelism = 4
	defaultRunTimeout  = 5 * time.Minute
)

// Repository описывает часть хранилища, нужную прогону.
type Repository interface {
	domain.SourceRepo
	UpsertPost(ctx context.Context, post domain.Post) (domain.UpsertResult, error)
}

// Options задаёт параметры прогонов.
type Options struct {
	Parallelism int
	RunTimeout  time.Duration
}

// Runner выполняет прогоны источников.
type Runner struct {
	repo     Repository
	adapters domain.AdapterRegistry
	scorer   domain.Scorer
	status   domain.StatusBroadcaster
	log      zerolog.Logger
	opts     Options
	now      func() time.Time
	newRunID func() string
}

// NewRunner создаёт раннер.
func NewRunner(repo Repository, adapters domain.AdapterRegistry, scorer domain.Scorer, status domain.StatusBroadcaster, log zerolog.Logger, opts Options) *Runner {
	if opts.Parallelism <= 0 {
		opts.Parallelism = defaultParallelism
	}
	if opts.RunTimeout <= 0 {
		opts.RunTimeout = defaultRunTimeout
	}
	return &Runner{
		repo:     repo,
		adapters: adapters,
		scorer:   scorer,
		status:   status,
		log:      log,
		opts:     opts,
		now:      time.Now,
		newRunID: uuid.NewString,
	}
}

// RunSource запускает один источник независимо от флагов active и auto_fetch_enabled.
func (r *Runner) RunSource(ctx context.Context, id string) (domain.RunResult, error) {
	src, err := r.repo.GetSource(ctx, id)
	if err != nil {
		return domain.RunResult{}, fmt.Errorf("ingest: источник %q: %w", id, err)
	}
	return r.run(ctx, src), nil
}

// RunProvider запускает все активные источники провайдера с включённой автозагрузкой.
// Если у провайдера нет ни одного источника и адаптер умеет создавать источник по умолчанию,
// такой источник создаётся и запускается.
func (r *Runner) RunProvider(ctx context.Context, provider domain.ProviderType) ([]domain.RunResult, error) {
	sources, err := r.eligibleSources(ctx, provider)
	if err != nil {
		return nil, err
	}
	return r.runMany(ctx, sources), nil
}

// RunAll запускает все источники всех зарегистрированных провайдеров.
func (r *Runner) RunAll(ctx context.Context) ([]domain.RunResult, error) {
	return r.RunProviders(ctx, r.adapters.Providers())
}

// RunProviders запускает источники перечисленных провайдеров одним пулом.
// Ошибка загрузки источников одного провайдера не останавливает остальных.
func (r *Runner) RunProviders(ctx context.Context, providers []domain.ProviderType) ([]domain.RunResult, error) {
	var (
		all  []domain.Source
		errs []error
	)
	for _, provider := range providers {
		sources, err := r.eligibleSources(ctx, provider)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		all = append(all, sources...)
	}
	return r.runMany(ctx, all), errors.Join(errs...)
}

func (r *Runner) eligibleSources(ctx context.Context, provider domain.ProviderType) ([]domain.Source, error) {
	adapter, ok := r.adapters.Adapter(provider)
	if !ok {
		return nil, fmt.Errorf("ingest: %s: %w", provider, domain.ErrNoAdapter)
	}
	sources, err := r.repo.ListSourcesByProvider(ctx, provider)
	if err != nil {
		return nil, fmt.Errorf("ingest: список источников %s: %w", provider, err)
	}
	if len(sources) == 0 {
		defaults, ok := adapter.(domain.DefaultSourcer)
		if !ok {
			return nil, nil
		}
		created, err := r.repo.UpsertSource(ctx, defaults.DefaultSource())
		if err != nil {
			return nil, fmt.Errorf("ingest: источник по умолчанию %s: %w", provider, err)
		}
		r.log.Info().Str("provider", string(provider)).Str("source", created.ID).Msg("ingest: default source created")
		sources = []domain.Source{created}
	}
	eligible := make([]domain.Source, 0, len(sources))
	for _, src := range sources {
		if !src.Active || !src.AutoFetchEnabled {
			r.log.Debug().Str("source", src.ID).Bool("active", src.Active).Bool("auto_fetch", src.AutoFetchEnabled).Msg("ingest: source skipped")
			continue
		}
		eligible = append(eligible, src)
	}
	return eligible, nil
}

func (r *Runner) runMany(ctx context.Context, sources []domain.Source) []domain.RunResult {
	results := make([]domain.RunResult, len(sources))
	var g errgroup.Group
	g.SetLimit(r.opts.Parallelism)
	for i, src := range sources {
		i, src := i, src
		g.Go(func() error {
			results[i] = r.run(ctx, src)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (r *Runner) run(ctx context.Context, src domain.Source) domain.RunResult {
	start := time.Now()
	res := domain.RunResult{RunID: r.newRunID(), SourceID: src.ID, Provider: src.Provider}
	log := r.log.With().Str("source", src.ID).Str("provider", string(src.Provider)).Str("run_id", res.RunID).Logger()

	if err := r.status.Refreshing(ctx, src, res.RunID); err != nil {
		log.Warn().Err(err).Msg("ingest: refreshing status not published")
	}

	runCtx, cancel := context.WithTimeout(ctx, r.opts.RunTimeout)
	res.Created, res.Skipped, res.Err = r.ingest(runCtx, src)
	cancel()

	status, err := r.status.Finished(ctx, src, res.RunID, res.Created, res.Err)
	if err != nil {
		log.Warn().Err(err).Msg("ingest: final status not published")
	}
	res.Status = status
	res.Duration = time.Since(start)

	outcome := "ok"
	if res.Err != nil {
		outcome = "error"
	}
	metrics.ObserveSourceRun(string(src.Provider), outcome, res.Duration)
	metrics.AddPosts(string(src.Provider), res.Created, res.Skipped)

	event := log.Info()
	if res.Err != nil {
		event = log.Warn().Err(res.Err)
	}
	event.Int("created", res.Created).Int("skipped", res.Skipped).Str("status", res.Status).
		Dur("duration", res.Duration).Msg("ingest: source run finished")
	return res
}

// ingest получает элементы источника, оценивает их и сохраняет новые.
func (r *Runner) ingest(ctx context.Context, src domain.Source) (created, skipped int, err error) {
	defer func() {
		if p := recover(); p != nil {
			r.log.Error().Str("source", src.ID).Bytes("stack", debug.Stack()).Msg("ingest: adapter panicked")
			created, skipped, err = 0, 0, fmt.Errorf("panic: %v", p)
		}
	}()

	if src.ConfigErr != nil {
		return 0, 0, src.ConfigErr
	}
	adapter, ok := r.adapters.Adapter(src.Provider)
	if !ok {
		return 0, 0, fmt.Errorf("%s: %w", src.Provider, domain.ErrNoAdapter)
	}
	items, err := adapter.Fetch(ctx, src)
	if err != nil {
		return 0, 0, err
	}

	now := r.now()
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		post := item.Post
		if post.Source == "" {
			post.Source = src.ID
		}
		if _, dup := seen[post.ExternalID]; dup {
			continue
		}
		seen[post.ExternalID] = struct{}{}

		post.PriorityScore = r.scorer.Score(post, domain.ScoreContext{
			Provider: src.Provider,
			Signals:  item.Signals,
			Config:   src.Config,
			Now:      now,
		})
		res, err := r.repo.UpsertPost(ctx, post)
		if err != nil {
			return created, skipped, fmt.Errorf("upsert %s/%s: %w", post.Source, post.ExternalID, err)
		}
		if res.Created {
			created++
		} else {
			skipped++
		}
	}
	return created, skipped, nil
}
