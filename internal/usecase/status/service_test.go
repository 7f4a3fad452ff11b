package status

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"devfeed/internal/domain"
	"devfeed/internal/infra/pubsub"
)

type memorySources struct {
	statuses  map[string]string
	fetchedAt map[string]*time.Time
}

func newMemorySources() *memorySources {
	return &memorySources{statuses: map[string]string{}, fetchedAt: map[string]*time.Time{}}
}

func (m *memorySources) GetSource(ctx context.Context, id string) (domain.Source, error) {
	return domain.Source{}, domain.ErrSourceNotFound
}
func (m *memorySources) ListSources(ctx context.Context) ([]domain.Source, error) { return nil, nil }
func (m *memorySources) ListSourcesByProvider(ctx context.Context, p domain.ProviderType) ([]domain.Source, error) {
	return nil, nil
}
func (m *memorySources) UpsertSource(ctx context.Context, src domain.Source) (domain.Source, error) {
	return src, nil
}
func (m *memorySources) UpdateSourceStatus(ctx context.Context, id, status string, fetchedAt *time.Time) error {
	m.statuses[id] = status
	if fetchedAt != nil {
		m.fetchedAt[id] = fetchedAt
	}
	return nil
}

type recordingHook struct{ statuses []string }

func (h *recordingHook) SourceFinished(ctx context.Context, src domain.Source, status string) error {
	h.statuses = append(h.statuses, status)
	return errors.New("hook failure is only logged")
}

func drain(sub *pubsub.Subscription) []domain.StatusEvent {
	var events []domain.StatusEvent
	for {
		select {
		case ev := <-sub.C:
			events = append(events, ev)
		default:
			return events
		}
	}
}

func TestBroadcasterPublishesToBothChannels(t *testing.T) {
	hub := pubsub.NewHub()
	perSource := hub.Subscribe(domain.StatusChannel("rails-forum"))
	all := hub.Subscribe(domain.StatusChannelAll)
	defer perSource.Close()
	defer all.Close()

	sources := newMemorySources()
	hook := &recordingHook{}
	b := NewBroadcaster(sources, hub, zerolog.Nop(), hook)
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return fixed }

	src := domain.Source{ID: "rails-forum", Provider: domain.ProviderDiscourse, Status: domain.StatusIdle}
	ctx := context.Background()
	if err := b.Refreshing(ctx, src, "run-1"); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if sources.statuses["rails-forum"] != domain.StatusRefreshing {
		t.Fatalf("статус refreshing должен сохраняться до публикации")
	}
	status, err := b.Finished(ctx, src, "run-1", 3, nil)
	if err != nil || status != "ok (3 new)" {
		t.Fatalf("неожиданный итог: %q %v", status, err)
	}

	for name, sub := range map[string]*pubsub.Subscription{"source": perSource, "all": all} {
		events := drain(sub)
		if len(events) != 2 {
			t.Fatalf("%s: ожидали 2 события, получили %d", name, len(events))
		}
		if events[0].Status != domain.StatusRefreshing || events[1].Status != "ok (3 new)" || events[1].Created != 3 {
			t.Fatalf("%s: неожиданные события %+v", name, events)
		}
		if events[1].RunID != "run-1" || !events[1].At.Equal(fixed) {
			t.Fatalf("%s: неожиданные поля события %+v", name, events[1])
		}
	}
	if got := sources.fetchedAt["rails-forum"]; got == nil || !got.Equal(fixed) {
		t.Fatalf("last_fetched_at должен обновиться при успехе: %v", got)
	}
	if len(hook.statuses) != 1 {
		t.Fatalf("хук должен вызываться один раз, вызван %d", len(hook.statuses))
	}
}

func TestBroadcasterFinishedWithError(t *testing.T) {
	hub := pubsub.NewHub()
	all := hub.Subscribe(domain.StatusChannelAll)
	defer all.Close()
	sources := newMemorySources()
	b := NewBroadcaster(sources, hub, zerolog.Nop())

	src := domain.Source{ID: "r-golang", Provider: domain.ProviderReddit}
	status, err := b.Finished(context.Background(), src, "run-2", 5, &domain.HTTPStatusError{Code: 404})
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if status != "error: HTTP 404 Not Found" {
		t.Fatalf("неожиданный статус: %q", status)
	}
	if _, ok := sources.fetchedAt["r-golang"]; ok {
		t.Fatalf("last_fetched_at не должен меняться при ошибке")
	}
	events := drain(all)
	if len(events) != 1 || events[0].Created != 0 {
		t.Fatalf("неожиданные события: %+v", events)
	}
}

func TestBroadcasterFinishedAfterCancel(t *testing.T) {
	hub := pubsub.NewHub()
	sub := hub.Subscribe(domain.StatusChannel("rss-go"))
	defer sub.Close()
	sources := newMemorySources()
	b := NewBroadcaster(sources, hub, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	status, err := b.Finished(ctx, domain.Source{ID: "rss-go"}, "run-3", 0, ctx.Err())
	if err != nil {
		t.Fatalf("терминальный статус должен публиковаться после отмены: %v", err)
	}
	if sources.statuses["rss-go"] != status || len(drain(sub)) != 1 {
		t.Fatalf("терминальный статус не сохранён или не опубликован: %q", status)
	}
}
