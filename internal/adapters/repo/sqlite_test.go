package repo

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"devfeed/internal/domain"
	"devfeed/internal/infra/db"
)

func newStore(t *testing.T) *SQLite {
	t.Helper()
	conn, err := db.OpenSQLite(db.MemoryDSN)
	if err != nil {
		t.Fatalf("не удалось открыть sqlite: %v", err)
	}
	store, err := NewSQLite(context.Background(), conn)
	if err != nil {
		t.Fatalf("не удалось применить схему: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func samplePost(externalID, title string, postedAt time.Time) domain.Post {
	return domain.Post{
		Source:        "rails-forum",
		ExternalID:    externalID,
		Title:         title,
		URL:           "https://discuss.rubyonrails.org/t/x/" + externalID,
		Author:        "alice",
		Summary:       "summary",
		Tags:          []string{"activerecord", "help"},
		PostedAt:      postedAt,
		PriorityScore: 7.5,
	}
}

func TestUpsertPostCreatedThenSkipped(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	posted := time.Date(2024, 4, 30, 10, 0, 0, 0, time.UTC)

	first, err := store.UpsertPost(ctx, samplePost("101", "Original", posted))
	if err != nil || !first.Created || first.ID == 0 {
		t.Fatalf("ожидали создание: %+v %v", first, err)
	}

	changed := samplePost("101", "Changed title", posted.Add(time.Hour))
	changed.Author = "mallory"
	changed.PriorityScore = 99
	second, err := store.UpsertPost(ctx, changed)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if !second.Skipped() || second.ID != first.ID {
		t.Fatalf("ожидали Skipped с тем же id: %+v", second)
	}

	stored, err := store.GetPost(ctx, "rails-forum", "101")
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if stored.Title != "Original" || stored.Author != "alice" || stored.PriorityScore != 7.5 || stored.Status != domain.PostStatusUnread {
		t.Fatalf("повторная загрузка не должна менять запись: %+v", stored)
	}
	if !stored.PostedAt.Equal(posted) {
		t.Fatalf("неожиданная дата: %v", stored.PostedAt)
	}
	if diff := cmp.Diff([]string{"activerecord", "help"}, stored.Tags); diff != "" {
		t.Fatalf("теги должны сохранять порядок (-want +got):\n%s", diff)
	}

	other := samplePost("101", "Same id, other source", posted)
	other.Source = "go-forum"
	res, err := store.UpsertPost(ctx, other)
	if err != nil || !res.Created {
		t.Fatalf("тот же external_id другого источника должен давать новую запись: %+v %v", res, err)
	}
	if n, _ := store.CountPosts(ctx); n != 2 {
		t.Fatalf("ожидали 2 записи, получили %d", n)
	}
}

func TestUpsertPostConcurrentSameKey(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	post := samplePost("7", "Race", time.Now())

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := store.UpsertPost(ctx, post)
			if err != nil {
				t.Errorf("не ожидали ошибку: %v", err)
				return
			}
			if res.Created {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if created != 1 {
		t.Fatalf("ожидали ровно одно создание, получили %d", created)
	}
	if n, _ := store.CountPosts(ctx); n != 1 {
		t.Fatalf("ожидали одну запись, получили %d", n)
	}
}

func TestDeletePostsPostedBeforeIsStrict(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	cutoff := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)

	_, _ = store.UpsertPost(ctx, samplePost("old", "old", cutoff.Add(-time.Millisecond)))
	_, _ = store.UpsertPost(ctx, samplePost("edge", "edge", cutoff))
	_, _ = store.UpsertPost(ctx, samplePost("new", "new", cutoff.Add(time.Hour)))

	deleted, err := store.DeletePostsPostedBefore(ctx, cutoff)
	if err != nil || deleted != 1 {
		t.Fatalf("ожидали удаление одной записи: %d %v", deleted, err)
	}
	if _, err := store.GetPost(ctx, "rails-forum", "edge"); err != nil {
		t.Fatalf("запись на границе должна остаться: %v", err)
	}
	if deleted, _ := store.DeletePostsPostedBefore(ctx, cutoff); deleted != 0 {
		t.Fatalf("повторная очистка должна быть пустой, удалено %d", deleted)
	}
}

func TestMaxPostRetentionDays(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	if _, ok, err := store.MaxPostRetentionDays(ctx); err != nil || ok {
		t.Fatalf("без настроек ожидали ok=false: %v %v", ok, err)
	}
	seven, thirty := 7, 30
	_ = store.SaveUserSetting(ctx, domain.UserSetting{UserID: 1, PostRetentionDays: &seven})
	_ = store.SaveUserSetting(ctx, domain.UserSetting{UserID: 2, PostRetentionDays: &thirty})
	_ = store.SaveUserSetting(ctx, domain.UserSetting{UserID: 3})

	days, ok, err := store.MaxPostRetentionDays(ctx)
	if err != nil || !ok || days != 30 {
		t.Fatalf("ожидали максимум 30 дней: %d %v %v", days, ok, err)
	}
}

func TestSourcesRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	cfg := &domain.RedditConfig{Keywords: []string{"generics"}, MaxItems: 10}

	saved, err := store.UpsertSource(ctx, domain.Source{ID: "r-golang", Provider: domain.ProviderReddit,
		BaseURL: "https://www.reddit.com/r/golang", Config: cfg, Active: true, AutoFetchEnabled: true})
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if saved.Name != "r-golang" || saved.Status != domain.StatusIdle || saved.LastFetchedAt != nil {
		t.Fatalf("неожиданный источник: %+v", saved)
	}
	if diff := cmp.Diff(domain.ProviderConfig(cfg), saved.Config); diff != "" {
		t.Fatalf("конфигурация должна восстанавливаться (-want +got):\n%s", diff)
	}

	fetched := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	if err := store.UpdateSourceStatus(ctx, "r-golang", "ok (3 new)", &fetched); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if err := store.UpdateSourceStatus(ctx, "r-golang", "error: HTTP 500 Internal Server Error", nil); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}

	resynced, err := store.UpsertSource(ctx, domain.Source{ID: "r-golang", Name: "Go subreddit", Provider: domain.ProviderReddit,
		BaseURL: "https://www.reddit.com/r/golang", Active: false, AutoFetchEnabled: true})
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if resynced.Name != "Go subreddit" || resynced.Active {
		t.Fatalf("описание должно обновляться: %+v", resynced)
	}
	if resynced.Status != "error: HTTP 500 Internal Server Error" || resynced.LastFetchedAt == nil || !resynced.LastFetchedAt.Equal(fetched) {
		t.Fatalf("статус и last_fetched_at должны сохраняться: %+v", resynced)
	}

	byProvider, err := store.ListSourcesByProvider(ctx, domain.ProviderReddit)
	if err != nil || len(byProvider) != 1 {
		t.Fatalf("ожидали один источник reddit: %v %v", byProvider, err)
	}
	if others, _ := store.ListSourcesByProvider(ctx, domain.ProviderRSS); len(others) != 0 {
		t.Fatalf("не ожидали источников rss")
	}
}

func TestSourceNotFound(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	if _, err := store.GetSource(ctx, "missing"); !errors.Is(err, domain.ErrSourceNotFound) {
		t.Fatalf("ожидали ErrSourceNotFound, получили %v", err)
	}
	if err := store.UpdateSourceStatus(ctx, "missing", domain.StatusOK, nil); !errors.Is(err, domain.ErrSourceNotFound) {
		t.Fatalf("ожидали ErrSourceNotFound, получили %v", err)
	}
}

func TestUpsertSourceRejectsMismatchedConfig(t *testing.T) {
	store := newStore(t)
	_, err := store.UpsertSource(context.Background(), domain.Source{ID: "x", Provider: domain.ProviderRSS,
		BaseURL: "https://example.com/feed", Config: &domain.RedditConfig{MaxItems: 1}})
	if err == nil {
		t.Fatalf("ожидали ошибку несоответствия конфигурации")
	}
}

func TestListSourcesKeepsRowWithBrokenConfig(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	if _, err := store.UpsertSource(ctx, domain.Source{ID: "good", Provider: domain.ProviderDiscourse, BaseURL: "https://a.example.com"}); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	ms := time.Now().UnixMilli()
	if _, err := store.db.ExecContext(ctx, `INSERT INTO sources (id, name, provider, base_url, config, created_at, updated_at)
VALUES ('broken', 'broken', 'discourse', 'https://b.example.com', '{"legacy_key":1}', ?, ?)`, ms, ms); err != nil {
		t.Fatalf("не удалось вставить источник: %v", err)
	}

	sources, err := store.ListSourcesByProvider(ctx, domain.ProviderDiscourse)
	if err != nil {
		t.Fatalf("одна испорченная строка не должна ломать выборку: %v", err)
	}
	if len(sources) != 2 {
		t.Fatalf("ожидали 2 источника, получили %d", len(sources))
	}
	byID := map[string]domain.Source{}
	for _, src := range sources {
		byID[src.ID] = src
	}
	if byID["good"].ConfigErr != nil || byID["good"].Config == nil {
		t.Fatalf("неожиданный исправный источник: %+v", byID["good"])
	}
	broken := byID["broken"]
	if !errors.Is(broken.ConfigErr, domain.ErrInvalidConfig) || broken.Config != nil || broken.Provider != domain.ProviderDiscourse {
		t.Fatalf("ожидали ошибку конфигурации в источнике: %+v", broken)
	}
}
