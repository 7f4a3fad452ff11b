package domain

import (
	"context"
	"time"
)

// ProviderAdapter знает один внешний протокол и отдаёт нормализованные элементы.
type ProviderAdapter interface {
	Provider() ProviderType
	Fetch(ctx context.Context, src Source) ([]FetchedItem, error)
}

// DefaultSourcer реализуют адаптеры, которые умеют создать источник по умолчанию,
// если ни одного источника их типа не настроено.
type DefaultSourcer interface {
	DefaultSource() Source
}

// AdapterRegistry сопоставляет тип провайдера и адаптер.
type AdapterRegistry interface {
	Adapter(provider ProviderType) (ProviderAdapter, bool)
	Providers() []ProviderType
}

// ScoreContext передаёт скореру контекст провайдера.
type ScoreContext struct {
	Provider ProviderType
	Signals  Signals
	Config   ProviderConfig
	Now      time.Time
}

// Scorer вычисляет приоритет элемента.
type Scorer interface {
	Score(post Post, sc ScoreContext) float64
}

// SourceRepo управляет источниками.
type SourceRepo interface {
	GetSource(ctx context.Context, id string) (Source, error)
	ListSources(ctx context.Context) ([]Source, error)
	ListSourcesByProvider(ctx context.Context, provider ProviderType) ([]Source, error)
	UpsertSource(ctx context.Context, src Source) (Source, error)
	UpdateSourceStatus(ctx context.Context, id, status string, fetchedAt *time.Time) error
}

// PostRepo хранит каноничные элементы. UpsertPost вставляет запись только при отсутствии пары
// (source, external_id) и никогда не обновляет существующую.
type PostRepo interface {
	UpsertPost(ctx context.Context, post Post) (UpsertResult, error)
	GetPost(ctx context.Context, source, externalID string) (Post, error)
	CountPosts(ctx context.Context) (int64, error)
	DeletePostsPostedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// SettingsRepo отдаёт пользовательские настройки хранения.
type SettingsRepo interface {
	// MaxPostRetentionDays возвращает максимум post_retention_days по всем пользователям;
	// ok = false, если ни одной настройки не задано.
	MaxPostRetentionDays(ctx context.Context) (days int, ok bool, err error)
	SaveUserSetting(ctx context.Context, setting UserSetting) error
}

// Store объединяет все репозитории хранилища.
type Store interface {
	SourceRepo
	PostRepo
	SettingsRepo
	Close() error
}

// StatusPublisher доставляет событие в канал pub/sub.
type StatusPublisher interface {
	Publish(ctx context.Context, channel string, event StatusEvent) error
}

// StatusBroadcaster публикует смену статусов источника. Других публикаторов статусов нет.
type StatusBroadcaster interface {
	Refreshing(ctx context.Context, src Source, runID string) error
	Finished(ctx context.Context, src Source, runID string, created int, runErr error) (string, error)
}

// Cache используется для простых TTL-хранилищ: блокировки слотов планировщика и счётчики попыток.
// Get возвращает ошибку, если ключ отсутствует или истёк.
type Cache interface {
	Once(ctx context.Context, key string, ttl time.Duration, fn func() error) error
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, error)
}
