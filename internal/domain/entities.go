package domain

import (
	"strings"
	"time"
)

// ProviderType определяет тип внешнего провайдера контента.
type ProviderType string

const (
	// Форум на Discourse.
	ProviderDiscourse ProviderType = "discourse"
	// Трекер задач репозитория.
	ProviderIssues ProviderType = "issues"
	// Поиск трендовых репозиториев.
	ProviderTrending ProviderType = "trending"
	// Агрегатор новостей.
	ProviderHackerNews ProviderType = "hackernews"
	// Агрегатор ссылок сообщества.
	ProviderReddit ProviderType = "reddit"
	// RSS-лента.
	ProviderRSS ProviderType = "rss"
)

// ProviderTypes перечисляет все известные провайдеры в стабильном порядке.
var ProviderTypes = []ProviderType{
	ProviderDiscourse,
	ProviderIssues,
	ProviderTrending,
	ProviderHackerNews,
	ProviderReddit,
	ProviderRSS,
}

// ParseProviderType проверяет строковое значение провайдера.
func ParseProviderType(raw string) (ProviderType, bool) {
	candidate := ProviderType(strings.ToLower(strings.TrimSpace(raw)))
	for _, p := range ProviderTypes {
		if p == candidate {
			return p, true
		}
	}
	return "", false
}

// Source описывает настроенный экземпляр провайдера.
type Source struct {
	ID               string
	Name             string
	Provider         ProviderType
	BaseURL          string
	Config           ProviderConfig
	Active           bool
	AutoFetchEnabled bool
	Status           string
	LastFetchedAt    *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
	// ConfigErr заполняется хранилищем, если сохранённую конфигурацию не удалось разобрать.
	// Такой источник остаётся в выборке и завершается ошибкой при прогоне.
	ConfigErr error
}

// PostStatus хранит состояние элемента. Меняется только внешним UI.
type PostStatus string

const (
	PostStatusUnread    PostStatus = "unread"
	PostStatusRead      PostStatus = "read"
	PostStatusResponded PostStatus = "responded"
	PostStatusIgnored   PostStatus = "ignored"
)

// Post хранит каноничную запись о внешнем элементе контента.
type Post struct {
	ID            int64
	Source        string
	ExternalID    string
	Title         string
	URL           string
	Author        string
	Summary       string
	Tags          []string
	PostedAt      time.Time
	PriorityScore float64
	Status        PostStatus
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Signals содержит метрики вовлечённости и признаки для скоринга.
// Каждый провайдер заполняет только те поля, которые отдаёт его API.
type Signals struct {
	Likes     int
	Replies   int
	Views     int
	Comments  int
	Reactions int
	Stars     int
	Forks     int
	Watchers  int
	Points    int
	Upvotes   int

	Labels      []string
	Topics      []string
	Language    string
	Description string
	Unanswered  bool
	SelfPost    bool
	StoryKind   string
}

// FetchedItem содержит нормализованный элемент и сигналы для скоринга.
type FetchedItem struct {
	Post    Post
	Signals Signals
}

// UserSetting хранит пользовательские настройки хранения.
type UserSetting struct {
	UserID            int64
	PostRetentionDays *int
}

// UpsertResult описывает исход вставки: Created либо Skipped (существующая запись).
type UpsertResult struct {
	ID      int64
	Created bool
}

// Skipped сообщает, что запись уже существовала.
func (r UpsertResult) Skipped() bool {
	return !r.Created
}

// RunResult описывает итог одного прогона источника.
type RunResult struct {
	RunID    string
	SourceID string
	Provider ProviderType
	Created  int
	Skipped  int
	Status   string
	Err      error
	Duration time.Duration
}
