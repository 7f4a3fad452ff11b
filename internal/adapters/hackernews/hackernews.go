// Package hackernews загружает истории Hacker News через Firebase API.
package hackernews

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"devfeed/internal/adapters/summarizer"
	"devfeed/internal/domain"
	"devfeed/internal/infra/httpclient"
)

const (
	// DefaultAPIURL указывает на Firebase API.
	DefaultAPIURL = "https://hacker-news.firebaseio.com"
	// DefaultSourceID используется для источника, создаваемого автоматически.
	DefaultSourceID = "hackernews"
	siteURL         = "https://news.ycombinator.com"
)

// Adapter реализует domain.ProviderAdapter и domain.DefaultSourcer.
type Adapter struct {
	client *httpclient.Client
	apiURL string
	log    zerolog.Logger
	now    func() time.Time
}

// New создаёт адаптер.
func New(client *httpclient.Client, apiURL string, log zerolog.Logger) *Adapter {
	if strings.TrimSpace(apiURL) == "" {
		apiURL = DefaultAPIURL
	}
	return &Adapter{client: client, apiURL: strings.TrimRight(apiURL, "/"), log: log, now: time.Now}
}

// Provider возвращает тип провайдера.
func (a *Adapter) Provider() domain.ProviderType { return domain.ProviderHackerNews }

// DefaultSource описывает источник, который создаётся, если ни одного не настроено.
func (a *Adapter) DefaultSource() domain.Source {
	cfg, _ := domain.NewProviderConfig(domain.ProviderHackerNews)
	return domain.Source{
		ID:               DefaultSourceID,
		Name:             "Hacker News",
		Provider:         domain.ProviderHackerNews,
		BaseURL:          siteURL,
		Config:           cfg,
		Active:           true,
		AutoFetchEnabled: true,
		Status:           domain.StatusIdle,
	}
}

// Item соответствует ответу /v0/item/{id}.json.
type Item struct {
	ID          int64  `json:"id"`
	Type        string `json:"type"`
	By          string `json:"by"`
	Time        int64  `json:"time"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	Text        string `json:"text"`
	Score       int    `json:"score"`
	Descendants int    `json:"descendants"`
	Deleted     bool   `json:"deleted"`
	Dead        bool   `json:"dead"`
}

// Fetch загружает списки историй, затем каждую историю по очереди.
// Ошибка отдельной истории пропускается, если удалось получить хотя бы одну.
func (a *Adapter) Fetch(ctx context.Context, src domain.Source) ([]domain.FetchedItem, error) {
	cfg := domain.ConfigFor[*domain.HackerNewsConfig](src)
	now := a.now().UTC()

	var (
		items    []domain.FetchedItem
		seen     = make(map[int64]struct{})
		attempts int
		failures int
		lastErr  error
	)
	for _, storyType := range cfg.StoryTypes {
		var ids []int64
		listURL := httpclient.JoinURL(a.apiURL, fmt.Sprintf("v0/%sstories.json", storyType), nil)
		if err := a.client.GetJSON(ctx, listURL, nil, &ids); err != nil {
			return nil, fmt.Errorf("hackernews %s stories: %w", storyType, err)
		}
		if len(ids) > cfg.MaxItems {
			ids = ids[:cfg.MaxItems]
		}
		for _, id := range ids {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			if err := ctx.Err(); err != nil {
				return nil, &domain.TransportError{Op: "hackernews items", Err: err}
			}

			attempts++
			var item *Item
			itemURL := httpclient.JoinURL(a.apiURL, fmt.Sprintf("v0/item/%d.json", id), nil)
			if err := a.client.GetJSON(ctx, itemURL, nil, &item); err != nil {
				failures++
				lastErr = err
				a.log.Debug().Err(err).Int64("item", id).Msg("hackernews: item skipped")
				continue
			}
			if !keep(item, cfg) {
				continue
			}
			items = append(items, NormalizeItem(src.ID, storyType, *item, now))
		}
	}
	if attempts > 0 && failures == attempts {
		return nil, fmt.Errorf("hackernews items: %w", lastErr)
	}
	a.log.Debug().Str("source", src.ID).Int("items", len(items)).Int("failed", failures).Msg("hackernews: fetched")
	return items, nil
}

func keep(item *Item, cfg *domain.HackerNewsConfig) bool {
	if item == nil || item.Deleted || item.Dead || item.Type != "story" {
		return false
	}
	if item.Score < cfg.MinScore {
		return false
	}
	return domain.MatchesKeywords(cfg.Keywords, item.Title, item.Text)
}

// StoryKind определяет вид истории по заголовку.
func StoryKind(title string) string {
	switch {
	case strings.HasPrefix(title, "Ask HN"):
		return "ask"
	case strings.HasPrefix(title, "Show HN"):
		return "show"
	default:
		return "story"
	}
}

// NormalizeItem переводит историю в каноничный элемент.
func NormalizeItem(sourceID, storyType string, item Item, now time.Time) domain.FetchedItem {
	link := item.URL
	if strings.TrimSpace(link) == "" {
		link = siteURL + "/item?id=" + strconv.FormatInt(item.ID, 10)
	}
	kind := StoryKind(item.Title)
	tags := []string{"hackernews", storyType}
	if kind != "story" {
		tags = append(tags, kind)
	}
	var posted time.Time
	if item.Time > 0 {
		posted = time.Unix(item.Time, 0)
	}
	post := domain.Post{
		Source:     sourceID,
		ExternalID: strconv.FormatInt(item.ID, 10),
		Title:      item.Title,
		URL:        link,
		Author:     item.By,
		Summary:    summarizer.Excerpt(item.Text),
		Tags:       tags,
		PostedAt:   posted,
	}
	signals := domain.Signals{
		Points:    item.Score,
		Comments:  item.Descendants,
		StoryKind: kind,
	}
	return domain.FetchedItem{Post: domain.NormalizePost(post, now), Signals: signals}
}
