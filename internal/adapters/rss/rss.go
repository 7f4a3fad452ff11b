// Package rss загружает RSS и Atom ленты.
package rss

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/rs/zerolog"

	"devfeed/internal/adapters/summarizer"
	"devfeed/internal/domain"
	"devfeed/internal/infra/httpclient"
)

// DefaultFeedAuthor подставляется, если у записи ленты нет автора.
const DefaultFeedAuthor = "Unknown"

// Adapter реализует domain.ProviderAdapter для лент.
type Adapter struct {
	client *httpclient.Client
	log    zerolog.Logger
	now    func() time.Time
}

// New создаёт адаптер.
func New(client *httpclient.Client, log zerolog.Logger) *Adapter {
	return &Adapter{client: client, log: log, now: time.Now}
}

// Provider возвращает тип провайдера.
func (a *Adapter) Provider() domain.ProviderType { return domain.ProviderRSS }

// Fetch загружает и разбирает ленту.
func (a *Adapter) Fetch(ctx context.Context, src domain.Source) ([]domain.FetchedItem, error) {
	feedURL, ok := httpclient.ParseBaseURL(src.BaseURL)
	if !ok {
		return nil, domain.ErrInvalidFeedURL
	}
	cfg := domain.ConfigFor[*domain.RSSConfig](src)
	now := a.now().UTC()

	body, err := a.client.Get(ctx, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("rss feed: %w", err)
	}
	feed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, &domain.ParseError{Format: "XML", Err: err}
	}

	items := make([]domain.FetchedItem, 0, len(feed.Items))
	seen := make(map[string]struct{}, len(feed.Items))
	for _, entry := range feed.Items {
		if entry == nil {
			continue
		}
		id := ItemID(entry)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		body := summarizer.PlainText(entryDescription(entry))
		if !domain.MatchesKeywords(cfg.Keywords, entry.Title, body) {
			continue
		}
		items = append(items, NormalizeEntry(src.ID, id, entry, summarizer.Shorten(body), now))
		if cfg.MaxItems > 0 && len(items) >= cfg.MaxItems {
			break
		}
	}
	a.log.Debug().Str("source", src.ID).Int("items", len(items)).Msg("rss: fetched")
	return items, nil
}

// ItemID возвращает первые 16 hex-символов sha256 ссылки. Без ссылки используется guid, затем заголовок.
func ItemID(entry *gofeed.Item) string {
	key := strings.TrimSpace(entry.Link)
	if key == "" {
		key = strings.TrimSpace(entry.GUID)
	}
	if key == "" {
		key = strings.TrimSpace(entry.Title)
	}
	if key == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])[:16]
}

func entryDescription(entry *gofeed.Item) string {
	if strings.TrimSpace(entry.Description) != "" {
		return entry.Description
	}
	return entry.Content
}

func entryAuthor(entry *gofeed.Item) string {
	for _, p := range entry.Authors {
		if p != nil && strings.TrimSpace(p.Name) != "" {
			return p.Name
		}
	}
	if entry.Author != nil && strings.TrimSpace(entry.Author.Name) != "" {
		return entry.Author.Name
	}
	return DefaultFeedAuthor
}

// NormalizeEntry переводит запись ленты в каноничный элемент.
func NormalizeEntry(sourceID, id string, entry *gofeed.Item, description string, now time.Time) domain.FetchedItem {
	var posted time.Time
	switch {
	case entry.PublishedParsed != nil:
		posted = *entry.PublishedParsed
	case entry.UpdatedParsed != nil:
		posted = *entry.UpdatedParsed
	}
	link := strings.TrimSpace(entry.Link)
	if link == "" && strings.HasPrefix(entry.GUID, "http") {
		link = entry.GUID
	}
	post := domain.Post{
		Source:     sourceID,
		ExternalID: id,
		Title:      entry.Title,
		URL:        link,
		Author:     entryAuthor(entry),
		Summary:    description,
		Tags:       append([]string{}, entry.Categories...),
		PostedAt:   posted,
	}
	return domain.FetchedItem{Post: domain.NormalizePost(post, now)}
}
