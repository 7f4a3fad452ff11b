// Package discourse загружает темы форумов на Discourse.
package discourse

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"devfeed/internal/adapters/summarizer"
	"devfeed/internal/domain"
	"devfeed/internal/infra/httpclient"
)

// Adapter реализует domain.ProviderAdapter для Discourse.
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
func (a *Adapter) Provider() domain.ProviderType { return domain.ProviderDiscourse }

type latestResponse struct {
	TopicList struct {
		MoreTopicsURL string  `json:"more_topics_url"`
		Topics        []Topic `json:"topics"`
	} `json:"topic_list"`
}

// Topic соответствует теме из /latest.json.
type Topic struct {
	ID                 int64     `json:"id"`
	Title              string    `json:"title"`
	Slug               string    `json:"slug"`
	Excerpt            string    `json:"excerpt"`
	Tags               tagList   `json:"tags"`
	LastPosterUsername string    `json:"last_poster_username"`
	PostsCount         int       `json:"posts_count"`
	ReplyCount         int       `json:"reply_count"`
	LikeCount          int       `json:"like_count"`
	Views              int       `json:"views"`
	CreatedAt          time.Time `json:"created_at"`
	LastPostedAt       time.Time `json:"last_posted_at"`
}

// tagList принимает теги и строками, и объектами {"name": ...} (новые версии Discourse).
type tagList []string

func (t *tagList) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*t = nil
		return nil
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		var name string
		if err := json.Unmarshal(item, &name); err == nil {
			out = append(out, name)
			continue
		}
		var obj struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal(item, &obj); err != nil {
			return fmt.Errorf("tag: %w", err)
		}
		out = append(out, obj.Name)
	}
	*t = out
	return nil
}

// Fetch загружает страницы 0..max_pages-1 последовательно.
func (a *Adapter) Fetch(ctx context.Context, src domain.Source) ([]domain.FetchedItem, error) {
	base, ok := httpclient.ParseBaseURL(src.BaseURL)
	if !ok {
		return nil, domain.ErrInvalidForumURL
	}
	cfg := domain.ConfigFor[*domain.DiscourseConfig](src)
	now := a.now().UTC()

	seen := make(map[int64]struct{})
	var items []domain.FetchedItem
	for page := 0; page < cfg.MaxPages; page++ {
		var resp latestResponse
		query := url.Values{"page": []string{strconv.Itoa(page)}}
		if err := a.client.GetJSON(ctx, httpclient.JoinURL(base, "latest.json", query), nil, &resp); err != nil {
			return nil, fmt.Errorf("discourse page %d: %w", page, err)
		}
		topics := resp.TopicList.Topics
		for _, topic := range topics {
			if _, dup := seen[topic.ID]; dup {
				continue
			}
			seen[topic.ID] = struct{}{}
			if !domain.MatchesKeywords(cfg.Keywords, topic.Title, topic.Excerpt) {
				continue
			}
			items = append(items, NormalizeTopic(src.ID, base, topic, now))
		}
		if len(topics) == 0 || resp.TopicList.MoreTopicsURL == "" {
			break
		}
	}
	a.log.Debug().Str("source", src.ID).Int("items", len(items)).Msg("discourse: fetched")
	return items, nil
}

// NormalizeTopic переводит тему в каноничный элемент.
func NormalizeTopic(sourceID, base string, t Topic, now time.Time) domain.FetchedItem {
	posted := t.CreatedAt
	if posted.IsZero() {
		posted = t.LastPostedAt
	}
	if posted.IsZero() {
		posted = now
	}
	post := domain.Post{
		Source:     sourceID,
		ExternalID: strconv.FormatInt(t.ID, 10),
		Title:      t.Title,
		URL:        fmt.Sprintf("%s/t/%s/%d", base, t.Slug, t.ID),
		Author:     t.LastPosterUsername,
		Summary:    summarizer.Excerpt(t.Excerpt),
		Tags:       append([]string{}, t.Tags...),
		PostedAt:   posted,
	}
	signals := domain.Signals{
		Likes:      t.LikeCount,
		Replies:    t.ReplyCount,
		Views:      t.Views,
		Unanswered: t.ReplyCount == 0 && t.PostsCount <= 1,
	}
	return domain.FetchedItem{Post: domain.NormalizePost(post, now), Signals: signals}
}
