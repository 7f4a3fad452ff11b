// Package reddit загружает горячие посты сообщества Reddit.
package reddit

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"devfeed/internal/adapters/summarizer"
	"devfeed/internal/domain"
	"devfeed/internal/infra/httpclient"
)

const (
	// DefaultAPIURL указывает на JSON API Reddit.
	DefaultAPIURL = "https://www.reddit.com"
	webURL        = "https://www.reddit.com"
)

var communityURLPattern = regexp.MustCompile(`^https?://(www\.|old\.|new\.)?reddit\.com/r/([A-Za-z0-9_]+)/?`)

// Adapter реализует domain.ProviderAdapter для Reddit.
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
func (a *Adapter) Provider() domain.ProviderType { return domain.ProviderReddit }

type listing struct {
	Data struct {
		Children []struct {
			Kind string `json:"kind"`
			Data Post   `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

// Post соответствует посту из листинга hot.json.
type Post struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Author      string  `json:"author"`
	Selftext    string  `json:"selftext"`
	URL         string  `json:"url"`
	Permalink   string  `json:"permalink"`
	CreatedUTC  float64 `json:"created_utc"`
	Score       int     `json:"score"`
	Ups         int     `json:"ups"`
	NumComments int     `json:"num_comments"`
	Stickied    bool    `json:"stickied"`
	Pinned      bool    `json:"pinned"`
	IsSelf      bool    `json:"is_self"`
	IsVideo     bool    `json:"is_video"`
	PostHint    string  `json:"post_hint"`
	Flair       string  `json:"link_flair_text"`
}

// ParseCommunityURL извлекает имя сообщества из адреса.
func ParseCommunityURL(raw string) (string, bool) {
	m := communityURLPattern.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return "", false
	}
	return m[2], true
}

// Fetch загружает hot.json сообщества.
func (a *Adapter) Fetch(ctx context.Context, src domain.Source) ([]domain.FetchedItem, error) {
	community, ok := ParseCommunityURL(src.BaseURL)
	if !ok {
		return nil, domain.ErrInvalidCommunityURL
	}
	cfg := domain.ConfigFor[*domain.RedditConfig](src)
	now := a.now().UTC()

	query := url.Values{"limit": []string{strconv.Itoa(cfg.MaxItems)}}
	var resp listing
	if err := a.client.GetJSON(ctx, httpclient.JoinURL(a.apiURL, "r/"+community+"/hot.json", query), nil, &resp); err != nil {
		return nil, fmt.Errorf("reddit r/%s: %w", community, err)
	}
	items := make([]domain.FetchedItem, 0, len(resp.Data.Children))
	seen := make(map[string]struct{})
	for _, child := range resp.Data.Children {
		p := child.Data
		if p.ID == "" || p.Stickied || p.Pinned {
			continue
		}
		if _, dup := seen[p.ID]; dup {
			continue
		}
		seen[p.ID] = struct{}{}
		if !domain.MatchesKeywords(cfg.Keywords, p.Title, p.Selftext) {
			continue
		}
		items = append(items, NormalizePost(src.ID, community, p, now))
		if len(items) >= cfg.MaxItems {
			break
		}
	}
	a.log.Debug().Str("source", src.ID).Str("community", community).Int("items", len(items)).Msg("reddit: fetched")
	return items, nil
}

// PostType классифицирует пост: self, video, image или link.
func PostType(p Post) string {
	switch {
	case p.IsSelf:
		return "self"
	case p.IsVideo || p.PostHint == "hosted:video" || p.PostHint == "rich:video":
		return "video"
	case p.PostHint == "image" || isImageURL(p.URL):
		return "image"
	default:
		return "link"
	}
}

func isImageURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	switch strings.ToLower(path.Ext(u.Path)) {
	case ".jpg", ".jpeg", ".png", ".gif", ".webp":
		return true
	}
	return false
}

// NormalizePost переводит пост в каноничный элемент.
func NormalizePost(sourceID, community string, p Post, now time.Time) domain.FetchedItem {
	kind := PostType(p)
	summary := p.URL
	if p.IsSelf {
		summary = summarizer.Excerpt(p.Selftext)
	}
	link := p.URL
	if p.Permalink != "" {
		link = webURL + p.Permalink
	}
	var posted time.Time
	if p.CreatedUTC > 0 {
		posted = time.Unix(int64(p.CreatedUTC), 0)
	}
	upvotes := p.Ups
	if upvotes == 0 {
		upvotes = p.Score
	}
	post := domain.Post{
		Source:     sourceID,
		ExternalID: p.ID,
		Title:      p.Title,
		URL:        link,
		Author:     p.Author,
		Summary:    summary,
		Tags:       []string{community, "reddit", kind, p.Flair},
		PostedAt:   posted,
	}
	signals := domain.Signals{
		Upvotes:  upvotes,
		Comments: p.NumComments,
		SelfPost: p.IsSelf && strings.TrimSpace(p.Selftext) != "",
	}
	return domain.FetchedItem{Post: domain.NormalizePost(post, now), Signals: signals}
}
