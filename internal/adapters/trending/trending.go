// Package trending ищет свежие популярные репозитории через поиск GitHub.
package trending

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"devfeed/internal/adapters/summarizer"
	"devfeed/internal/domain"
	"devfeed/internal/infra/httpclient"
)

// DefaultAPIURL указывает на REST API GitHub.
const DefaultAPIURL = "https://api.github.com"

// Adapter реализует domain.ProviderAdapter для трендовых репозиториев.
type Adapter struct {
	client *httpclient.Client
	apiURL string
	token  string
	log    zerolog.Logger
	now    func() time.Time
}

// New создаёт адаптер.
func New(client *httpclient.Client, apiURL, token string, log zerolog.Logger) *Adapter {
	if strings.TrimSpace(apiURL) == "" {
		apiURL = DefaultAPIURL
	}
	return &Adapter{client: client, apiURL: strings.TrimRight(apiURL, "/"), token: token, log: log, now: time.Now}
}

// Provider возвращает тип провайдера.
func (a *Adapter) Provider() domain.ProviderType { return domain.ProviderTrending }

type searchResponse struct {
	Items []Repository `json:"items"`
}

// Repository соответствует элементу ответа /search/repositories.
type Repository struct {
	ID          int64  `json:"id"`
	FullName    string `json:"full_name"`
	Description string `json:"description"`
	HTMLURL     string `json:"html_url"`
	Owner       struct {
		Login string `json:"login"`
	} `json:"owner"`
	Language string   `json:"language"`
	Topics   []string `json:"topics"`
	License  *struct {
		Key string `json:"key"`
	} `json:"license"`
	Stars     int       `json:"stargazers_count"`
	Forks     int       `json:"forks_count"`
	Watchers  int       `json:"watchers_count"`
	CreatedAt time.Time `json:"created_at"`
}

// SearchQuery строит выражение q для окна since и языка.
func SearchQuery(since, language string, now time.Time) string {
	days, ok := domain.SinceWindowDays[since]
	if !ok {
		days = domain.SinceWindowDays["weekly"]
	}
	q := "created:>" + now.AddDate(0, 0, -days).Format("2006-01-02")
	if language = strings.TrimSpace(language); language != "" {
		q += " language:" + language
	}
	return q
}

// Fetch выполняет один поисковый запрос, отсортированный по звёздам.
func (a *Adapter) Fetch(ctx context.Context, src domain.Source) ([]domain.FetchedItem, error) {
	cfg := domain.ConfigFor[*domain.TrendingConfig](src)
	now := a.now().UTC()

	header := http.Header{}
	header.Set("Accept", "application/vnd.github+json")
	header.Set("X-GitHub-Api-Version", "2022-11-28")
	token := cfg.Token
	if token == "" {
		token = a.token
	}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}

	query := url.Values{}
	query.Set("q", SearchQuery(cfg.Since, cfg.Language, now))
	query.Set("sort", "stars")
	query.Set("order", "desc")
	query.Set("per_page", strconv.Itoa(cfg.MaxItems))

	var resp searchResponse
	if err := a.client.GetJSON(ctx, httpclient.JoinURL(a.apiURL, "search/repositories", query), header, &resp); err != nil {
		return nil, fmt.Errorf("trending search: %w", err)
	}
	items := make([]domain.FetchedItem, 0, len(resp.Items))
	seen := make(map[int64]struct{}, len(resp.Items))
	for _, repo := range resp.Items {
		if _, dup := seen[repo.ID]; dup {
			continue
		}
		seen[repo.ID] = struct{}{}
		items = append(items, NormalizeRepository(src.ID, repo, now))
		if len(items) >= cfg.MaxItems {
			break
		}
	}
	a.log.Debug().Str("source", src.ID).Int("items", len(items)).Msg("trending: fetched")
	return items, nil
}

// NormalizeRepository переводит репозиторий в каноничный элемент.
func NormalizeRepository(sourceID string, repo Repository, now time.Time) domain.FetchedItem {
	description := summarizer.Excerpt(repo.Description)
	title := repo.FullName
	if description != "" {
		title = repo.FullName + ": " + description
	}
	tags := []string{"trending"}
	if repo.Language != "" {
		tags = append(tags, strings.ToLower(repo.Language))
	}
	tags = append(tags, repo.Topics...)
	if repo.License != nil && repo.License.Key != "" {
		tags = append(tags, repo.License.Key)
	}
	stats := fmt.Sprintf("(★ %d, %d forks, %d watchers)", repo.Stars, repo.Forks, repo.Watchers)
	summary := stats
	if description != "" {
		summary = description + " " + stats
	}
	post := domain.Post{
		Source:     sourceID,
		ExternalID: strconv.FormatInt(repo.ID, 10),
		Title:      title,
		URL:        repo.HTMLURL,
		Author:     repo.Owner.Login,
		Summary:    summary,
		Tags:       tags,
		PostedAt:   repo.CreatedAt,
	}
	signals := domain.Signals{
		Stars:       repo.Stars,
		Forks:       repo.Forks,
		Watchers:    repo.Watchers,
		Topics:      domain.CleanTags(repo.Topics),
		Language:    repo.Language,
		Description: description,
	}
	return domain.FetchedItem{Post: domain.NormalizePost(post, now), Signals: signals}
}
