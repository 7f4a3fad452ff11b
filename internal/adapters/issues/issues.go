// Package issues загружает задачи репозитория GitHub, исключая pull request'ы.
package issues

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
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

var repoURLPattern = regexp.MustCompile(`^https?://(?:www\.)?github\.com/([A-Za-z0-9_.-]+)/([A-Za-z0-9_.-]+?)(?:\.git)?/?$`)

// Adapter реализует domain.ProviderAdapter для задач репозитория.
type Adapter struct {
	client *httpclient.Client
	apiURL string
	token  string
	log    zerolog.Logger
	now    func() time.Time
}

// New создаёт адаптер. token используется, если в конфигурации источника токен не задан.
func New(client *httpclient.Client, apiURL, token string, log zerolog.Logger) *Adapter {
	if strings.TrimSpace(apiURL) == "" {
		apiURL = DefaultAPIURL
	}
	return &Adapter{client: client, apiURL: strings.TrimRight(apiURL, "/"), token: token, log: log, now: time.Now}
}

// Provider возвращает тип провайдера.
func (a *Adapter) Provider() domain.ProviderType { return domain.ProviderIssues }

// Issue соответствует элементу ответа /repos/{owner}/{repo}/issues.
type Issue struct {
	Number    int64   `json:"number"`
	Title     string  `json:"title"`
	HTMLURL   string  `json:"html_url"`
	Body      string  `json:"body"`
	User      User    `json:"user"`
	Labels    []Label `json:"labels"`
	Comments  int     `json:"comments"`
	Reactions struct {
		TotalCount int `json:"total_count"`
	} `json:"reactions"`
	CreatedAt   time.Time        `json:"created_at"`
	PullRequest *json.RawMessage `json:"pull_request"`
}

// User описывает автора задачи.
type User struct {
	Login string `json:"login"`
}

// Label описывает метку задачи.
type Label struct {
	Name string `json:"name"`
}

// ParseRepositoryURL возвращает владельца и имя репозитория.
func ParseRepositoryURL(raw string) (owner, repo string, ok bool) {
	m := repoURLPattern.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}

// Fetch загружает страницы задач, пока страница не окажется неполной.
func (a *Adapter) Fetch(ctx context.Context, src domain.Source) ([]domain.FetchedItem, error) {
	owner, repo, ok := ParseRepositoryURL(src.BaseURL)
	if !ok {
		return nil, domain.ErrInvalidRepositoryURL
	}
	cfg := domain.ConfigFor[*domain.IssuesConfig](src)
	now := a.now().UTC()

	header := http.Header{}
	header.Set("Accept", "application/vnd.github+json")
	header.Set("X-GitHub-Api-Version", "2022-11-28")
	token := cfg.Token
	if token == "" {
		token = a.token
	}
	if token != "" {
		header.Set("Authorization", "token "+token)
	}

	path := fmt.Sprintf("repos/%s/%s/issues", url.PathEscape(owner), url.PathEscape(repo))
	var items []domain.FetchedItem
	seen := make(map[int64]struct{})
	for page := 1; page <= cfg.MaxPages; page++ {
		query := url.Values{}
		query.Set("state", cfg.State)
		query.Set("per_page", strconv.Itoa(cfg.PerPage))
		query.Set("page", strconv.Itoa(page))
		if len(cfg.Labels) > 0 {
			query.Set("labels", strings.Join(cfg.Labels, ","))
		}
		var batch []Issue
		if err := a.client.GetJSON(ctx, httpclient.JoinURL(a.apiURL, path, query), header, &batch); err != nil {
			return nil, fmt.Errorf("issues page %d: %w", page, err)
		}
		for _, issue := range batch {
			if issue.PullRequest != nil {
				continue
			}
			if _, dup := seen[issue.Number]; dup {
				continue
			}
			seen[issue.Number] = struct{}{}
			items = append(items, NormalizeIssue(src.ID, issue, now))
		}
		if len(batch) < cfg.PerPage {
			break
		}
	}
	a.log.Debug().Str("source", src.ID).Str("repo", owner+"/"+repo).Int("items", len(items)).Msg("issues: fetched")
	return items, nil
}

// NormalizeIssue переводит задачу в каноничный элемент.
func NormalizeIssue(sourceID string, issue Issue, now time.Time) domain.FetchedItem {
	labels := make([]string, 0, len(issue.Labels))
	for _, l := range issue.Labels {
		labels = append(labels, l.Name)
	}
	post := domain.Post{
		Source:     sourceID,
		ExternalID: strconv.FormatInt(issue.Number, 10),
		Title:      issue.Title,
		URL:        issue.HTMLURL,
		Author:     issue.User.Login,
		Summary:    summarizer.Excerpt(issue.Body),
		Tags:       labels,
		PostedAt:   issue.CreatedAt,
	}
	signals := domain.Signals{
		Comments:  issue.Comments,
		Reactions: issue.Reactions.TotalCount,
		Labels:    domain.CleanTags(labels),
	}
	return domain.FetchedItem{Post: domain.NormalizePost(post, now), Signals: signals}
}
