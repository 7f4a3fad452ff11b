package registry

import (
	"github.com/rs/zerolog"

	"devfeed/internal/adapters/discourse"
	"devfeed/internal/adapters/hackernews"
	"devfeed/internal/adapters/issues"
	"devfeed/internal/adapters/reddit"
	"devfeed/internal/adapters/rss"
	"devfeed/internal/adapters/trending"
	"devfeed/internal/infra/httpclient"
)

// Endpoints задаёт адреса API и токены провайдеров.
type Endpoints struct {
	GitHubAPIURL string
	GitHubToken  string
	HNAPIURL     string
	RedditAPIURL string
}

// NewDefault регистрирует все шесть адаптеров. Каждый получает собственный HTTP-клиент,
// чтобы ограничение частоты действовало на провайдера, а не на весь процесс.
func NewDefault(opts httpclient.Options, ep Endpoints, log zerolog.Logger) *Registry {
	client := func(component string) *httpclient.Client {
		o := opts
		o.Component = component
		return httpclient.New(o)
	}
	r, _ := New(
		discourse.New(client("discourse"), log),
		issues.New(client("issues"), ep.GitHubAPIURL, ep.GitHubToken, log),
		trending.New(client("trending"), ep.GitHubAPIURL, ep.GitHubToken, log),
		hackernews.New(client("hackernews"), ep.HNAPIURL, log),
		reddit.New(client("reddit"), ep.RedditAPIURL, log),
		rss.New(client("rss"), log),
	)
	return r
}
