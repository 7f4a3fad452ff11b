// Package httpclient выполняет исходящие GET-запросы адаптеров провайдеров:
// таймаут на каждый вызов, ограничение частоты, метрики и перевод ошибок в доменную таксономию.
package httpclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"devfeed/internal/domain"
	"devfeed/internal/infra/metrics"
)

const (
	defaultTimeout   = 20 * time.Second
	defaultUserAgent = "devfeed/1.0 (+https://github.com/devfeed/devfeed)"
	maxBodyBytes     = 10 << 20
	maxReasonLength  = 120
)

// Options задаёт параметры клиента.
type Options struct {
	Component string
	Timeout   time.Duration
	UserAgent string
	// RatePerSecond = 0 отключает ограничение частоты.
	RatePerSecond float64
	Burst         int
	Transport     http.RoundTripper
}

// Client выполняет GET-запросы с едиными правилами обработки ошибок.
type Client struct {
	http      *http.Client
	limiter   *rate.Limiter
	userAgent string
	component string
}

// New создаёт клиента.
func New(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if strings.TrimSpace(opts.UserAgent) == "" {
		opts.UserAgent = defaultUserAgent
	}
	if opts.Component == "" {
		opts.Component = "provider"
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.RatePerSecond > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RatePerSecond), burst)
	}
	return &Client{
		http:      &http.Client{Timeout: opts.Timeout, Transport: opts.Transport},
		limiter:   limiter,
		userAgent: opts.UserAgent,
		component: opts.Component,
	}
}

// Get выполняет запрос и возвращает тело успешного ответа.
func (c *Client) Get(ctx context.Context, rawURL string, header http.Header) ([]byte, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return nil, &domain.ConfigError{Detail: "invalid URL " + strconv.Quote(rawURL)}
	}
	op := "GET " + parsed.Host + parsed.Path

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &domain.TransportError{Op: op, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, parsed.String(), nil)
	if err != nil {
		return nil, &domain.ConfigError{Detail: fmt.Sprintf("build request: %v", err)}
	}
	for key, values := range header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.ObserveNetworkRequest(c.component, "get", parsed.Host, start, err)
		return nil, &domain.TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		metrics.ObserveNetworkRequest(c.component, "get", parsed.Host, start, err)
		return nil, &domain.TransportError{Op: op, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		statusErr := &domain.HTTPStatusError{Code: resp.StatusCode, Reason: shortReason(body)}
		metrics.ObserveNetworkRequest(c.component, "get", parsed.Host, start, statusErr)
		return nil, statusErr
	}
	metrics.ObserveNetworkRequest(c.component, "get", parsed.Host, start, nil)
	return body, nil
}

// GetJSON выполняет запрос и декодирует JSON-ответ в out.
func (c *Client) GetJSON(ctx context.Context, rawURL string, header http.Header, out any) error {
	body, err := c.Get(ctx, rawURL, header)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &domain.ParseError{Format: "JSON", Err: err}
	}
	return nil
}

// shortReason достаёт краткое описание ошибки из JSON-ответа API, если оно есть.
func shortReason(body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   any    `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	reason := strings.TrimSpace(payload.Message)
	if reason == "" {
		if s, ok := payload.Error.(string); ok {
			reason = strings.TrimSpace(s)
		}
	}
	reason = strings.Join(strings.Fields(reason), " ")
	if len([]rune(reason)) > maxReasonLength {
		return ""
	}
	return reason
}

// ParseBaseURL проверяет, что адрес абсолютный http(s), и убирает фрагмент и завершающий слэш пути.
func ParseBaseURL(raw string) (string, bool) {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return "", false
	}
	parsed.Fragment = ""
	parsed.Path = strings.TrimRight(parsed.Path, "/")
	parsed.RawPath = ""
	return parsed.String(), true
}

// JoinURL добавляет путь и параметры запроса к базовому адресу.
func JoinURL(base, path string, query url.Values) string {
	u := strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}
