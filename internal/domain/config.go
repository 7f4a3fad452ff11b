package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ProviderConfig представляет типизированную конфигурацию источника. У каждого провайдера свой вариант.
type ProviderConfig interface {
	Provider() ProviderType
	applyDefaults()
	validate() error
}

// DiscourseConfig настраивает форум.
type DiscourseConfig struct {
	Keywords []string `json:"keywords,omitempty"`
	MaxPages int      `json:"max_pages,omitempty"`
}

// IssuesConfig настраивает трекер задач.
type IssuesConfig struct {
	Labels   []string `json:"labels,omitempty"`
	Token    string   `json:"token,omitempty"`
	State    string   `json:"state,omitempty"`
	PerPage  int      `json:"per_page,omitempty"`
	MaxPages int      `json:"max_pages,omitempty"`
}

// TrendingConfig настраивает поиск трендовых репозиториев.
type TrendingConfig struct {
	Since              string   `json:"since,omitempty"`
	Language           string   `json:"language,omitempty"`
	PreferredLanguages []string `json:"preferred_languages,omitempty"`
	Topics             []string `json:"topics,omitempty"`
	Token              string   `json:"token,omitempty"`
	MaxItems           int      `json:"max_items,omitempty"`
}

// HackerNewsConfig настраивает агрегатор новостей.
type HackerNewsConfig struct {
	StoryTypes []string `json:"story_types,omitempty"`
	MinScore   int      `json:"min_score,omitempty"`
	Keywords   []string `json:"keywords,omitempty"`
	MaxItems   int      `json:"max_items,omitempty"`
}

// RedditConfig настраивает сообщество агрегатора ссылок.
type RedditConfig struct {
	Keywords []string `json:"keywords,omitempty"`
	MaxItems int      `json:"max_items,omitempty"`
}

// RSSConfig настраивает ленту. MaxItems = 0 означает без ограничения.
type RSSConfig struct {
	Keywords []string `json:"keywords,omitempty"`
	MaxItems int      `json:"max_items,omitempty"`
}

// ErrInvalidConfig оборачивает все ошибки разбора конфигурации источника.
var ErrInvalidConfig = errors.New("invalid source config")

const (
	maxDiscoursePages = 10
	maxIssuePages     = 10
	maxPerPage        = 100
)

// SinceWindowDays переводит окно daily/weekly/monthly в дни.
var SinceWindowDays = map[string]int{
	"daily":   1,
	"weekly":  7,
	"monthly": 30,
}

// HackerNewsStoryTypes перечисляет допустимые списки историй. Вакансии (jobstories) не поддерживаются:
// адаптер сохраняет только элементы типа story.
var HackerNewsStoryTypes = []string{"top", "new", "best", "ask", "show"}

func (*DiscourseConfig) Provider() ProviderType  { return ProviderDiscourse }
func (*IssuesConfig) Provider() ProviderType     { return ProviderIssues }
func (*TrendingConfig) Provider() ProviderType   { return ProviderTrending }
func (*HackerNewsConfig) Provider() ProviderType { return ProviderHackerNews }
func (*RedditConfig) Provider() ProviderType     { return ProviderReddit }
func (*RSSConfig) Provider() ProviderType        { return ProviderRSS }

func (c *DiscourseConfig) applyDefaults() {
	c.Keywords = CleanTags(c.Keywords)
	if c.MaxPages == 0 {
		c.MaxPages = 1
	}
}

func (c *DiscourseConfig) validate() error {
	if c.MaxPages < 1 || c.MaxPages > maxDiscoursePages {
		return fmt.Errorf("max_pages must be between 1 and %d", maxDiscoursePages)
	}
	return nil
}

func (c *IssuesConfig) applyDefaults() {
	c.Labels = CleanTags(c.Labels)
	c.Token = strings.TrimSpace(c.Token)
	c.State = strings.ToLower(strings.TrimSpace(c.State))
	if c.State == "" {
		c.State = "open"
	}
	if c.PerPage == 0 {
		c.PerPage = 30
	}
	if c.MaxPages == 0 {
		c.MaxPages = 1
	}
}

func (c *IssuesConfig) validate() error {
	switch c.State {
	case "open", "closed", "all":
	default:
		return fmt.Errorf("state must be one of open, closed, all: %q", c.State)
	}
	if c.PerPage < 1 || c.PerPage > maxPerPage {
		return fmt.Errorf("per_page must be between 1 and %d", maxPerPage)
	}
	if c.MaxPages < 1 || c.MaxPages > maxIssuePages {
		return fmt.Errorf("max_pages must be between 1 and %d", maxIssuePages)
	}
	return nil
}

func (c *TrendingConfig) applyDefaults() {
	c.Since = strings.ToLower(strings.TrimSpace(c.Since))
	if c.Since == "" {
		c.Since = "weekly"
	}
	c.Language = strings.TrimSpace(c.Language)
	c.PreferredLanguages = CleanTags(c.PreferredLanguages)
	c.Topics = CleanTags(c.Topics)
	c.Token = strings.TrimSpace(c.Token)
	if c.MaxItems == 0 {
		c.MaxItems = 30
	}
}

func (c *TrendingConfig) validate() error {
	if _, ok := SinceWindowDays[c.Since]; !ok {
		return fmt.Errorf("since must be one of daily, weekly, monthly: %q", c.Since)
	}
	if c.MaxItems < 1 || c.MaxItems > maxPerPage {
		return fmt.Errorf("max_items must be between 1 and %d", maxPerPage)
	}
	return nil
}

func (c *HackerNewsConfig) applyDefaults() {
	types := make([]string, 0, len(c.StoryTypes))
	for _, t := range c.StoryTypes {
		types = append(types, strings.ToLower(strings.TrimSpace(t)))
	}
	c.StoryTypes = CleanTags(types)
	if len(c.StoryTypes) == 0 {
		c.StoryTypes = []string{"top"}
	}
	c.Keywords = CleanTags(c.Keywords)
	if c.MaxItems == 0 {
		c.MaxItems = 30
	}
}

func (c *HackerNewsConfig) validate() error {
	for _, t := range c.StoryTypes {
		if !containsString(HackerNewsStoryTypes, t) {
			return fmt.Errorf("unknown story type %q", t)
		}
	}
	if c.MinScore < 0 {
		return errors.New("min_score must not be negative")
	}
	if c.MaxItems < 1 || c.MaxItems > 500 {
		return errors.New("max_items must be between 1 and 500")
	}
	return nil
}

func (c *RedditConfig) applyDefaults() {
	c.Keywords = CleanTags(c.Keywords)
	if c.MaxItems == 0 {
		c.MaxItems = 25
	}
}

func (c *RedditConfig) validate() error {
	if c.MaxItems < 1 || c.MaxItems > maxPerPage {
		return fmt.Errorf("max_items must be between 1 and %d", maxPerPage)
	}
	return nil
}

func (c *RSSConfig) applyDefaults() {
	c.Keywords = CleanTags(c.Keywords)
}

func (c *RSSConfig) validate() error {
	if c.MaxItems < 0 {
		return errors.New("max_items must not be negative")
	}
	return nil
}

// NewProviderConfig возвращает пустую конфигурацию провайдера с применёнными значениями по умолчанию.
func NewProviderConfig(provider ProviderType) (ProviderConfig, error) {
	return DecodeProviderConfig(provider, nil)
}

// DecodeProviderConfig разбирает JSON-конфигурацию источника в типизированный вариант.
// Неизвестные ключи считаются ошибкой, отсутствующие заполняются значениями по умолчанию.
func DecodeProviderConfig(provider ProviderType, raw []byte) (ProviderConfig, error) {
	var cfg ProviderConfig
	switch provider {
	case ProviderDiscourse:
		cfg = &DiscourseConfig{}
	case ProviderIssues:
		cfg = &IssuesConfig{}
	case ProviderTrending:
		cfg = &TrendingConfig{}
	case ProviderHackerNews:
		cfg = &HackerNewsConfig{}
	case ProviderReddit:
		cfg = &RedditConfig{}
	case ProviderRSS:
		cfg = &RSSConfig{}
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", ErrInvalidConfig, provider)
	}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null")) {
		dec := json.NewDecoder(bytes.NewReader(trimmed))
		dec.DisallowUnknownFields()
		if err := dec.Decode(cfg); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, provider, err)
		}
		if _, err := dec.Token(); !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: %s: trailing data", ErrInvalidConfig, provider)
		}
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, provider, err)
	}
	return cfg, nil
}

// EncodeProviderConfig сериализует конфигурацию для хранения.
func EncodeProviderConfig(cfg ProviderConfig) ([]byte, error) {
	if cfg == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(cfg)
}

// ConfigFor возвращает конфигурацию источника нужного типа, подставляя значения по умолчанию,
// если конфигурация не задана или принадлежит другому провайдеру.
func ConfigFor[T ProviderConfig](src Source) T {
	if cfg, ok := src.Config.(T); ok {
		return cfg
	}
	var zero T
	cfg, err := NewProviderConfig(zero.Provider())
	if err != nil {
		return zero
	}
	typed, _ := cfg.(T)
	return typed
}

func containsString(list []string, value string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}
