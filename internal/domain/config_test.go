package domain

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDecodeProviderConfigDefaults(t *testing.T) {
	cfg, err := DecodeProviderConfig(ProviderHackerNews, nil)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	hn, ok := cfg.(*HackerNewsConfig)
	if !ok {
		t.Fatalf("ожидали *HackerNewsConfig, получили %T", cfg)
	}
	want := &HackerNewsConfig{StoryTypes: []string{"top"}, Keywords: []string{}, MaxItems: 30}
	if diff := cmp.Diff(want, hn); diff != "" {
		t.Fatalf("неожиданная конфигурация (-want +got):\n%s", diff)
	}
}

func TestDecodeProviderConfigRejectsUnknownKeys(t *testing.T) {
	_, err := DecodeProviderConfig(ProviderReddit, []byte(`{"keywords":["go"],"subreddit":"golang"}`))
	if err == nil {
		t.Fatalf("ожидали ошибку для неизвестного ключа")
	}
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("ожидали ErrInvalidConfig, получили %v", err)
	}
}

func TestDecodeProviderConfigValidatesEnums(t *testing.T) {
	cases := []struct {
		provider ProviderType
		raw      string
	}{
		{ProviderTrending, `{"since":"yearly"}`},
		{ProviderHackerNews, `{"story_types":["top","hot"]}`},
		{ProviderHackerNews, `{"story_types":["job"]}`},
		{ProviderIssues, `{"state":"merged"}`},
		{ProviderDiscourse, `{"max_pages":50}`},
		{ProviderRSS, `{"max_items":-1}`},
	}
	for _, tc := range cases {
		if _, err := DecodeProviderConfig(tc.provider, []byte(tc.raw)); err == nil {
			t.Fatalf("ожидали ошибку для %s %s", tc.provider, tc.raw)
		}
	}
}

func TestDecodeProviderConfigTrending(t *testing.T) {
	cfg, err := DecodeProviderConfig(ProviderTrending, []byte(`{"since":"Daily","language":"go","topics":["cli","cli"," "]}`))
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	tr := cfg.(*TrendingConfig)
	if tr.Since != "daily" || tr.MaxItems != 30 || tr.Language != "go" {
		t.Fatalf("неожиданная конфигурация: %+v", tr)
	}
	if diff := cmp.Diff([]string{"cli"}, tr.Topics); diff != "" {
		t.Fatalf("темы должны быть очищены (-want +got):\n%s", diff)
	}
}

func TestDecodeProviderConfigUnknownProvider(t *testing.T) {
	if _, err := DecodeProviderConfig("mastodon", nil); err == nil {
		t.Fatalf("ожидали ошибку для неизвестного провайдера")
	}
}

func TestConfigForFallsBackToDefaults(t *testing.T) {
	src := Source{Provider: ProviderIssues}
	cfg := ConfigFor[*IssuesConfig](src)
	if cfg == nil || cfg.State != "open" || cfg.PerPage != 30 {
		t.Fatalf("ожидали конфигурацию по умолчанию, получили %+v", cfg)
	}

	src.Config = &IssuesConfig{State: "closed", PerPage: 5, MaxPages: 2}
	cfg = ConfigFor[*IssuesConfig](src)
	if cfg.State != "closed" || cfg.PerPage != 5 {
		t.Fatalf("ожидали конфигурацию источника, получили %+v", cfg)
	}
}

func TestEncodeProviderConfigRoundTrip(t *testing.T) {
	original := &IssuesConfig{Labels: []string{"bug"}, Token: "secret", State: "all", PerPage: 10, MaxPages: 3}
	raw, err := EncodeProviderConfig(original)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	decoded, err := DecodeProviderConfig(ProviderIssues, raw)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if diff := cmp.Diff(original, decoded); diff != "" {
		t.Fatalf("конфигурация изменилась (-want +got):\n%s", diff)
	}
}
