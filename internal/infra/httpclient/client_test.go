package httpclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"devfeed/internal/domain"
)

func TestGetMapsHTTPStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"message":"API rate limit exceeded"}`))
	}))
	defer srv.Close()

	_, err := New(Options{}).Get(context.Background(), srv.URL+"/x", nil)
	var httpErr *domain.HTTPStatusError
	if !errors.As(err, &httpErr) || httpErr.Code != http.StatusForbidden {
		t.Fatalf("ожидали HTTPStatusError 403, получили %v", err)
	}
	if got := domain.StatusFromError(err); got != "error: HTTP 403 API rate limit exceeded" {
		t.Fatalf("неожиданный статус: %q", got)
	}
}

func TestGetTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	_, err := New(Options{Timeout: 50 * time.Millisecond}).Get(context.Background(), srv.URL, nil)
	var transport *domain.TransportError
	if !errors.As(err, &transport) || !transport.Timeout() {
		t.Fatalf("ожидали таймаут, получили %v", err)
	}
}

func TestGetJSONParseError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"broken":`))
	}))
	defer srv.Close()

	var out map[string]any
	err := New(Options{}).GetJSON(context.Background(), srv.URL, nil, &out)
	var parseErr *domain.ParseError
	if !errors.As(err, &parseErr) || parseErr.Format != "JSON" {
		t.Fatalf("ожидали ParseError JSON, получили %v", err)
	}
}

func TestGetSendsHeaders(t *testing.T) {
	var gotAuth, gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotUA = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	header := http.Header{}
	header.Set("Authorization", "token abc")
	if _, err := New(Options{UserAgent: "devfeed-test"}).Get(context.Background(), srv.URL, header); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if gotAuth != "token abc" || gotUA != "devfeed-test" {
		t.Fatalf("неожиданные заголовки: %q %q", gotAuth, gotUA)
	}
}

func TestGetRejectsInvalidURL(t *testing.T) {
	_, err := New(Options{}).Get(context.Background(), "ftp://example.com/feed", nil)
	var cfgErr *domain.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("ожидали ConfigError, получили %v", err)
	}
}

func TestParseBaseURL(t *testing.T) {
	if got, ok := ParseBaseURL("https://discuss.rubyonrails.org/"); !ok || got != "https://discuss.rubyonrails.org" {
		t.Fatalf("неожиданный адрес: %q %v", got, ok)
	}
	if _, ok := ParseBaseURL("not a url"); ok {
		t.Fatalf("ожидали отказ для некорректного адреса")
	}
}
