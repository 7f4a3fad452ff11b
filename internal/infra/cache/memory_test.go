package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryCacheOnce(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()
	calls := 0
	for i := 0; i < 3; i++ {
		if err := c.Once(ctx, "tick:rss:1", time.Minute, func() error { calls++; return nil }); err != nil {
			t.Fatalf("не ожидали ошибку: %v", err)
		}
	}
	if calls != 1 {
		t.Fatalf("ожидали один вызов, получили %d", calls)
	}
}

func TestMemoryCacheOnceReleasesKeyOnError(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()
	boom := errors.New("boom")
	if err := c.Once(ctx, "k", time.Minute, func() error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("ожидали ошибку функции, получили %v", err)
	}
	calls := 0
	_ = c.Once(ctx, "k", time.Minute, func() error { calls++; return nil })
	if calls != 1 {
		t.Fatalf("ключ должен освобождаться после ошибки")
	}
}

func TestMemoryCacheExpiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	_ = c.Set(ctx, "k", []byte("v"), time.Second)
	if v, err := c.Get(ctx, "k"); err != nil || string(v) != "v" {
		t.Fatalf("ожидали значение, получили %q %v", v, err)
	}
	now = now.Add(2 * time.Second)
	if _, err := c.Get(ctx, "k"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("ожидали истечение ключа, получили %v", err)
	}
}
