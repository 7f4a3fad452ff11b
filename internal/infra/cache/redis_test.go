package cache

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// keyHook отвечает на SET NX/GET/DEL из карты в памяти, не обращаясь к серверу.
type keyHook struct {
	mu   sync.Mutex
	keys map[string]string
}

func (h *keyHook) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		return next(ctx, network, addr)
	}
}

func (h *keyHook) ProcessHook(redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		h.mu.Lock()
		defer h.mu.Unlock()
		args := cmd.Args()
		key := fmt.Sprint(args[1])
		switch c := cmd.(type) {
		case *redis.BoolCmd:
			_, exists := h.keys[key]
			if !exists {
				h.keys[key] = fmt.Sprint(args[2])
			}
			c.SetVal(!exists)
		case *redis.StringCmd:
			value, ok := h.keys[key]
			if !ok {
				c.SetErr(redis.Nil)
				return redis.Nil
			}
			c.SetVal(value)
		case *redis.IntCmd:
			delete(h.keys, key)
			c.SetVal(1)
		case *redis.StatusCmd:
			h.keys[key] = toString(args[2])
			c.SetVal("OK")
		}
		return nil
	}
}

func (h *keyHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return next
}

func toString(v any) string {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return fmt.Sprint(v)
}

func newHookedCache(t *testing.T) *RedisCache {
	t.Helper()
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	client.AddHook(&keyHook{keys: map[string]string{}})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedis(client)
}

func TestRedisCacheOnceAcrossCalls(t *testing.T) {
	c := newHookedCache(t)
	ctx := context.Background()
	calls := 0
	for i := 0; i < 3; i++ {
		if err := c.Once(ctx, "tick:rss:1", time.Minute, func() error { calls++; return nil }); err != nil {
			t.Fatalf("не ожидали ошибку: %v", err)
		}
	}
	if calls != 1 {
		t.Fatalf("ожидали один вызов, получили %d", calls)
	}

	boom := errors.New("boom")
	if err := c.Once(ctx, "tick:retention:1", time.Minute, func() error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("ожидали ошибку функции, получили %v", err)
	}
	calls = 0
	_ = c.Once(ctx, "tick:retention:1", time.Minute, func() error { calls++; return nil })
	if calls != 1 {
		t.Fatalf("ключ должен освобождаться после ошибки")
	}
}

func TestRedisCacheGetMissingKey(t *testing.T) {
	c := newHookedCache(t)
	ctx := context.Background()
	if _, err := c.Get(ctx, "refresh_attempt:missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("ожидали ErrNotFound, получили %v", err)
	}
	if err := c.Set(ctx, "refresh_attempt:j1", []byte("2"), time.Hour); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if v, err := c.Get(ctx, "refresh_attempt:j1"); err != nil || string(v) != "2" {
		t.Fatalf("ожидали значение 2, получили %q %v", v, err)
	}
}
