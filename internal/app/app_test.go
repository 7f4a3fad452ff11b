package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"devfeed/internal/domain"
	"devfeed/internal/infra/config"
	"devfeed/internal/infra/db"
)

func sqliteConfig() config.AppConfig {
	var cfg config.AppConfig
	cfg.Store.Driver = config.StoreDriverSQLite
	cfg.Store.SQLitePath = db.MemoryDSN
	cfg.Queues.Backend = config.QueueBackendRedis
	cfg.Queues.Refresh = "refresh_jobs"
	cfg.Schedule.Parallelism = 2
	cfg.Schedule.RunTimeout = time.Minute
	return cfg
}

func TestNewWithSQLiteAndSyncSources(t *testing.T) {
	ctx := context.Background()
	a, err := New(ctx, sqliteConfig(), zerolog.Nop())
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	defer a.Close()

	if len(a.Registry.Providers()) != len(domain.ProviderTypes) {
		t.Fatalf("ожидали все провайдеры, получили %v", a.Registry.Providers())
	}

	path := filepath.Join(t.TempDir(), "sources.yaml")
	data := []byte(`
sources:
  - id: r-golang
    provider: reddit
    url: https://www.reddit.com/r/golang
    config:
      max_items: 10
`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("не удалось записать файл: %v", err)
	}
	saved, err := a.SyncSources(ctx, path)
	if err != nil || len(saved) != 1 {
		t.Fatalf("ожидали один источник: %+v %v", saved, err)
	}
	if err := a.Store.UpdateSourceStatus(ctx, "r-golang", "ok (2 new)", nil); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if _, err := a.SyncSources(ctx, path); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	src, err := a.Store.GetSource(ctx, "r-golang")
	if err != nil || src.Status != "ok (2 new)" {
		t.Fatalf("повторная синхронизация не должна сбрасывать статус: %+v %v", src, err)
	}
}

func TestRefreshQueueRequiresRedis(t *testing.T) {
	a, err := New(context.Background(), sqliteConfig(), zerolog.Nop())
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	defer a.Close()
	if _, err := a.RefreshQueue(); err == nil {
		t.Fatalf("очередь redis без REDIS_ADDR должна возвращать ошибку")
	}
}

func TestNewRejectsUnknownDriver(t *testing.T) {
	cfg := sqliteConfig()
	cfg.Store.Driver = "mongo"
	if _, err := New(context.Background(), cfg, zerolog.Nop()); err == nil {
		t.Fatalf("ожидали ошибку для неизвестного драйвера")
	}
}
