package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestSourcesSyncAndList(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("STORE_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", filepath.Join(dir, "devfeed.db"))
	t.Setenv("REDIS_ADDR", "")

	file := filepath.Join(dir, "sources.yaml")
	data := []byte(`
sources:
  - id: go-blog
    provider: rss
    url: https://go.dev/blog/feed.atom
  - id: r-golang
    provider: reddit
    url: https://www.reddit.com/r/golang
    auto_fetch_enabled: false
`)
	if err := os.WriteFile(file, data, 0o600); err != nil {
		t.Fatalf("не удалось записать файл: %v", err)
	}

	out, err := execute(t, "sources", "sync", "--file", file)
	if err != nil {
		t.Fatalf("sync: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Синхронизировано источников: 2") {
		t.Fatalf("неожиданный вывод: %s", out)
	}

	out, err = execute(t, "sources", "list")
	if err != nil {
		t.Fatalf("list: %v\n%s", err, out)
	}
	for _, want := range []string{"go-blog", "r-golang", "idle"} {
		if !strings.Contains(out, want) {
			t.Fatalf("в выводе нет %q:\n%s", want, out)
		}
	}

	out, err = execute(t, "sweep")
	if err != nil || !strings.Contains(out, "удалено: 0") {
		t.Fatalf("sweep: %v\n%s", err, out)
	}
}
