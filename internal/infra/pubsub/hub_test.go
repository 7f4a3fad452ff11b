package pubsub

import (
	"context"
	"testing"
	"time"

	"devfeed/internal/domain"
)

func TestHubDeliversInOrder(t *testing.T) {
	hub := NewHub()
	sub := hub.Subscribe(domain.StatusChannel("rss-go"))
	defer sub.Close()
	other := hub.Subscribe(domain.StatusChannel("other"))
	defer other.Close()

	ctx := context.Background()
	for _, status := range []string{domain.StatusRefreshing, "ok (2 new)"} {
		if err := hub.Publish(ctx, domain.StatusChannel("rss-go"), domain.StatusEvent{SourceID: "rss-go", Status: status}); err != nil {
			t.Fatalf("не ожидали ошибку: %v", err)
		}
	}

	first := <-sub.C
	second := <-sub.C
	if first.Status != domain.StatusRefreshing || second.Status != "ok (2 new)" {
		t.Fatalf("нарушен порядок событий: %q, %q", first.Status, second.Status)
	}
	if len(other.C) != 0 {
		t.Fatalf("событие попало в чужой канал")
	}
}

func TestHubClosedSubscriptionStopsReceiving(t *testing.T) {
	hub := NewHub()
	sub := hub.Subscribe(domain.StatusChannelAll)
	sub.Close()
	sub.Close()
	if err := hub.Publish(context.Background(), domain.StatusChannelAll, domain.StatusEvent{Status: "ok"}); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if _, ok := <-sub.C; ok {
		t.Fatalf("ожидали закрытый канал подписки")
	}
}

func fill(t *testing.T, hub *Hub, channel string) {
	t.Helper()
	for i := 0; i < defaultBuffer; i++ {
		if err := hub.Publish(context.Background(), channel, domain.StatusEvent{Status: domain.StatusRefreshing}); err != nil {
			t.Fatalf("не ожидали ошибку: %v", err)
		}
	}
}

func TestHubDropsSlowSubscriber(t *testing.T) {
	hub := NewHub()
	hub.slowTimeout = 20 * time.Millisecond
	stalled := hub.Subscribe(domain.StatusChannelAll)
	fill(t, hub, domain.StatusChannelAll)

	done := make(chan error, 1)
	go func() {
		done <- hub.Publish(context.WithoutCancel(context.Background()), domain.StatusChannelAll, domain.StatusEvent{Status: "ok"})
	}()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("не ожидали ошибку: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("публикация зависла на медленном подписчике")
	}

	received := 0
	for range stalled.C {
		received++
	}
	if received != defaultBuffer {
		t.Fatalf("ожидали %d событий до отключения, получили %d", defaultBuffer, received)
	}
}

func TestHubCloseUnblocksPublish(t *testing.T) {
	hub := NewHub()
	hub.slowTimeout = time.Hour
	stalled := hub.Subscribe(domain.StatusChannelAll)
	fill(t, hub, domain.StatusChannelAll)

	done := make(chan error, 1)
	go func() {
		done <- hub.Publish(context.Background(), domain.StatusChannelAll, domain.StatusEvent{Status: "ok"})
	}()
	time.Sleep(20 * time.Millisecond)

	closed := make(chan struct{})
	go func() {
		stalled.Close()
		close(closed)
	}()
	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatalf("Close завис во время публикации")
	}
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("не ожидали ошибку: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("публикация не завершилась после Close")
	}
}
