package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"devfeed/internal/domain"
)

func TestMemoryRefreshQueueOrderAndRequeue(t *testing.T) {
	q := NewMemoryRefreshQueue()
	ctx := context.Background()
	_ = q.Enqueue(ctx, domain.RefreshJob{ID: "1", Kind: domain.RefreshKindSource, SourceID: "a"})
	_ = q.Enqueue(ctx, domain.RefreshJob{ID: "2", Kind: domain.RefreshKindSweep})

	job, ack, err := q.Receive(ctx)
	if err != nil || job.ID != "1" {
		t.Fatalf("ожидали задачу 1, получили %+v %v", job, err)
	}
	if err := ack(false); err != nil {
		t.Fatalf("не ожидали ошибку повтора: %v", err)
	}

	job, ack, _ = q.Receive(ctx)
	if job.ID != "2" {
		t.Fatalf("ожидали задачу 2, получили %+v", job)
	}
	_ = ack(true)

	job, _, _ = q.Receive(ctx)
	if job.ID != "1" {
		t.Fatalf("ожидали повторную доставку задачи 1, получили %+v", job)
	}
	if q.Len() != 0 {
		t.Fatalf("очередь должна быть пустой")
	}
}

func TestMemoryRefreshQueueReceiveHonoursContext(t *testing.T) {
	q := NewMemoryRefreshQueue()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, _, err := q.Receive(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("ожидали DeadlineExceeded, получили %v", err)
	}
}

func TestMemoryRefreshQueueWakesWaiter(t *testing.T) {
	q := NewMemoryRefreshQueue()
	done := make(chan domain.RefreshJob, 1)
	go func() {
		job, _, _ := q.Receive(context.Background())
		done <- job
	}()
	time.Sleep(10 * time.Millisecond)
	_ = q.Enqueue(context.Background(), domain.RefreshJob{ID: "late"})
	select {
	case job := <-done:
		if job.ID != "late" {
			t.Fatalf("неожиданная задача: %+v", job)
		}
	case <-time.After(time.Second):
		t.Fatalf("ожидающий получатель не проснулся")
	}
}
