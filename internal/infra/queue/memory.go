package queue

import (
	"context"
	"sync"

	"devfeed/internal/domain"
)

// MemoryRefreshQueue хранит задачи в памяти процесса. Используется в локальном режиме и тестах.
type MemoryRefreshQueue struct {
	mu    sync.Mutex
	jobs  []domain.RefreshJob
	ready chan struct{}
}

// NewMemoryRefreshQueue создаёт пустую очередь.
func NewMemoryRefreshQueue() *MemoryRefreshQueue {
	return &MemoryRefreshQueue{ready: make(chan struct{}, 1)}
}

// Enqueue добавляет задачу в конец очереди.
func (q *MemoryRefreshQueue) Enqueue(_ context.Context, job domain.RefreshJob) error {
	q.mu.Lock()
	q.jobs = append(q.jobs, job)
	q.mu.Unlock()
	q.signal()
	return nil
}

// Receive возвращает первую задачу, ожидая её появления.
func (q *MemoryRefreshQueue) Receive(ctx context.Context) (domain.RefreshJob, domain.RefreshAckFunc, error) {
	for {
		q.mu.Lock()
		if len(q.jobs) > 0 {
			job := q.jobs[0]
			q.jobs = q.jobs[1:]
			remaining := len(q.jobs)
			q.mu.Unlock()
			if remaining > 0 {
				q.signal()
			}
			ack := func(success bool) error {
				if success {
					return nil
				}
				return q.Enqueue(context.Background(), job)
			}
			return job, ack, nil
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return domain.RefreshJob{}, nil, ctx.Err()
		case <-q.ready:
		}
	}
}

// Len возвращает количество задач в очереди.
func (q *MemoryRefreshQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}

func (q *MemoryRefreshQueue) signal() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}
