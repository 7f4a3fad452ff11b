package pubsub

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"devfeed/internal/domain"
)

const (
	defaultBuffer         = 64
	slowSubscriberTimeout = 5 * time.Second
)

// Subscription описывает подписку на канал. События приходят в порядке публикации.
// Канал C закрывается после Close или если подписчик не успевает читать события.
type Subscription struct {
	C <-chan domain.StatusEvent

	hub     *Hub
	channel string
	ch      chan domain.StatusEvent
	done    chan struct{}
	once    sync.Once

	mu     sync.Mutex
	closed bool
}

// Close отписывается от канала.
func (s *Subscription) Close() {
	s.once.Do(func() {
		close(s.done)
		s.hub.remove(s)
		s.mu.Lock()
		s.closed = true
		close(s.ch)
		s.mu.Unlock()
	})
}

// deliver отправляет событие подписчику. false означает, что подписчик не читал события
// дольше timeout.
func (s *Subscription) deliver(ctx context.Context, event domain.StatusEvent, timeout time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return true, nil
	}
	select {
	case s.ch <- event:
		return true, nil
	default:
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case s.ch <- event:
		return true, nil
	case <-s.done:
		return true, nil
	case <-timer.C:
		return false, nil
	case <-ctx.Done():
		return true, ctx.Err()
	}
}

// Hub публикует события внутри процесса. Используется в локальном режиме, CLI и тестах.
// Publish ждёт, пока каждый подписчик примет событие, поэтому порядок событий одного
// источника сохраняется. Подписчик, который не читает события дольше slowTimeout, отключается.
type Hub struct {
	mu          sync.RWMutex
	subs        map[string]map[*Subscription]struct{}
	slowTimeout time.Duration
	log         zerolog.Logger
}

// NewHub создаёт пустой хаб.
func NewHub() *Hub {
	return &Hub{
		subs:        make(map[string]map[*Subscription]struct{}),
		slowTimeout: slowSubscriberTimeout,
		log:         zerolog.Nop(),
	}
}

// WithLogger задаёт журнал для сообщений об отключённых подписчиках.
func (h *Hub) WithLogger(log zerolog.Logger) *Hub {
	h.log = log
	return h
}

// Subscribe подписывается на канал.
func (h *Hub) Subscribe(channel string) *Subscription {
	ch := make(chan domain.StatusEvent, defaultBuffer)
	sub := &Subscription{C: ch, hub: h, channel: channel, ch: ch, done: make(chan struct{})}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[channel] == nil {
		h.subs[channel] = make(map[*Subscription]struct{})
	}
	h.subs[channel][sub] = struct{}{}
	return sub
}

// Publish рассылает событие подписчикам канала. Блокировка хаба на время отправки не удерживается.
func (h *Hub) Publish(ctx context.Context, channel string, event domain.StatusEvent) error {
	h.mu.RLock()
	subs := make([]*Subscription, 0, len(h.subs[channel]))
	for sub := range h.subs[channel] {
		subs = append(subs, sub)
	}
	h.mu.RUnlock()

	for _, sub := range subs {
		ok, err := sub.deliver(ctx, event, h.slowTimeout)
		if err != nil {
			return err
		}
		if !ok {
			h.log.Warn().Str("channel", channel).Msg("pubsub: slow subscriber dropped")
			sub.Close()
		}
	}
	return nil
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if subs, ok := h.subs[sub.channel]; ok {
		delete(subs, sub)
		if len(subs) == 0 {
			delete(h.subs, sub.channel)
		}
	}
}
