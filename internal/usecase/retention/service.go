// Package retention удаляет элементы старше настроенного срока хранения.
package retention

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"devfeed/internal/infra/metrics"
)

// DefaultDays используется, если ни один пользователь не настроил срок хранения.
const DefaultDays = 30

// Repository описывает часть хранилища, нужную очистке.
type Repository interface {
	MaxPostRetentionDays(ctx context.Context) (int, bool, error)
	DeletePostsPostedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Service удаляет элементы старше самого длинного настроенного срока хранения.
type Service struct {
	repo Repository
	log  zerolog.Logger
	now  func() time.Time
}

// NewService создаёт сервис очистки.
func NewService(repo Repository, log zerolog.Logger) *Service {
	return &Service{repo: repo, log: log, now: time.Now}
}

// RetentionDays возвращает максимум пользовательских настроек или DefaultDays, если настроек нет.
func (s *Service) RetentionDays(ctx context.Context) (int, error) {
	days, ok, err := s.repo.MaxPostRetentionDays(ctx)
	if err != nil {
		return 0, fmt.Errorf("retention: чтение настроек: %w", err)
	}
	if !ok || days <= 0 {
		return DefaultDays, nil
	}
	return days, nil
}

// Sweep удаляет элементы с posted_at строго раньше now - retention_days.
func (s *Service) Sweep(ctx context.Context) (int64, error) {
	days, err := s.RetentionDays(ctx)
	if err != nil {
		return 0, err
	}
	cutoff := s.now().UTC().AddDate(0, 0, -days)
	deleted, err := s.repo.DeletePostsPostedBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("retention: удаление: %w", err)
	}
	metrics.AddRetentionDeleted(deleted)
	s.log.Info().Int("days", days).Time("cutoff", cutoff).Int64("deleted", deleted).Msg("retention: sweep finished")
	return deleted, nil
}
