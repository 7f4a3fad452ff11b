package domain

import (
	"context"
	"time"
)

// RefreshJobCause описывает источник запроса на прогон.
type RefreshJobCause string

const (
	// Прогон запрошен вручную.
	RefreshCauseManual RefreshJobCause = "manual"
	// Прогон поставлен по расписанию.
	RefreshCauseScheduled RefreshJobCause = "scheduled"
)

// RefreshJobKind определяет, что именно нужно выполнить.
type RefreshJobKind string

const (
	// Прогон одного источника.
	RefreshKindSource RefreshJobKind = "source"
	// Прогон всех активных источников провайдера.
	RefreshKindProvider RefreshJobKind = "provider"
	// Очистка устаревших элементов.
	RefreshKindSweep RefreshJobKind = "sweep"
)

// RefreshJob содержит информацию о задаче обновления.
type RefreshJob struct {
	ID          string          `json:"job_id,omitempty"`
	Kind        RefreshJobKind  `json:"kind"`
	SourceID    string          `json:"source_id,omitempty"`
	Provider    ProviderType    `json:"provider,omitempty"`
	RequestedAt time.Time       `json:"requested_at"`
	Cause       RefreshJobCause `json:"cause"`
}

// RefreshQueue описывает очередь задач обновления.
type RefreshQueue interface {
	Enqueue(ctx context.Context, job RefreshJob) error
	Receive(ctx context.Context) (RefreshJob, RefreshAckFunc, error)
}

// RefreshAckFunc подтверждает успешную обработку или запрашивает повтор доставки задачи.
type RefreshAckFunc func(success bool) error
