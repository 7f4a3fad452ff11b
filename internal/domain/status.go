package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	// StatusIdle означает, что источник ещё не запускался.
	StatusIdle = "idle"
	// StatusRefreshing выставляется на время прогона.
	StatusRefreshing = "refreshing"
	// StatusOK означает прогон без новых элементов.
	StatusOK = "ok"
	// StatusErrorPrefix начинает любой статус ошибки.
	StatusErrorPrefix = "error: "
)

const maxStatusDetail = 240

// StatusOKWithCount возвращает "ok" или "ok (N new)".
func StatusOKWithCount(created int) string {
	if created <= 0 {
		return StatusOK
	}
	return fmt.Sprintf("ok (%d new)", created)
}

// StatusFromError строит статус "error: <detail>" по типизированной ошибке адаптера.
func StatusFromError(err error) string {
	if err == nil {
		return StatusOK
	}
	var (
		httpErr   *HTTPStatusError
		transport *TransportError
		parseErr  *ParseError
		cfgErr    *ConfigError
	)
	var detail string
	switch {
	case errors.As(err, &cfgErr):
		detail = cfgErr.Error()
	case errors.As(err, &httpErr):
		detail = httpErr.Error()
	case errors.As(err, &transport):
		detail = transport.Error()
	case errors.As(err, &parseErr):
		detail = parseErr.Error()
	default:
		detail = err.Error()
	}
	detail = strings.Join(strings.Fields(detail), " ")
	if runes := []rune(detail); len(runes) > maxStatusDetail {
		detail = string(runes[:maxStatusDetail]) + "…"
	}
	return StatusErrorPrefix + detail
}

// IsErrorStatus сообщает, что статус описывает ошибку.
func IsErrorStatus(status string) bool {
	return strings.HasPrefix(status, StatusErrorPrefix)
}

// IsTerminalStatus сообщает, что статус завершает прогон.
func IsTerminalStatus(status string) bool {
	return status == StatusOK || strings.HasPrefix(status, "ok (") || IsErrorStatus(status)
}

// StatusEvent описывает смену статуса источника.
type StatusEvent struct {
	SourceID string    `json:"source_id"`
	Status   string    `json:"status"`
	Created  int       `json:"created,omitempty"`
	RunID    string    `json:"run_id,omitempty"`
	At       time.Time `json:"at"`
}

const (
	// StatusChannelAll получает события всех источников.
	StatusChannelAll    = "source_status:all"
	statusChannelPrefix = "source_status:"
)

// StatusChannel возвращает канал статусов конкретного источника.
func StatusChannel(sourceID string) string {
	return statusChannelPrefix + sourceID
}
