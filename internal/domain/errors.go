package domain

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// HTTPStatusError возвращается, если внешний сервис ответил не-2xx статусом.
type HTTPStatusError struct {
	Code   int
	Reason string
}

func (e *HTTPStatusError) Error() string {
	reason := strings.TrimSpace(e.Reason)
	if reason == "" {
		reason = http.StatusText(e.Code)
	}
	if reason == "" {
		return fmt.Sprintf("HTTP %d", e.Code)
	}
	return fmt.Sprintf("HTTP %d %s", e.Code, reason)
}

// TransportError описывает сетевую ошибку до получения ответа, например таймаут.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	if e.Timeout() {
		return "timeout: " + e.Op
	}
	return fmt.Sprintf("connection failed: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Timeout сообщает, что вызов упал по таймауту.
func (e *TransportError) Timeout() bool {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(e.Err, &netErr) && netErr.Timeout()
}

// ParseError возвращается, если ответ не удалось разобрать как JSON/XML.
type ParseError struct {
	Format string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Format, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ConfigError означает, что источник настроен неверно и запросы не выполнялись.
type ConfigError struct {
	Detail string
}

func (e *ConfigError) Error() string { return e.Detail }

var (
	// ErrSourceNotFound возвращается, если источник с таким идентификатором не найден.
	ErrSourceNotFound = errors.New("source not found")
	// ErrNoAdapter возвращается, если для провайдера не зарегистрирован адаптер.
	ErrNoAdapter = errors.New("no adapter registered for provider")
)

// Конфигурационные ошибки с фиксированным текстом статуса.
var (
	ErrInvalidCommunityURL  = &ConfigError{Detail: "invalid community URL"}
	ErrInvalidRepositoryURL = &ConfigError{Detail: "invalid repository URL"}
	ErrInvalidFeedURL       = &ConfigError{Detail: "invalid feed URL"}
	ErrInvalidForumURL      = &ConfigError{Detail: "invalid forum URL"}
)
