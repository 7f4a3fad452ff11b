package telegram

import (
	"context"
	"errors"
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"devfeed/internal/domain"
)

type stubSender struct {
	sent []tgbotapi.MessageConfig
	err  error
}

func (s *stubSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if s.err != nil {
		return tgbotapi.Message{}, s.err
	}
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		s.sent = append(s.sent, msg)
	}
	return tgbotapi.Message{}, nil
}

func testSource() domain.Source {
	return domain.Source{ID: "go-issues", Name: "Go issues", Provider: domain.ProviderIssues,
		BaseURL: "https://github.com/golang/go", Status: domain.StatusOK}
}

func TestAlertNotifierSendsErrorStatus(t *testing.T) {
	sender := &stubSender{}
	n := NewAlertNotifier(sender, 42, zerolog.Nop())

	if err := n.SourceFinished(context.Background(), testSource(), "error: HTTP 500 Internal Server Error"); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("ожидали одно сообщение, получили %d", len(sender.sent))
	}
	msg := sender.sent[0]
	if msg.ChatID != 42 || !strings.Contains(msg.Text, "error: HTTP 500") || !strings.Contains(msg.Text, "go-issues") {
		t.Fatalf("неожиданное сообщение: %+v", msg)
	}
}

func TestAlertNotifierSkipsOKAndRepeatedErrors(t *testing.T) {
	sender := &stubSender{}
	n := NewAlertNotifier(sender, 42, zerolog.Nop())
	ctx := context.Background()

	_ = n.SourceFinished(ctx, testSource(), "ok (3 new)")
	src := testSource()
	src.Status = "error: timeout: GET api.github.com/repos/golang/go/issues"
	_ = n.SourceFinished(ctx, src, src.Status)

	if len(sender.sent) != 0 {
		t.Fatalf("не ожидали сообщений, получили %d", len(sender.sent))
	}
}

func TestAlertNotifierDisabled(t *testing.T) {
	n := NewAlertNotifier(nil, 0, zerolog.Nop())
	if n.Enabled() {
		t.Fatalf("без отправителя уведомитель должен быть выключен")
	}
	if err := n.SourceFinished(context.Background(), testSource(), "error: boom"); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
}

func TestAlertNotifierSendError(t *testing.T) {
	n := NewAlertNotifier(&stubSender{err: errors.New("flood")}, 42, zerolog.Nop())
	if err := n.SourceFinished(context.Background(), testSource(), "error: boom"); err == nil {
		t.Fatalf("ожидали ошибку отправки")
	}
}
