package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"devfeed/internal/domain"
	"devfeed/internal/infra/metrics"
)

// Sender покрывает часть *tgbotapi.BotAPI, нужную для отправки сообщений.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// AlertNotifier пересылает в чат сообщения об ошибках прогонов источников.
type AlertNotifier struct {
	sender Sender
	chatID int64
	log    zerolog.Logger
}

// NewAlertNotifier создаёт уведомитель. Без отправителя или чата уведомления не отправляются.
func NewAlertNotifier(sender Sender, chatID int64, log zerolog.Logger) *AlertNotifier {
	return &AlertNotifier{sender: sender, chatID: chatID, log: log}
}

// NewBotSender подключается к Bot API по токену.
func NewBotSender(token string) (*tgbotapi.BotAPI, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram: подключение к bot api: %w", err)
	}
	return bot, nil
}

// Enabled сообщает, настроена ли отправка.
func (n *AlertNotifier) Enabled() bool {
	return n != nil && n.sender != nil && n.chatID != 0
}

// SourceFinished отправляет уведомление, если прогон закончился ошибкой,
// а предыдущий статус источника был другим. Повторяющиеся ошибки не дублируются.
func (n *AlertNotifier) SourceFinished(ctx context.Context, src domain.Source, status string) error {
	if !n.Enabled() || !domain.IsErrorStatus(status) || src.Status == status {
		return nil
	}
	return n.send(ctx, FormatAlert(src, status))
}

// FormatAlert собирает текст уведомления об ошибке источника.
func FormatAlert(src domain.Source, status string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "⚠️ %s (%s)\n", src.Name, src.Provider)
	fmt.Fprintf(&b, "id: %s\n", src.ID)
	if src.BaseURL != "" {
		fmt.Fprintf(&b, "url: %s\n", src.BaseURL)
	}
	b.WriteString(status)
	return b.String()
}

func (n *AlertNotifier) send(ctx context.Context, text string) error {
	target := strconv.FormatInt(n.chatID, 10)
	for _, part := range SplitMessage(text) {
		if err := ctx.Err(); err != nil {
			return err
		}
		start := time.Now()
		_, err := n.sender.Send(tgbotapi.NewMessage(n.chatID, part))
		metrics.ObserveNetworkRequest("telegram_alert", "send_message", target, start, err)
		if err != nil {
			n.log.Error().Err(err).Int64("chat_id", n.chatID).Msg("telegram: alert not sent")
			return fmt.Errorf("telegram: отправка уведомления: %w", err)
		}
	}
	return nil
}
