// Package services доставляет напоминания пользователям через чат-транспорт
// напрямую или через очередь RabbitMQ.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/duragon35SG/habit-bot/internal/lib/sl"
	"github.com/duragon35SG/habit-bot/internal/metrics"
	"github.com/duragon35SG/habit-bot/internal/models"
	"github.com/duragon35SG/habit-bot/internal/rabbitmq"
	"github.com/duragon35SG/habit-bot/internal/transport"
)

// Transport исходящая сторона чат-транспорта.
type Transport interface {
	Send(ctx context.Context, userID string, msg transport.OutMessage) error
}

// UserDeactivator помечает пользователя неактивным.
type UserDeactivator interface {
	DeactivateUser(ctx context.Context, userID string) error
}

// SenderService отправляет напоминания через транспорт.
type SenderService struct {
	transport Transport
	users     UserDeactivator
	timeout   time.Duration
	metrics   *metrics.Metrics
	log       *slog.Logger
}

// NewSenderService создает новый экземпляр SenderService. timeout ограничивает одну отправку.
func NewSenderService(t Transport, users UserDeactivator, timeout time.Duration, m *metrics.Metrics, log *slog.Logger) *SenderService {
	return &SenderService{
		transport: t,
		users:     users,
		timeout:   timeout,
		metrics:   m,
		log:       log,
	}
}

// ReminderText текст напоминания со списком привычек.
func ReminderText(n models.Notification) string {
	var b strings.Builder
	b.WriteString("⏰ Напоминание! Не забудь про свои привычки:\n")
	for _, h := range n.Habits {
		b.WriteString("• ")
		b.WriteString(h)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// Notify отправляет напоминание. Если пользователь заблокировал бота, он деактивируется.
func (s *SenderService) Notify(ctx context.Context, n models.Notification) error {
	const op = "services.sender.Notify"
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	err := s.transport.Send(ctx, n.UserID, transport.OutMessage{Text: ReminderText(n)})
	s.metrics.Reminder(err == nil)
	if err == nil {
		s.log.Info("reminder sent", sl.User(n.UserID), slog.String("slot", n.Slot))
		return nil
	}

	if errors.Is(err, transport.ErrRecipientUnavailable) {
		s.log.Warn("recipient unavailable, deactivating user", sl.User(n.UserID))
		if deErr := s.users.DeactivateUser(context.WithoutCancel(ctx), n.UserID); deErr != nil {
			s.log.Error("failed to deactivate user", sl.User(n.UserID), sl.Err(deErr))
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

// HandleDelivery обрабатывает сообщение из очереди напоминаний.
func (s *SenderService) HandleDelivery(body []byte) error {
	var n models.Notification
	if err := json.Unmarshal(body, &n); err != nil {
		s.log.Error("failed to unmarshal message body", sl.Err(err))
		return fmt.Errorf("error unmarshalling message: %w", err)
	}
	if n.UserID == "" {
		return errors.New("notification without user id")
	}
	return s.Notify(context.Background(), n)
}

// QueueNotifier публикует напоминания в очередь вместо прямой отправки.
type QueueNotifier struct {
	ch  rabbitmq.Publisher
	log *slog.Logger
}

// NewQueueNotifier создает новый экземпляр QueueNotifier.
func NewQueueNotifier(ch rabbitmq.Publisher, log *slog.Logger) *QueueNotifier {
	return &QueueNotifier{ch: ch, log: log}
}

// Notify публикует напоминание в exchange уведомлений.
func (q *QueueNotifier) Notify(_ context.Context, n models.Notification) error {
	const op = "services.sender.QueueNotifier.Notify"
	if err := rabbitmq.PublishReminder(q.ch, n); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	q.log.Debug("reminder queued", sl.User(n.UserID), slog.String("slot", n.Slot))
	return nil
}
