// Package services содержит рассылку сообщения администратора всем пользователям.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/duragon35SG/habit-bot/internal/lib/sl"
	"github.com/duragon35SG/habit-bot/internal/metrics"
	"github.com/duragon35SG/habit-bot/internal/models"
	"github.com/duragon35SG/habit-bot/internal/transport"
)

const defaultWorkers = 10

var (
	// ErrForbidden отправитель не администратор.
	ErrForbidden = errors.New("broadcast is allowed for admins only")
	// ErrEmptyMessage пустой текст рассылки.
	ErrEmptyMessage = errors.New("broadcast message is empty")
)

// UserRepository определяет методы хранилища пользователей для рассылки.
type UserRepository interface {
	ListActiveUsers(ctx context.Context) ([]models.User, error)
	DeactivateUser(ctx context.Context, userID string) error
}

// Transport исходящая сторона чат-транспорта.
type Transport interface {
	Send(ctx context.Context, userID string, msg transport.OutMessage) error
}

// Authorizer проверяет права администратора.
type Authorizer interface {
	IsAdmin(userID string) bool
}

// Result итог рассылки.
type Result struct {
	Delivered int
	Total     int
}

func (r Result) String() string {
	return fmt.Sprintf("%d/%d", r.Delivered, r.Total)
}

// BroadcastService рассылает сообщение всем активным пользователям.
type BroadcastService struct {
	users     UserRepository
	transport Transport
	admins    Authorizer
	workers   int
	timeout   time.Duration
	metrics   *metrics.Metrics
	log       *slog.Logger
}

// NewBroadcastService создает новый экземпляр BroadcastService. timeout ограничивает одну отправку.
func NewBroadcastService(
	users UserRepository,
	t Transport,
	admins Authorizer,
	timeout time.Duration,
	m *metrics.Metrics,
	log *slog.Logger,
) *BroadcastService {
	return &BroadcastService{
		users:     users,
		transport: t,
		admins:    admins,
		workers:   defaultWorkers,
		timeout:   timeout,
		metrics:   m,
		log:       log,
	}
}

// Broadcast отправляет text каждому активному пользователю. Ошибка доставки одному
// получателю не прерывает рассылку. Возвращает ErrForbidden, если senderID не администратор.
func (s *BroadcastService) Broadcast(ctx context.Context, senderID, text string) (Result, error) {
	const op = "services.broadcast.Broadcast"
	if !s.admins.IsAdmin(senderID) {
		s.log.Warn("broadcast rejected", sl.User(senderID))
		return Result{}, ErrForbidden
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return Result{}, ErrEmptyMessage
	}

	users, err := s.users.ListActiveUsers(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", op, err)
	}

	var (
		delivered atomic.Int64
		wg        sync.WaitGroup
		sem       = make(chan struct{}, s.workers)
	)
	for _, u := range users {
		sem <- struct{}{}
		wg.Add(1)
		go func(userID string) {
			defer wg.Done()
			defer func() { <-sem }()
			if s.deliver(ctx, userID, text) {
				delivered.Add(1)
			}
		}(u.ID)
	}
	wg.Wait()

	res := Result{Delivered: int(delivered.Load()), Total: len(users)}
	s.log.Info("broadcast finished", sl.User(senderID), slog.String("result", res.String()))
	return res, nil
}

func (s *BroadcastService) deliver(ctx context.Context, userID, text string) bool {
	sendCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		sendCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	err := s.transport.Send(sendCtx, userID, transport.OutMessage{Text: text})
	s.metrics.Broadcast(err == nil)
	if err == nil {
		return true
	}

	s.log.Warn("broadcast delivery failed", sl.User(userID), sl.Err(err))
	if errors.Is(err, transport.ErrRecipientUnavailable) {
		if deErr := s.users.DeactivateUser(context.WithoutCancel(ctx), userID); deErr != nil {
			s.log.Error("failed to deactivate user", sl.User(userID), sl.Err(deErr))
		}
	}
	return false
}
