// Package services содержит бизнес-логику ежедневных напоминаний.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/duragon35SG/habit-bot/internal/lib/timeofday"
	"github.com/duragon35SG/habit-bot/internal/models"
)

// ErrInvalidTime время напоминания не в формате ЧЧ:ММ.
var ErrInvalidTime = errors.New("invalid reminder time")

// ReminderRepository определяет методы хранилища напоминаний.
type ReminderRepository interface {
	SetReminder(ctx context.Context, userID, timeOfDay string) error
	GetReminder(ctx context.Context, userID string) (*models.Reminder, error)
	AllReminders(ctx context.Context) ([]models.Reminder, error)
}

// ReminderService проверяет и сохраняет время напоминаний.
type ReminderService struct {
	repo ReminderRepository
	log  *slog.Logger
}

// NewReminderService создает новый экземпляр ReminderService.
func NewReminderService(repo ReminderRepository, log *slog.Logger) *ReminderService {
	return &ReminderService{
		repo: repo,
		log:  log,
	}
}

// Set проверяет raw и сохраняет напоминание. Возвращает нормализованное время ЧЧ:ММ.
func (s *ReminderService) Set(ctx context.Context, userID, raw string) (string, error) {
	const op = "services.reminder.Set"
	slot, err := timeofday.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidTime, raw)
	}
	if err := s.repo.SetReminder(ctx, userID, slot); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("reminder set", slog.String("user_id", userID), slog.String("time", slot))
	return slot, nil
}

// Get возвращает напоминание пользователя или storage.ErrReminderNotFound.
func (s *ReminderService) Get(ctx context.Context, userID string) (*models.Reminder, error) {
	const op = "services.reminder.Get"
	r, err := s.repo.GetReminder(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return r, nil
}

// AllReminders возвращает снимок напоминаний активных пользователей для планировщика.
func (s *ReminderService) AllReminders(ctx context.Context) ([]models.Reminder, error) {
	const op = "services.reminder.AllReminders"
	all, err := s.repo.AllReminders(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return all, nil
}
