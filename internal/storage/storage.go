// Package storage описывает контракт хранилища привычек и напоминаний
// и общие для всех реализаций ошибки.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/duragon35SG/habit-bot/internal/models"
)

// DateLayout формат календарной даты отметки выполнения.
const DateLayout = "2006-01-02"

var (
	// ErrHabitExists привычка с таким именем у пользователя уже есть.
	ErrHabitExists = errors.New("habit already exists")
	// ErrHabitNotFound привычка не найдена.
	ErrHabitNotFound = errors.New("habit not found")
	// ErrAlreadyMarked привычка уже отмечена за эту дату.
	ErrAlreadyMarked = errors.New("habit already marked for this date")
	// ErrReminderNotFound у пользователя нет напоминания.
	ErrReminderNotFound = errors.New("reminder not found")
)

// Store общий контракт для PostgreSQL и in-memory реализаций.
// Все изменяющие операции атомарны и зафиксированы к моменту возврата.
type Store interface {
	UpsertUser(ctx context.Context, userID string) error
	DeactivateUser(ctx context.Context, userID string) error
	ListActiveUsers(ctx context.Context) ([]models.User, error)

	AddHabit(ctx context.Context, userID, name string) error
	DeleteHabit(ctx context.Context, userID, name string) (int, error)
	ListHabits(ctx context.Context, userID string) ([]string, error)
	MarkCompletion(ctx context.Context, userID, name string, date time.Time) error
	Stats(ctx context.Context, userID string) ([]models.HabitStat, error)

	SetReminder(ctx context.Context, userID, timeOfDay string) error
	GetReminder(ctx context.Context, userID string) (*models.Reminder, error)
	AllReminders(ctx context.Context) ([]models.Reminder, error)

	Ping(ctx context.Context) error
	Close() error
}
