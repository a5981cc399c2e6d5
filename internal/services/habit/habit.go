// Package services содержит бизнес-логику работы с привычками пользователя.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator"

	"github.com/duragon35SG/habit-bot/internal/models"
)

// MaxNameBytes максимальная длина имени привычки в байтах. Имя вместе с действием
// должно помещаться в 64 байта данных кнопки Telegram.
const MaxNameBytes = 56

// ErrInvalidName имя привычки пустое или слишком длинное.
var ErrInvalidName = errors.New("invalid habit name")

// HabitRepository определяет методы хранилища, нужные сервису привычек.
type HabitRepository interface {
	AddHabit(ctx context.Context, userID, name string) error
	DeleteHabit(ctx context.Context, userID, name string) (int, error)
	ListHabits(ctx context.Context, userID string) ([]string, error)
	MarkCompletion(ctx context.Context, userID, name string, date time.Time) error
	Stats(ctx context.Context, userID string) ([]models.HabitStat, error)
}

type habitName struct {
	Name string `validate:"required,maxbytes=56"`
}

// HabitService реализует операции над привычками с проверкой имён.
type HabitService struct {
	repo     HabitRepository
	validate *validator.Validate
	now      func() time.Time
	log      *slog.Logger
}

// NewHabitService создает новый экземпляр HabitService.
func NewHabitService(repo HabitRepository, log *slog.Logger) *HabitService {
	return &HabitService{
		repo:     repo,
		validate: newValidator(),
		now:      time.Now,
		log:      log,
	}
}

// WithClock подменяет источник текущего времени.
func (s *HabitService) WithClock(now func() time.Time) *HabitService {
	s.now = now
	return s
}

func newValidator() *validator.Validate {
	v := validator.New()
	mustRegister(v, "maxbytes", maxBytes)
	return v
}

// mustRegister паникует при ошибке регистрации: без правила любое имя было бы отклонено.
func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register validation %q: %v", tag, err))
	}
}

func maxBytes(fl validator.FieldLevel) bool {
	limit, err := strconv.Atoi(fl.Param())
	if err != nil {
		return false
	}
	return len(fl.Field().String()) <= limit
}

// NormalizeName обрезает пробелы и проверяет имя привычки.
func (s *HabitService) NormalizeName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if err := s.validate.Struct(habitName{Name: name}); err != nil {
		return "", fmt.Errorf("%w: %s", ErrInvalidName, err)
	}
	return name, nil
}

// Add создаёт привычку и возвращает её нормализованное имя.
// Если привычка уже есть, возвращает storage.ErrHabitExists.
func (s *HabitService) Add(ctx context.Context, userID, raw string) (string, error) {
	const op = "services.habit.Add"
	name, err := s.NormalizeName(raw)
	if err != nil {
		return "", err
	}
	if err := s.repo.AddHabit(ctx, userID, name); err != nil {
		return name, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("habit created", slog.String("user_id", userID), slog.String("habit", name))
	return name, nil
}

// Delete удаляет привычку. Возвращает false, если такой привычки не было.
func (s *HabitService) Delete(ctx context.Context, userID, name string) (bool, error) {
	const op = "services.habit.Delete"
	n, err := s.repo.DeleteHabit(ctx, userID, name)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return n > 0, nil
}

// List возвращает имена привычек пользователя.
func (s *HabitService) List(ctx context.Context, userID string) ([]string, error) {
	const op = "services.habit.List"
	habits, err := s.repo.ListHabits(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return habits, nil
}

// MarkToday отмечает выполнение привычки за текущую дату.
func (s *HabitService) MarkToday(ctx context.Context, userID, name string) error {
	return s.Mark(ctx, userID, name, s.now())
}

// Mark отмечает выполнение привычки за дату date.
func (s *HabitService) Mark(ctx context.Context, userID, name string, date time.Time) error {
	const op = "services.habit.Mark"
	if err := s.repo.MarkCompletion(ctx, userID, name, date); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Stats возвращает количество отметок по привычкам пользователя.
func (s *HabitService) Stats(ctx context.Context, userID string) ([]models.HabitStat, error) {
	const op = "services.habit.Stats"
	stats, err := s.repo.Stats(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return stats, nil
}
