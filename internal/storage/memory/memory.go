// Package memory реализует хранилище привычек в памяти процесса.
// Используется для локального запуска (storage.driver: memory) и в тестах.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/duragon35SG/habit-bot/internal/models"
	"github.com/duragon35SG/habit-bot/internal/storage"
)

var _ storage.Store = (*Storage)(nil)

type habit struct {
	name        string
	completions map[string]struct{}
}

type user struct {
	models.User
	seq int
}

// Storage хранит данные под одним мьютексом, поэтому каждая операция атомарна.
type Storage struct {
	mu        sync.Mutex
	now       func() time.Time
	users     map[string]*user
	habits    map[string][]*habit
	reminders map[string]string
	seq       int
}

// New создаёт пустое хранилище.
func New() *Storage {
	return &Storage{
		now:       time.Now,
		users:     make(map[string]*user),
		habits:    make(map[string][]*habit),
		reminders: make(map[string]string),
	}
}

func (s *Storage) ensureUser(userID string) *user {
	u, ok := s.users[userID]
	if !ok {
		s.seq++
		u = &user{
			User: models.User{ID: userID, Active: true, CreatedAt: s.now()},
			seq:  s.seq,
		}
		s.users[userID] = u
	}
	return u
}

func (s *Storage) findHabit(userID, name string) (int, *habit) {
	for i, h := range s.habits[userID] {
		if h.name == name {
			return i, h
		}
	}
	return -1, nil
}

func checkCtx(ctx context.Context, op string) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
		return nil
	}
}

// UpsertUser регистрирует пользователя или снова делает его активным.
func (s *Storage) UpsertUser(ctx context.Context, userID string) error {
	if err := checkCtx(ctx, "memory.UpsertUser"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ensureUser(userID).Active = true
	return nil
}

// DeactivateUser помечает пользователя неактивным.
func (s *Storage) DeactivateUser(ctx context.Context, userID string) error {
	if err := checkCtx(ctx, "memory.DeactivateUser"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if u, ok := s.users[userID]; ok {
		u.Active = false
	}
	return nil
}

// ListActiveUsers возвращает активных пользователей в порядке регистрации.
func (s *Storage) ListActiveUsers(ctx context.Context) ([]models.User, error) {
	if err := checkCtx(ctx, "memory.ListActiveUsers"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	active := make([]*user, 0, len(s.users))
	for _, u := range s.users {
		if u.Active {
			active = append(active, u)
		}
	}
	sort.Slice(active, func(i, j int) bool { return active[i].seq < active[j].seq })

	result := make([]models.User, 0, len(active))
	for _, u := range active {
		result = append(result, u.User)
	}
	return result, nil
}

// AddHabit создаёт привычку или возвращает storage.ErrHabitExists.
func (s *Storage) AddHabit(ctx context.Context, userID, name string) error {
	const op = "memory.AddHabit"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ensureUser(userID)
	if _, h := s.findHabit(userID, name); h != nil {
		return fmt.Errorf("%s: %w", op, storage.ErrHabitExists)
	}
	s.habits[userID] = append(s.habits[userID], &habit{
		name:        name,
		completions: make(map[string]struct{}),
	})
	return nil
}

// DeleteHabit удаляет привычку и возвращает количество удалённых привычек.
func (s *Storage) DeleteHabit(ctx context.Context, userID, name string) (int, error) {
	if err := checkCtx(ctx, "memory.DeleteHabit"); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	i, h := s.findHabit(userID, name)
	if h == nil {
		return 0, nil
	}
	s.habits[userID] = slices.Delete(s.habits[userID], i, i+1)
	return 1, nil
}

// ListHabits возвращает имена привычек в порядке создания.
func (s *Storage) ListHabits(ctx context.Context, userID string) ([]string, error) {
	if err := checkCtx(ctx, "memory.ListHabits"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]string, 0, len(s.habits[userID]))
	for _, h := range s.habits[userID] {
		result = append(result, h.name)
	}
	return result, nil
}

// MarkCompletion отмечает выполнение привычки за дату date.
func (s *Storage) MarkCompletion(ctx context.Context, userID, name string, date time.Time) error {
	const op = "memory.MarkCompletion"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	_, h := s.findHabit(userID, name)
	if h == nil {
		return fmt.Errorf("%s: %w", op, storage.ErrHabitNotFound)
	}
	key := date.Format(storage.DateLayout)
	if _, ok := h.completions[key]; ok {
		return fmt.Errorf("%s: %w", op, storage.ErrAlreadyMarked)
	}
	h.completions[key] = struct{}{}
	return nil
}

// Stats возвращает количество отметок по каждой привычке.
func (s *Storage) Stats(ctx context.Context, userID string) ([]models.HabitStat, error) {
	if err := checkCtx(ctx, "memory.Stats"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]models.HabitStat, 0, len(s.habits[userID]))
	for _, h := range s.habits[userID] {
		result = append(result, models.HabitStat{Name: h.name, Completions: len(h.completions)})
	}
	return result, nil
}

// SetReminder сохраняет время напоминания, заменяя предыдущее.
func (s *Storage) SetReminder(ctx context.Context, userID, timeOfDay string) error {
	if err := checkCtx(ctx, "memory.SetReminder"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ensureUser(userID)
	s.reminders[userID] = timeOfDay
	return nil
}

// GetReminder возвращает напоминание пользователя или storage.ErrReminderNotFound.
func (s *Storage) GetReminder(ctx context.Context, userID string) (*models.Reminder, error) {
	const op = "memory.GetReminder"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.reminders[userID]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrReminderNotFound)
	}
	return &models.Reminder{UserID: userID, TimeOfDay: t}, nil
}

// AllReminders возвращает напоминания активных пользователей, отсортированные по пользователю.
func (s *Storage) AllReminders(ctx context.Context) ([]models.Reminder, error) {
	if err := checkCtx(ctx, "memory.AllReminders"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]models.Reminder, 0, len(s.reminders))
	for userID, t := range s.reminders {
		if u, ok := s.users[userID]; ok && !u.Active {
			continue
		}
		result = append(result, models.Reminder{UserID: userID, TimeOfDay: t})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].UserID < result[j].UserID })
	return result, nil
}

// Ping всегда успешен.
func (s *Storage) Ping(context.Context) error { return nil }

// Close ничего не делает.
func (s *Storage) Close() error { return nil }
