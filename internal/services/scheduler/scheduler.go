// Package services содержит планировщик ежедневных напоминаний.
package services

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/duragon35SG/habit-bot/internal/cache"
	"github.com/duragon35SG/habit-bot/internal/lib/sl"
	"github.com/duragon35SG/habit-bot/internal/lib/timeofday"
	"github.com/duragon35SG/habit-bot/internal/metrics"
	"github.com/duragon35SG/habit-bot/internal/models"
	"github.com/duragon35SG/habit-bot/internal/storage"
)

const (
	firedTTL = 24 * time.Hour
	// defaultWorkers ограничивает число одновременных отправок в одном тике.
	defaultWorkers = 10
)

// ReminderSource снимок всех напоминаний.
type ReminderSource interface {
	AllReminders(ctx context.Context) ([]models.Reminder, error)
}

// HabitLister список привычек пользователя.
type HabitLister interface {
	ListHabits(ctx context.Context, userID string) ([]string, error)
}

// Notifier доставляет напоминание пользователю.
type Notifier interface {
	Notify(ctx context.Context, n models.Notification) error
}

// FiredMarker отмечает отправленные напоминания между перезапусками. Возвращает true, если
// отметки ещё не было.
type FiredMarker interface {
	MarkOnce(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// SchedulerService раз в interval сравнивает текущее время ЧЧ:ММ со слотами напоминаний
// и отправляет напоминания пользователям с совпавшим слотом.
type SchedulerService struct {
	reminders ReminderSource
	habits    HabitLister
	notifier  Notifier
	marker    FiredMarker
	interval  time.Duration
	workers   int
	now       func() time.Time
	metrics   *metrics.Metrics
	log       *slog.Logger

	mu         sync.Mutex
	lastMinute string
}

// NewSchedulerService создает новый экземпляр SchedulerService. marker может быть nil.
func NewSchedulerService(
	reminders ReminderSource,
	habits HabitLister,
	notifier Notifier,
	marker FiredMarker,
	interval time.Duration,
	m *metrics.Metrics,
	log *slog.Logger,
) *SchedulerService {
	return &SchedulerService{
		reminders: reminders,
		habits:    habits,
		notifier:  notifier,
		marker:    marker,
		interval:  interval,
		workers:   defaultWorkers,
		now:       time.Now,
		metrics:   m,
		log:       log,
	}
}

// Run выполняет тики до отмены ctx. Первый тик выполняется сразу.
// Пропущенные минуты не догоняются.
func (s *SchedulerService) Run(ctx context.Context) {
	s.log.Info("reminder scheduler started", slog.Duration("interval", s.interval))
	s.runTick(ctx, s.now())

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("reminder scheduler stopped")
			return
		case <-ticker.C:
			s.runTick(ctx, s.now())
		}
	}
}

// runTick обрабатывает минуту now и возвращает число отправленных напоминаний.
// Повторный вызов для уже обработанной минуты ничего не делает.
func (s *SchedulerService) runTick(ctx context.Context, now time.Time) int {
	minute := now.Format("2006-01-02 15:04")
	s.mu.Lock()
	if minute == s.lastMinute {
		s.mu.Unlock()
		return 0
	}
	s.lastMinute = minute
	s.mu.Unlock()
	s.metrics.Tick()

	slot := timeofday.FromTime(now)
	date := now.Format(storage.DateLayout)

	all, err := s.reminders.AllReminders(ctx)
	if err != nil {
		s.log.Error("failed to read reminders", sl.Err(err))
		return 0
	}

	var (
		count atomic.Int64
		wg    sync.WaitGroup
		sem   = make(chan struct{}, s.workers)
	)
	for _, r := range all {
		if r.TimeOfDay != slot {
			continue
		}
		if ctx.Err() != nil {
			break
		}
		sem <- struct{}{}
		wg.Add(1)
		go func(userID string) {
			defer wg.Done()
			defer func() { <-sem }()
			if s.dispatch(ctx, userID, slot, date) {
				count.Add(1)
			}
		}(r.UserID)
	}
	wg.Wait()

	dispatched := int(count.Load())
	if dispatched > 0 {
		s.log.Info("reminders dispatched", slog.String("slot", slot), slog.Int("count", dispatched))
	}
	return dispatched
}

func (s *SchedulerService) dispatch(ctx context.Context, userID, slot, date string) bool {
	log := s.log.With(sl.User(userID), slog.String("slot", slot))

	habits, err := s.habits.ListHabits(ctx, userID)
	if err != nil {
		log.Error("failed to list habits", sl.Err(err))
		return false
	}
	if len(habits) == 0 {
		return false
	}

	if s.marker != nil {
		first, err := s.marker.MarkOnce(ctx, cache.FiredKey(userID, date, slot), firedTTL)
		switch {
		case err != nil:
			log.Warn("fired marker unavailable, sending anyway", sl.Err(err))
		case !first:
			log.Debug("reminder already sent")
			return false
		}
	}

	n := models.Notification{UserID: userID, Slot: slot, Habits: habits}
	if err := s.notifier.Notify(ctx, n); err != nil {
		log.Error("failed to dispatch reminder", sl.Err(err))
		return false
	}
	return true
}
