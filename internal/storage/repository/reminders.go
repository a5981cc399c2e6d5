package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/duragon35SG/habit-bot/internal/models"
	"github.com/duragon35SG/habit-bot/internal/storage"
)

// SetReminder сохраняет время напоминания, заменяя предыдущее значение.
// Время должно быть уже проверено вызывающим кодом.
func (s *Storage) SetReminder(ctx context.Context, userID, timeOfDay string) error {
	const op = "storage.SetReminder"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer rollback(tx)

	if _, err = tx.ExecContext(ctx, ensureUserQuery, userID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	query := `INSERT INTO reminders (user_id, time_of_day)
			  VALUES ($1, $2)
			  ON CONFLICT (user_id) DO UPDATE
			  SET time_of_day = EXCLUDED.time_of_day, updated_at = NOW()`
	if _, err = tx.ExecContext(ctx, query, userID, timeOfDay); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// GetReminder возвращает напоминание пользователя или storage.ErrReminderNotFound.
func (s *Storage) GetReminder(ctx context.Context, userID string) (*models.Reminder, error) {
	const op = "storage.GetReminder"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query := `SELECT user_id, time_of_day FROM reminders WHERE user_id = $1`
	var r models.Reminder
	err := s.DB.QueryRowContext(ctx, query, userID).Scan(&r.UserID, &r.TimeOfDay)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrReminderNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &r, nil
}

// AllReminders возвращает напоминания всех активных пользователей.
func (s *Storage) AllReminders(ctx context.Context) ([]models.Reminder, error) {
	const op = "storage.AllReminders"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query := `SELECT r.user_id, r.time_of_day
			  FROM reminders r
			  JOIN users u ON u.user_id = r.user_id
			  WHERE u.active
			  ORDER BY r.user_id`
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	result := make([]models.Reminder, 0)
	for rows.Next() {
		var r models.Reminder
		if err = rows.Scan(&r.UserID, &r.TimeOfDay); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, r)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
