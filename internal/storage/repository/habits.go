package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/duragon35SG/habit-bot/internal/models"
	"github.com/duragon35SG/habit-bot/internal/storage"
)

var _ storage.Store = (*Storage)(nil)

// AddHabit создаёт привычку. Если у пользователя уже есть привычка с таким именем,
// возвращает storage.ErrHabitExists.
func (s *Storage) AddHabit(ctx context.Context, userID, name string) error {
	const op = "storage.AddHabit"
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

	query := `INSERT INTO habits (user_id, name)
			  VALUES ($1, $2)
			  ON CONFLICT (user_id, name) DO NOTHING`
	result, err := tx.ExecContext(ctx, query, userID, name)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrHabitExists)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// DeleteHabit удаляет привычку вместе с отметками и возвращает количество удалённых привычек.
func (s *Storage) DeleteHabit(ctx context.Context, userID, name string) (int, error) {
	const op = "storage.DeleteHabit"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query := `DELETE FROM habits WHERE user_id = $1 AND name = $2`
	result, err := s.DB.ExecContext(ctx, query, userID, name)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}

// ListHabits возвращает имена привычек пользователя в порядке создания.
func (s *Storage) ListHabits(ctx context.Context, userID string) ([]string, error) {
	const op = "storage.ListHabits"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query := `SELECT name FROM habits WHERE user_id = $1 ORDER BY id`
	rows, err := s.DB.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	result := make([]string, 0)
	for rows.Next() {
		var name string
		if err = rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, name)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// MarkCompletion отмечает выполнение привычки за дату date.
func (s *Storage) MarkCompletion(ctx context.Context, userID, name string, date time.Time) error {
	const op = "storage.MarkCompletion"
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

	var habitID int64
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM habits WHERE user_id = $1 AND name = $2`,
		userID, name).Scan(&habitID)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, storage.ErrHabitNotFound)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	query := `INSERT INTO habit_completions (habit_id, completed_on)
			  VALUES ($1, $2::date)
			  ON CONFLICT (habit_id, completed_on) DO NOTHING`
	result, err := tx.ExecContext(ctx, query, habitID, date.Format(storage.DateLayout))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrAlreadyMarked)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Stats возвращает количество отметок по каждой привычке пользователя, включая привычки без отметок.
func (s *Storage) Stats(ctx context.Context, userID string) ([]models.HabitStat, error) {
	const op = "storage.Stats"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query := `SELECT h.name, COUNT(c.completed_on)
			  FROM habits h
			  LEFT JOIN habit_completions c ON c.habit_id = h.id
			  WHERE h.user_id = $1
			  GROUP BY h.id, h.name
			  ORDER BY h.id`
	rows, err := s.DB.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	result := make([]models.HabitStat, 0)
	for rows.Next() {
		var stat models.HabitStat
		if err = rows.Scan(&stat.Name, &stat.Completions); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, stat)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
