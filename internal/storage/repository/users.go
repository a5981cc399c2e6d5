package repository

import (
	"context"
	"fmt"

	"github.com/duragon35SG/habit-bot/internal/models"
)

const ensureUserQuery = `INSERT INTO users (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`

// UpsertUser регистрирует пользователя или снова делает его активным.
func (s *Storage) UpsertUser(ctx context.Context, userID string) error {
	const op = "storage.UpsertUser"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query := `INSERT INTO users (user_id, active)
			  VALUES ($1, TRUE)
			  ON CONFLICT (user_id) DO UPDATE SET active = TRUE
			  WHERE users.active = FALSE`
	if _, err := s.DB.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// DeactivateUser помечает пользователя неактивным. Данные пользователя сохраняются.
func (s *Storage) DeactivateUser(ctx context.Context, userID string) error {
	const op = "storage.DeactivateUser"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query := `UPDATE users SET active = FALSE WHERE user_id = $1`
	if _, err := s.DB.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ListActiveUsers возвращает всех активных пользователей в порядке регистрации.
func (s *Storage) ListActiveUsers(ctx context.Context) ([]models.User, error) {
	const op = "storage.ListActiveUsers"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query := `SELECT user_id, active, created_at
			  FROM users
			  WHERE active
			  ORDER BY created_at, user_id`
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	result := make([]models.User, 0)
	for rows.Next() {
		var u models.User
		if err = rows.Scan(&u.ID, &u.Active, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, u)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
