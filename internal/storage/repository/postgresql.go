// Package repository реализует хранилище привычек и напоминаний на основе PostgreSQL.
// Уникальность имён привычек и одна отметка в день обеспечиваются ограничениями схемы.
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	// Регистрация драйвера pgx для использования с database/sql.
	_ "github.com/jackc/pgx/v5/stdlib"
)

// Storage инкапсулирует соединение с базой данных PostgreSQL.
type Storage struct {
	DB      *sql.DB
	timeout time.Duration
}

// New создаёт подключение к PostgreSQL. timeout ограничивает каждый запрос, ноль отключает ограничение.
func New(storageConnectionString string, timeout time.Duration) (*Storage, error) {
	const op = "storage.New"

	db, err := sql.Open("pgx", storageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = db.PingContext(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Storage{
		DB:      db,
		timeout: timeout,
	}, nil
}

// CheckDatabaseReady проверяет, что миграции применены.
func CheckDatabaseReady(storage *Storage) error {
	var exists bool
	err := storage.DB.QueryRow(`SELECT EXISTS (
        SELECT FROM information_schema.tables
        WHERE table_name = 'habits'
    )`).Scan(&exists)
	if err != nil || !exists {
		return fmt.Errorf("required table habits missing or query error: %w", err)
	}
	return nil
}

// Ping проверяет доступность базы данных.
func (s *Storage) Ping(ctx context.Context) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.DB.PingContext(ctx)
}

// Close закрывает пул соединений.
func (s *Storage) Close() error {
	return s.DB.Close()
}

func (s *Storage) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

func rollback(tx *sql.Tx) {
	_ = tx.Rollback()
}
