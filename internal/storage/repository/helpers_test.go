package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/duragon35SG/habit-bot/internal/migrations"
)

// setupTestDatabase поднимает PostgreSQL в контейнере и применяет миграции.
func setupTestDatabase(t *testing.T) (*Storage, func()) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres container test in short mode")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("habits"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	storage, err := New(dsn, 5*time.Second)
	require.NoError(t, err)

	migrationsPath, err := filepath.Abs("../../../migrations")
	require.NoError(t, err)
	_, err = migrations.Run(storage.DB, migrationsPath)
	require.NoError(t, err)

	cleanup := func() {
		_ = storage.Close()
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	}
	return storage, cleanup
}

// TestDataFactory содержит методы для создания тестовых данных
type TestDataFactory struct {
	storage *Storage
}

// NewTestDataFactory создает новую фабрику тестовых данных
func NewTestDataFactory(storage *Storage) *TestDataFactory {
	return &TestDataFactory{storage: storage}
}

// CreateUser создает тестового пользователя
func (f *TestDataFactory) CreateUser(t *testing.T, userID string, active bool) {
	_, err := f.storage.DB.Exec(`INSERT INTO users (user_id, active) VALUES ($1, $2)`, userID, active)
	require.NoError(t, err)
}

// CreateHabit создает привычку с отметками за даты dates
func (f *TestDataFactory) CreateHabit(t *testing.T, userID, name string, dates ...string) {
	var id int64
	err := f.storage.DB.QueryRow(`INSERT INTO habits (user_id, name) VALUES ($1, $2) RETURNING id`,
		userID, name).Scan(&id)
	require.NoError(t, err)
	for _, d := range dates {
		_, err = f.storage.DB.Exec(`INSERT INTO habit_completions (habit_id, completed_on) VALUES ($1, $2::date)`, id, d)
		require.NoError(t, err)
	}
}

// CreateReminder создает напоминание
func (f *TestDataFactory) CreateReminder(t *testing.T, userID, timeOfDay string) {
	_, err := f.storage.DB.Exec(`INSERT INTO reminders (user_id, time_of_day) VALUES ($1, $2)`, userID, timeOfDay)
	require.NoError(t, err)
}
