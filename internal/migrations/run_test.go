package migrations

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func getTestDB(t *testing.T) (*sql.DB, func()) {
	if testing.Short() {
		t.Skip("skipping postgres container test in short mode")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
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

	db, err := sql.Open("pgx", dsn)
	require.NoError(t, err)

	cleanup := func() {
		_ = db.Close()
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	}

	return db, cleanup
}

func getMigrationsPath(t *testing.T) string {
	projectRoot, err := filepath.Abs("../..")
	require.NoError(t, err)
	return filepath.Join(projectRoot, "migrations")
}

func tableExists(t *testing.T, db *sql.DB, table string) bool {
	t.Helper()
	var exists bool
	err = db.QueryRow(`
		SELECT EXISTS (
			SELECT 1 FROM information_schema.tables
			WHERE table_schema = 'public' AND table_name = $1
		)
	`, table).Scan(&exists)
	require.NoError(t, err)
	return exists
}

func TestRunMigrations(t *testing.T) {
	db, cleanup := getTestDB(t)
	defer cleanup()

	version, err := Run(db, getMigrationsPath(t))
	require.NoError(t, err)
	require.Equal(t, uint(1), version)

	for _, table := range []string{"users", "habits", "habit_completions", "reminders"} {
		require.True(t, tableExists(t, db, table), "table %s should exist", table)
	}

	var exists bool
	err := db.QueryRow(`
		SELECT EXISTS (
			SELECT 1 FROM pg_indexes
			WHERE schemaname = 'public'
			AND tablename = 'reminders'
			AND indexname = 'idx_reminders_time_of_day'
		)
	`).Scan(&exists)
	require.NoError(t, err)
	require.True(t, exists, "index should exist")
}

func TestMigrationIdempotency(t *testing.T) {
	db, cleanup := getTestDB(t)
	defer cleanup()

	path := getMigrationsPath(t)
	_, err := Run(db, path)
	require.NoError(t, err)
	version, err := Run(db, path)
	require.NoError(t, err, "second run should be a no-op")
	require.Equal(t, uint(1), version)
}

func TestRunDirtySchema(t *testing.T) {
	db, cleanup := getTestDB(t)
	defer cleanup()

	path := getMigrationsPath(t)
	_, err := Run(db, path)
	require.NoError(t, err)

	_, err = db.Exec(`UPDATE schema_migrations SET dirty = TRUE`)
	require.NoError(t, err)

	version, err := Run(db, path)
	require.ErrorIs(t, err, ErrDirtySchema)
	require.Equal(t, uint(1), version)
}
