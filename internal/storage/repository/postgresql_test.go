package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duragon35SG/habit-bot/internal/models"
	"github.com/duragon35SG/habit-bot/internal/storage"
)

func day(s string) time.Time {
	d, err := time.Parse(storage.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestStorage_AddHabit(t *testing.T) {
	db, cleanup := setupTestDatabase(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, db.AddHabit(ctx, "u1", "Read"))
	err := db.AddHabit(ctx, "u1", "Read")
	require.ErrorIs(t, err, storage.ErrHabitExists)

	require.NoError(t, db.AddHabit(ctx, "u1", "read"), "names are case-sensitive")
	require.NoError(t, db.AddHabit(ctx, "u2", "Read"), "names are unique per user")

	habits, err := db.ListHabits(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"Read", "read"}, habits)
}

func TestStorage_AddHabit_Concurrent(t *testing.T) {
	db, cleanup := setupTestDatabase(t)
	defer cleanup()
	ctx := context.Background()

	const workers = 8
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = db.AddHabit(ctx, "u1", "Run")
		}(i)
	}
	wg.Wait()

	created := 0
	for _, err := range errs {
		if err == nil {
			created++
			continue
		}
		assert.ErrorIs(t, err, storage.ErrHabitExists)
	}
	assert.Equal(t, 1, created)

	habits, err := db.ListHabits(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"Run"}, habits)
}

func TestStorage_DeleteHabit(t *testing.T) {
	tests := []struct {
		name        string
		setup       func(t *testing.T, factory *TestDataFactory)
		habit       string
		wantDeleted int
		wantLeft    []string
	}{
		{
			name: "existing habit with completions",
			setup: func(t *testing.T, factory *TestDataFactory) {
				factory.CreateUser(t, "u1", true)
				factory.CreateHabit(t, "u1", "Read", "2024-01-01", "2024-01-02")
				factory.CreateHabit(t, "u1", "Run")
			},
			habit:       "Read",
			wantDeleted: 1,
			wantLeft:    []string{"Run"},
		},
		{
			name: "absent habit is a no-op",
			setup: func(t *testing.T, factory *TestDataFactory) {
				factory.CreateUser(t, "u1", true)
				factory.CreateHabit(t, "u1", "Run")
			},
			habit:       "Read",
			wantDeleted: 0,
			wantLeft:    []string{"Run"},
		},
		{
			name:        "unknown user",
			setup:       func(_ *testing.T, _ *TestDataFactory) {},
			habit:       "Read",
			wantDeleted: 0,
			wantLeft:    []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, cleanup := setupTestDatabase(t)
			defer cleanup()
			tt.setup(t, NewTestDataFactory(db))

			deleted, err := db.DeleteHabit(context.Background(), "u1", tt.habit)
			require.NoError(t, err)
			assert.Equal(t, tt.wantDeleted, deleted)

			left, err := db.ListHabits(context.Background(), "u1")
			require.NoError(t, err)
			assert.Equal(t, tt.wantLeft, left)
		})
	}
}

func TestStorage_MarkCompletion(t *testing.T) {
	db, cleanup := setupTestDatabase(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, db.AddHabit(ctx, "u1", "Read"))
	require.NoError(t, db.MarkCompletion(ctx, "u1", "Read", day("2024-01-01")))
	err := db.MarkCompletion(ctx, "u1", "Read", day("2024-01-01"))
	require.ErrorIs(t, err, storage.ErrAlreadyMarked)
	require.NoError(t, db.MarkCompletion(ctx, "u1", "Read", day("2024-01-02")))

	err = db.MarkCompletion(ctx, "u1", "Missing", day("2024-01-01"))
	require.ErrorIs(t, err, storage.ErrHabitNotFound)

	stats, err := db.Stats(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []models.HabitStat{{Name: "Read", Completions: 2}}, stats)
}

func TestStorage_Stats(t *testing.T) {
	db, cleanup := setupTestDatabase(t)
	defer cleanup()
	factory := NewTestDataFactory(db)
	factory.CreateUser(t, "u1", true)
	factory.CreateHabit(t, "u1", "Read", "2024-01-01")
	factory.CreateHabit(t, "u1", "Run")

	stats, err := db.Stats(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, []models.HabitStat{
		{Name: "Read", Completions: 1},
		{Name: "Run", Completions: 0},
	}, stats)

	empty, err := db.Stats(context.Background(), "nobody")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestStorage_Reminders(t *testing.T) {
	db, cleanup := setupTestDatabase(t)
	defer cleanup()
	ctx := context.Background()

	_, err := db.GetReminder(ctx, "u1")
	require.ErrorIs(t, err, storage.ErrReminderNotFound)

	require.NoError(t, db.SetReminder(ctx, "u1", "20:30"))
	r, err := db.GetReminder(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "20:30", r.TimeOfDay)

	require.NoError(t, db.SetReminder(ctx, "u1", "08:00"))
	r, err = db.GetReminder(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "08:00", r.TimeOfDay)

	all, err := db.AllReminders(ctx)
	require.NoError(t, err)
	assert.Equal(t, []models.Reminder{{UserID: "u1", TimeOfDay: "08:00"}}, all)
}

func TestStorage_AllReminders_SkipsInactiveUsers(t *testing.T) {
	db, cleanup := setupTestDatabase(t)
	defer cleanup()
	factory := NewTestDataFactory(db)
	factory.CreateUser(t, "active", true)
	factory.CreateUser(t, "blocked", false)
	factory.CreateReminder(t, "active", "09:00")
	factory.CreateReminder(t, "blocked", "09:00")

	all, err := db.AllReminders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []models.Reminder{{UserID: "active", TimeOfDay: "09:00"}}, all)
}

func TestStorage_Users(t *testing.T) {
	db, cleanup := setupTestDatabase(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, db.UpsertUser(ctx, "u1"))
	require.NoError(t, db.UpsertUser(ctx, "u2"))
	require.NoError(t, db.UpsertUser(ctx, "u1"))

	users, err := db.ListActiveUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)

	require.NoError(t, db.DeactivateUser(ctx, "u2"))
	users, err = db.ListActiveUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "u1", users[0].ID)

	require.NoError(t, db.UpsertUser(ctx, "u2"))
	users, err = db.ListActiveUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 2)
}

func TestCheckDatabaseReady(t *testing.T) {
	tests := []struct {
		name         string
		setup        func(t *testing.T, storage *Storage)
		wantError    bool
		errorContain string
	}{
		{
			name:      "table exists",
			setup:     func(_ *testing.T, _ *Storage) {},
			wantError: false,
		},
		{
			name: "table missing",
			setup: func(t *testing.T, storage *Storage) {
				_, err := storage.DB.Exec(`DROP TABLE IF EXISTS habits CASCADE`)
				require.NoError(t, err)
			},
			wantError:    true,
			errorContain: "missing",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			storage, cleanup := setupTestDatabase(t)
			defer cleanup()
			tt.setup(t, storage)

			err := CheckDatabaseReady(storage)
			if tt.wantError {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorContain)
			} else {
				require.NoError(t, err)
			}
		})
	}
}
