package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/duragon35SG/habit-bot/internal/models"
	"github.com/duragon35SG/habit-bot/internal/storage"
	"github.com/duragon35SG/habit-bot/internal/storage/memory"
)

type RepoMock struct{ mock.Mock }

func (m *RepoMock) AddHabit(ctx context.Context, userID, name string) error {
	return m.Called(ctx, userID, name).Error(0)
}

func (m *RepoMock) DeleteHabit(ctx context.Context, userID, name string) (int, error) {
	args := m.Called(ctx, userID, name)
	return args.Int(0), args.Error(1)
}

func (m *RepoMock) ListHabits(ctx context.Context, userID string) ([]string, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *RepoMock) MarkCompletion(ctx context.Context, userID, name string, date time.Time) error {
	return m.Called(ctx, userID, name, date).Error(0)
}

func (m *RepoMock) Stats(ctx context.Context, userID string) ([]models.HabitStat, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.HabitStat), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestHabitService_NormalizeName(t *testing.T) {
	s := NewHabitService(new(RepoMock), newNoopLogger())

	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{name: "plain", raw: "Read", want: "Read"},
		{name: "trimmed", raw: "  Read a book \n", want: "Read a book"},
		{name: "case kept", raw: "READ", want: "READ"},
		{name: "empty", raw: "", wantErr: true},
		{name: "only spaces", raw: "   ", wantErr: true},
		{name: "max ascii", raw: strings.Repeat("a", MaxNameBytes), want: strings.Repeat("a", MaxNameBytes)},
		{name: "too long ascii", raw: strings.Repeat("a", MaxNameBytes+1), wantErr: true},
		{name: "cyrillic counted in bytes", raw: strings.Repeat("я", MaxNameBytes/2+1), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.NormalizeName(tt.raw)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidName)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHabitService_Add(t *testing.T) {
	tests := []struct {
		name       string
		raw        string
		setupMocks func(r *RepoMock)
		want       string
		wantErr    error
	}{
		{
			name: "created",
			raw:  " Read ",
			setupMocks: func(r *RepoMock) {
				r.On("AddHabit", mock.Anything, "u1", "Read").Return(nil).Once()
			},
			want: "Read",
		},
		{
			name: "already exists",
			raw:  "Read",
			setupMocks: func(r *RepoMock) {
				r.On("AddHabit", mock.Anything, "u1", "Read").Return(storage.ErrHabitExists).Once()
			},
			want:    "Read",
			wantErr: storage.ErrHabitExists,
		},
		{
			name:       "invalid name never reaches the store",
			raw:        "  ",
			setupMocks: func(_ *RepoMock) {},
			wantErr:    ErrInvalidName,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(RepoMock)
			tt.setupMocks(repo)
			s := NewHabitService(repo, newNoopLogger())

			got, err := s.Add(context.Background(), "u1", tt.raw)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
			repo.AssertExpectations(t)
		})
	}
}

func TestHabitService_Delete(t *testing.T) {
	repo := new(RepoMock)
	repo.On("DeleteHabit", mock.Anything, "u1", "Read").Return(1, nil).Once()
	repo.On("DeleteHabit", mock.Anything, "u1", "Gone").Return(0, nil).Once()
	repo.On("DeleteHabit", mock.Anything, "u1", "Broken").Return(0, errors.New("db down")).Once()
	s := NewHabitService(repo, newNoopLogger())

	ok, err := s.Delete(context.Background(), "u1", "Read")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Delete(context.Background(), "u1", "Gone")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.Delete(context.Background(), "u1", "Broken")
	assert.Error(t, err)
}

func TestHabitService_MarkToday(t *testing.T) {
	now := time.Date(2024, 1, 1, 23, 59, 0, 0, time.UTC)
	repo := new(RepoMock)
	repo.On("MarkCompletion", mock.Anything, "u1", "Read", now).Return(nil).Once()
	repo.On("MarkCompletion", mock.Anything, "u1", "Read", now).Return(storage.ErrAlreadyMarked).Once()

	s := NewHabitService(repo, newNoopLogger()).WithClock(func() time.Time { return now })

	require.NoError(t, s.MarkToday(context.Background(), "u1", "Read"))
	assert.ErrorIs(t, s.MarkToday(context.Background(), "u1", "Read"), storage.ErrAlreadyMarked)
	repo.AssertExpectations(t)
}

func TestHabitService_WithMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewHabitService(memory.New(), newNoopLogger())

	_, err := s.Add(ctx, "u1", "Read")
	require.NoError(t, err)
	_, err = s.Add(ctx, "u1", "Read")
	require.ErrorIs(t, err, storage.ErrHabitExists)

	day := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	require.NoError(t, s.Mark(ctx, "u1", "Read", day))
	require.ErrorIs(t, s.Mark(ctx, "u1", "Read", day), storage.ErrAlreadyMarked)

	stats, err := s.Stats(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []models.HabitStat{{Name: "Read", Completions: 1}}, stats)

	habits, err := s.List(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"Read"}, habits)

	deleted, err := s.Delete(ctx, "u1", "Read")
	require.NoError(t, err)
	assert.True(t, deleted)
	deleted, err = s.Delete(ctx, "u1", "Read")
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestMustRegister(t *testing.T) {
	t.Run("valid tag", func(t *testing.T) {
		v := validator.New()
		assert.NotPanics(t, func() { mustRegister(v, "maxbytes", maxBytes) })
	})
	t.Run("empty tag", func(t *testing.T) {
		v := validator.New()
		assert.Panics(t, func() { mustRegister(v, "", maxBytes) })
	})
	t.Run("nil func", func(t *testing.T) {
		v := validator.New()
		assert.Panics(t, func() { mustRegister(v, "maxbytes", nil) })
	})
}

func TestNewValidator_MaxBytes(t *testing.T) {
	type named struct {
		Name string `validate:"maxbytes=4"`
	}
	v := newValidator()
	assert.NoError(t, v.Struct(named{Name: "abcd"}))
	assert.Error(t, v.Struct(named{Name: "abcde"}))
	assert.Error(t, v.Struct(named{Name: "ééé"}), "limit is in bytes, not runes")
}
