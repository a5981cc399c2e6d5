package models

import "time"

// Habit представляет привычку пользователя. Имя уникально в пределах пользователя.
type Habit struct {
	ID        int64
	UserID    string
	Name      string
	CreatedAt time.Time
}

// HabitStat количество отметок выполнения привычки.
type HabitStat struct {
	Name        string
	Completions int
}
