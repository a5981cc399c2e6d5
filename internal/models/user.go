// Package models содержит доменные структуры трекера привычек:
// пользователей, привычки, напоминания и уведомления.
package models

import "time"

// User представляет пользователя бота. Создаётся при первом обращении и никогда не удаляется,
// только деактивируется, если бот больше не может ему писать.
type User struct {
	ID        string    // Идентификатор чата пользователя в транспорте
	Active    bool      // Получает ли пользователь напоминания и рассылки
	CreatedAt time.Time // Дата регистрации
}
