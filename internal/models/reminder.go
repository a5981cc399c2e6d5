package models

// Reminder ежедневный слот напоминания пользователя, не больше одного на пользователя.
type Reminder struct {
	UserID    string
	TimeOfDay string // ЧЧ:ММ, 24 часа
}

// Notification сообщение-напоминание, которое планировщик отправляет пользователю.
type Notification struct {
	UserID string   `json:"user_id"`
	Slot   string   `json:"slot"`
	Habits []string `json:"habits"`
}
