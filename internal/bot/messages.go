package bot

import (
	"fmt"
	"strings"

	"github.com/duragon35SG/habit-bot/internal/models"
)

const (
	msgGreeting        = "Трекер привычек готов к работе 💪"
	msgHelp            = "Выбери действие в меню 👇"
	msgCancelled       = "Действие отменено."
	msgAskHabitName    = "Введите название привычки:"
	msgHabitExists     = "Такая привычка уже есть."
	msgNoHabits        = "У тебя пока нет привычек."
	msgNoHabitsToMark  = "Нет привычек."
	msgNoHabitsToDrop  = "Нет привычек для удаления."
	msgChooseMark      = "Выберите привычку:"
	msgChooseDelete    = "Выберите привычку для удаления:"
	msgAlreadyMarked   = "Сегодня уже отмечено 😉"
	msgNoStats         = "Нет данных."
	msgAskReminder     = "Введите время напоминания в формате ЧЧ:ММ, например 20:30."
	msgInvalidTime     = "Неверное время. Введите время в формате ЧЧ:ММ (от 00:00 до 23:59) или нажмите «" + LabelCancel + "»."
	msgAskBroadcast    = "Введите текст рассылки:"
	msgEmptyBroadcast  = "Пустое сообщение, рассылка отменена."
	msgNotAvailable    = "Команда недоступна."
	msgSomethingFailed = "Что-то пошло не так, попробуйте позже."
)

func msgHabitAdded(name string) string {
	return fmt.Sprintf("Привычка '%s' добавлена!", name)
}

func msgInvalidName(limit int) string {
	return fmt.Sprintf("Название привычки не должно быть пустым или длиннее %d байт.", limit)
}

func msgMarked(name string) string {
	return name + " отмечено ✅"
}

func msgDeleted(name string) string {
	return name + " удалена 🗑"
}

func msgHabitNotFound(name string) string {
	return fmt.Sprintf("Привычка '%s' не найдена.", name)
}

func msgCurrentReminder(slot string) string {
	return "Текущее время напоминания: " + slot + "\n" + msgAskReminder
}

func msgReminderSet(slot string) string {
	return fmt.Sprintf("Напоминание установлено на %s ⏰", slot)
}

func msgBroadcastDone(result fmt.Stringer) string {
	return "Рассылка завершена: " + result.String()
}

func renderHabits(habits []string) string {
	if len(habits) == 0 {
		return msgNoHabits
	}
	var b strings.Builder
	b.WriteString("Твои привычки:")
	for _, h := range habits {
		b.WriteString("\n• ")
		b.WriteString(h)
	}
	return b.String()
}

func renderStats(stats []models.HabitStat) string {
	if len(stats) == 0 {
		return msgNoStats
	}
	var b strings.Builder
	b.WriteString("Статистика:")
	for _, s := range stats {
		fmt.Fprintf(&b, "\n%s: %d дней", s.Name, s.Completions)
	}
	return b.String()
}
