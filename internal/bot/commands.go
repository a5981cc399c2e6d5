package bot

import "strings"

type command int

const (
	cmdNone command = iota
	cmdStart
	cmdHelp
	cmdAdd
	cmdList
	cmdMark
	cmdDelete
	cmdStats
	cmdReminder
	cmdBroadcast
	cmdCancel
)

// Подписи кнопок главного меню.
const (
	LabelAdd       = "➕ Добавить привычку"
	LabelList      = "📋 Мои привычки"
	LabelMark      = "✅ Отметить выполнение"
	LabelDelete    = "🗑 Удалить привычку"
	LabelStats     = "📊 Статистика"
	LabelReminder  = "⏰ Напоминание"
	LabelBroadcast = "📢 Рассылка"
	LabelCancel    = "❌ Отмена"
)

// Действия встроенного меню.
const (
	actionMark   = "mark"
	actionDelete = "delete"
)

var labels = map[string]command{
	LabelAdd:       cmdAdd,
	LabelList:      cmdList,
	LabelMark:      cmdMark,
	LabelDelete:    cmdDelete,
	LabelStats:     cmdStats,
	LabelReminder:  cmdReminder,
	LabelBroadcast: cmdBroadcast,
	LabelCancel:    cmdCancel,
}

var slashCommands = map[string]command{
	"/start":     cmdStart,
	"/help":      cmdHelp,
	"/add":       cmdAdd,
	"/list":      cmdList,
	"/mark":      cmdMark,
	"/delete":    cmdDelete,
	"/stats":     cmdStats,
	"/reminder":  cmdReminder,
	"/broadcast": cmdBroadcast,
	"/cancel":    cmdCancel,
}

// parseCommand распознаёт кнопку меню или slash-команду. Для "/cmd@botname" имя бота отбрасывается.
func parseCommand(text string) command {
	text = strings.TrimSpace(text)
	if cmd, ok := labels[text]; ok {
		return cmd
	}
	if !strings.HasPrefix(text, "/") {
		return cmdNone
	}
	word, _, _ := strings.Cut(text, " ")
	word, _, _ = strings.Cut(word, "@")
	return slashCommands[strings.ToLower(word)]
}

func (c command) String() string {
	for name, cmd := range slashCommands {
		if cmd == c {
			return strings.TrimPrefix(name, "/")
		}
	}
	return "none"
}

// mainMenu клавиатура главного меню. Кнопка рассылки видна только администраторам.
func mainMenu(isAdmin bool) [][]string {
	rows := [][]string{
		{LabelAdd},
		{LabelList},
		{LabelMark},
		{LabelDelete},
		{LabelStats},
		{LabelReminder},
	}
	if isAdmin {
		rows = append(rows, []string{LabelBroadcast})
	}
	return rows
}

func cancelMenu() [][]string {
	return [][]string{{LabelCancel}}
}
