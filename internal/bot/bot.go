// Package bot реализует диалог с пользователем: распознаёт команды, ведёт режим
// диалога каждого пользователя и вызывает сервисы привычек, напоминаний и рассылки.
package bot

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/duragon35SG/habit-bot/internal/lib/sl"
	"github.com/duragon35SG/habit-bot/internal/metrics"
	"github.com/duragon35SG/habit-bot/internal/models"
	broadcast "github.com/duragon35SG/habit-bot/internal/services/broadcast"
	habit "github.com/duragon35SG/habit-bot/internal/services/habit"
	reminder "github.com/duragon35SG/habit-bot/internal/services/reminder"
	"github.com/duragon35SG/habit-bot/internal/storage"
	"github.com/duragon35SG/habit-bot/internal/transport"
)

// UserRegistry регистрирует пользователя при каждом обращении.
type UserRegistry interface {
	UpsertUser(ctx context.Context, userID string) error
}

// HabitService операции над привычками.
type HabitService interface {
	Add(ctx context.Context, userID, raw string) (string, error)
	Delete(ctx context.Context, userID, name string) (bool, error)
	List(ctx context.Context, userID string) ([]string, error)
	MarkToday(ctx context.Context, userID, name string) error
	Stats(ctx context.Context, userID string) ([]models.HabitStat, error)
}

// ReminderService операции над напоминаниями.
type ReminderService interface {
	Set(ctx context.Context, userID, raw string) (string, error)
	Get(ctx context.Context, userID string) (*models.Reminder, error)
}

// Broadcaster рассылка администратора.
type Broadcaster interface {
	Broadcast(ctx context.Context, senderID, text string) (broadcast.Result, error)
}

// Authorizer проверяет права администратора.
type Authorizer interface {
	IsAdmin(userID string) bool
}

// Bot обрабатывает входящие события транспорта.
type Bot struct {
	transport   transport.Transport
	users       UserRegistry
	habits      HabitService
	reminders   ReminderService
	broadcaster Broadcaster
	admins      Authorizer
	sessions    *Sessions
	metrics     *metrics.Metrics
	log         *slog.Logger
}

var _ transport.Handler = (*Bot)(nil)

// New создаёт бота.
func New(
	t transport.Transport,
	users UserRegistry,
	habits HabitService,
	reminders ReminderService,
	broadcaster Broadcaster,
	admins Authorizer,
	m *metrics.Metrics,
	log *slog.Logger,
) *Bot {
	return &Bot{
		transport:   t,
		users:       users,
		habits:      habits,
		reminders:   reminders,
		broadcaster: broadcaster,
		admins:      admins,
		sessions:    NewSessions(),
		metrics:     m,
		log:         log,
	}
}

// Sessions возвращает режимы диалогов пользователей.
func (b *Bot) Sessions() *Sessions {
	return b.sessions
}

// Handle обрабатывает одно событие. Ошибки отвечаются пользователю и логируются,
// но никогда не возвращаются вызывающему.
func (b *Bot) Handle(ctx context.Context, ev transport.Event) {
	if ev.UserID == "" {
		return
	}
	log := b.log.With(
		slog.String("request_id", uuid.NewString()),
		sl.User(ev.UserID),
		slog.String("username", ev.Username),
	)

	if err := b.users.UpsertUser(ctx, ev.UserID); err != nil {
		log.Error("failed to register user", sl.Err(err))
	}

	sess := b.sessions.acquire(ev.UserID)
	defer sess.release()

	if ev.Selection != nil {
		b.metrics.Event("selection")
		b.handleSelection(ctx, log, ev.UserID, *ev.Selection)
		return
	}

	text := strings.TrimSpace(ev.Text)
	if cmd := parseCommand(text); cmd != cmdNone {
		b.metrics.Event("command")
		log.Debug("command received", slog.String("command", cmd.String()), slog.String("mode", sess.mode.String()))
		b.handleCommand(ctx, log, sess, ev.UserID, cmd)
		return
	}

	b.metrics.Event("text")
	switch sess.mode {
	case ModeAwaitingHabitName:
		b.finishAddHabit(ctx, log, sess, ev.UserID, text)
	case ModeAwaitingReminderTime:
		b.finishSetReminder(ctx, log, sess, ev.UserID, text)
	case ModeAwaitingBroadcastText:
		b.finishBroadcast(ctx, log, sess, ev.UserID, text)
	default:
		b.reply(ctx, log, ev.UserID, transport.OutMessage{Text: msgHelp, Keyboard: b.menu(ev.UserID)})
	}
}

func (b *Bot) handleCommand(ctx context.Context, log *slog.Logger, sess *session, userID string, cmd command) {
	switch cmd {
	case cmdStart:
		sess.mode = ModeIdle
		b.reply(ctx, log, userID, transport.OutMessage{Text: msgGreeting, Keyboard: b.menu(userID)})
	case cmdHelp:
		b.reply(ctx, log, userID, transport.OutMessage{Text: msgHelp, Keyboard: b.menu(userID)})
	case cmdCancel:
		sess.mode = ModeIdle
		b.reply(ctx, log, userID, transport.OutMessage{Text: msgCancelled, Keyboard: b.menu(userID)})
	case cmdAdd:
		sess.mode = ModeAwaitingHabitName
		b.reply(ctx, log, userID, transport.OutMessage{Text: msgAskHabitName, Keyboard: cancelMenu()})
	case cmdReminder:
		sess.mode = ModeAwaitingReminderTime
		b.reply(ctx, log, userID, transport.OutMessage{Text: b.reminderPrompt(ctx, log, userID), Keyboard: cancelMenu()})
	case cmdBroadcast:
		if !b.admins.IsAdmin(userID) {
			log.Warn("broadcast command from non-admin")
			b.reply(ctx, log, userID, transport.OutMessage{Text: msgNotAvailable})
			return
		}
		sess.mode = ModeAwaitingBroadcastText
		b.reply(ctx, log, userID, transport.OutMessage{Text: msgAskBroadcast, Keyboard: cancelMenu()})
	case cmdList:
		b.listHabits(ctx, log, userID)
	case cmdMark:
		b.chooseHabit(ctx, log, userID, actionMark, msgChooseMark, msgNoHabitsToMark)
	case cmdDelete:
		b.chooseHabit(ctx, log, userID, actionDelete, msgChooseDelete, msgNoHabitsToDrop)
	case cmdStats:
		b.showStats(ctx, log, userID)
	}
}

func (b *Bot) listHabits(ctx context.Context, log *slog.Logger, userID string) {
	habits, err := b.habits.List(ctx, userID)
	if err != nil {
		b.fail(ctx, log, userID, "failed to list habits", err)
		return
	}
	b.reply(ctx, log, userID, transport.OutMessage{Text: renderHabits(habits)})
}

func (b *Bot) chooseHabit(ctx context.Context, log *slog.Logger, userID, action, prompt, empty string) {
	habits, err := b.habits.List(ctx, userID)
	if err != nil {
		b.fail(ctx, log, userID, "failed to list habits", err)
		return
	}
	if len(habits) == 0 {
		b.reply(ctx, log, userID, transport.OutMessage{Text: empty})
		return
	}
	options := make([]transport.Button, 0, len(habits))
	for _, h := range habits {
		options = append(options, transport.Button{Text: h, Action: action, Payload: h})
	}
	b.reply(ctx, log, userID, transport.OutMessage{Text: prompt, Options: options})
}

func (b *Bot) showStats(ctx context.Context, log *slog.Logger, userID string) {
	stats, err := b.habits.Stats(ctx, userID)
	if err != nil {
		b.fail(ctx, log, userID, "failed to load stats", err)
		return
	}
	b.reply(ctx, log, userID, transport.OutMessage{Text: renderStats(stats)})
}

func (b *Bot) reminderPrompt(ctx context.Context, log *slog.Logger, userID string) string {
	current, err := b.reminders.Get(ctx, userID)
	switch {
	case err == nil:
		return msgCurrentReminder(current.TimeOfDay)
	case !errors.Is(err, storage.ErrReminderNotFound):
		log.Error("failed to load reminder", sl.Err(err))
	}
	return msgAskReminder
}

func (b *Bot) finishAddHabit(ctx context.Context, log *slog.Logger, sess *session, userID, text string) {
	sess.mode = ModeIdle

	name, err := b.habits.Add(ctx, userID, text)
	var reply string
	switch {
	case err == nil:
		reply = msgHabitAdded(name)
	case errors.Is(err, storage.ErrHabitExists):
		reply = msgHabitExists
	case errors.Is(err, habit.ErrInvalidName):
		reply = msgInvalidName(habit.MaxNameBytes)
	default:
		log.Error("failed to add habit", sl.Err(err))
		reply = msgSomethingFailed
	}
	b.reply(ctx, log, userID, transport.OutMessage{Text: reply, Keyboard: b.menu(userID)})
}

// finishSetReminder при неверном времени оставляет пользователя в режиме ввода времени.
func (b *Bot) finishSetReminder(ctx context.Context, log *slog.Logger, sess *session, userID, text string) {
	slot, err := b.reminders.Set(ctx, userID, text)
	switch {
	case err == nil:
		sess.mode = ModeIdle
		b.reply(ctx, log, userID, transport.OutMessage{Text: msgReminderSet(slot), Keyboard: b.menu(userID)})
	case errors.Is(err, reminder.ErrInvalidTime):
		b.reply(ctx, log, userID, transport.OutMessage{Text: msgInvalidTime, Keyboard: cancelMenu()})
	default:
		sess.mode = ModeIdle
		log.Error("failed to set reminder", sl.Err(err))
		b.reply(ctx, log, userID, transport.OutMessage{Text: msgSomethingFailed, Keyboard: b.menu(userID)})
	}
}

func (b *Bot) finishBroadcast(ctx context.Context, log *slog.Logger, sess *session, userID, text string) {
	sess.mode = ModeIdle

	res, err := b.broadcaster.Broadcast(ctx, userID, text)
	var reply string
	switch {
	case err == nil:
		reply = msgBroadcastDone(res)
	case errors.Is(err, broadcast.ErrForbidden):
		reply = msgNotAvailable
	case errors.Is(err, broadcast.ErrEmptyMessage):
		reply = msgEmptyBroadcast
	default:
		log.Error("broadcast failed", sl.Err(err))
		reply = msgSomethingFailed
	}
	b.reply(ctx, log, userID, transport.OutMessage{Text: reply, Keyboard: b.menu(userID)})
}

// handleSelection выполняет действие из встроенного меню и заменяет им текст сообщения с меню.
func (b *Bot) handleSelection(ctx context.Context, log *slog.Logger, userID string, sel transport.Selection) {
	name := sel.Payload
	var result string

	switch sel.Action {
	case actionMark:
		err := b.habits.MarkToday(ctx, userID, name)
		switch {
		case err == nil:
			result = msgMarked(name)
		case errors.Is(err, storage.ErrAlreadyMarked):
			result = msgAlreadyMarked
		case errors.Is(err, storage.ErrHabitNotFound):
			result = msgHabitNotFound(name)
		default:
			log.Error("failed to mark habit", sl.Err(err))
			result = msgSomethingFailed
		}
	case actionDelete:
		deleted, err := b.habits.Delete(ctx, userID, name)
		switch {
		case err != nil:
			log.Error("failed to delete habit", sl.Err(err))
			result = msgSomethingFailed
		case deleted:
			result = msgDeleted(name)
		default:
			result = msgHabitNotFound(name)
		}
	default:
		log.Warn("unknown selection action", slog.String("action", sel.Action))
		return
	}

	if err := b.transport.Edit(ctx, sel.Ref, result); err != nil {
		log.Warn("failed to edit message, sending new one", sl.Err(err))
		b.reply(ctx, log, userID, transport.OutMessage{Text: result})
	}
}

func (b *Bot) menu(userID string) [][]string {
	return mainMenu(b.admins.IsAdmin(userID))
}

func (b *Bot) fail(ctx context.Context, log *slog.Logger, userID, msg string, err error) {
	log.Error(msg, sl.Err(err))
	b.reply(ctx, log, userID, transport.OutMessage{Text: msgSomethingFailed})
}

func (b *Bot) reply(ctx context.Context, log *slog.Logger, userID string, msg transport.OutMessage) {
	if err := b.transport.Send(ctx, userID, msg); err != nil {
		log.Error("failed to send reply", sl.Err(err))
	}
}
