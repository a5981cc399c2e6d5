package telegram

import (
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/duragon35SG/habit-bot/internal/transport"
)

// toEvent переводит обновление Telegram в transport.Event.
// Принимаются только личные чаты: в них id чата совпадает с id отправителя,
// поэтому ответ по UserID уходит тому же человеку. Обновления из групп, без
// отправителя, без текста и без данных кнопки пропускаются.
func toEvent(update tgbotapi.Update) (transport.Event, bool) {
	switch {
	case update.CallbackQuery != nil:
		q := update.CallbackQuery
		if q.From == nil || q.Message == nil || !isPrivate(q.Message.Chat) {
			return transport.Event{}, false
		}
		action, payload, ok := transport.DecodePayload(q.Data)
		if !ok {
			action, payload = q.Data, ""
		}
		return transport.Event{
			UserID:   chatID(q.From.ID),
			Username: q.From.UserName,
			Selection: &transport.Selection{
				Action:  action,
				Payload: payload,
				Ref: transport.MessageRef{
					ChatID:    chatID(q.Message.Chat.ID),
					MessageID: q.Message.MessageID,
				},
			},
		}, true
	case update.Message != nil:
		m := update.Message
		if m.From == nil || !isPrivate(m.Chat) || m.Text == "" {
			return transport.Event{}, false
		}
		return transport.Event{
			UserID:   chatID(m.From.ID),
			Username: m.From.UserName,
			Text:     m.Text,
		}, true
	default:
		return transport.Event{}, false
	}
}

func isPrivate(chat *tgbotapi.Chat) bool {
	return chat != nil && chat.IsPrivate()
}

func chatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

// replyMarkup строит встроенное меню, если есть варианты выбора, иначе постоянную клавиатуру.
func replyMarkup(msg transport.OutMessage) any {
	if len(msg.Options) > 0 {
		rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(msg.Options))
		for _, o := range msg.Options {
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData(o.Text, transport.EncodePayload(o.Action, o.Payload)),
			))
		}
		return tgbotapi.NewInlineKeyboardMarkup(rows...)
	}
	if len(msg.Keyboard) > 0 {
		rows := make([][]tgbotapi.KeyboardButton, 0, len(msg.Keyboard))
		for _, labels := range msg.Keyboard {
			row := make([]tgbotapi.KeyboardButton, 0, len(labels))
			for _, l := range labels {
				row = append(row, tgbotapi.NewKeyboardButton(l))
			}
			rows = append(rows, row)
		}
		kb := tgbotapi.NewReplyKeyboard(rows...)
		kb.ResizeKeyboard = true
		return kb
	}
	return nil
}
