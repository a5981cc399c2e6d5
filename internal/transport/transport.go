// Package transport описывает контракт чат-транспорта: входящие события,
// исходящие сообщения и меню выбора.
package transport

import (
	"context"
	"errors"
	"strings"
)

// ErrRecipientUnavailable получатель заблокировал бота или удалил чат.
var ErrRecipientUnavailable = errors.New("recipient unavailable")

const payloadSeparator = "|"

// MessageRef ссылка на отправленное сообщение, которое можно отредактировать.
type MessageRef struct {
	ChatID    string
	MessageID int
}

// Button вариант встроенного меню выбора. Action и Payload возвращаются в Selection.
type Button struct {
	Text    string
	Action  string
	Payload string
}

// OutMessage исходящее сообщение. Keyboard задаёт постоянную клавиатуру команд,
// Options встроенное меню под сообщением.
type OutMessage struct {
	Text     string
	Keyboard [][]string
	Options  []Button
}

// Selection выбор пункта встроенного меню.
type Selection struct {
	Action  string
	Payload string
	Ref     MessageRef
}

// Event нормализованное входящее событие. Для выбора из меню заполнено поле Selection.
type Event struct {
	UserID    string
	Username  string
	Text      string
	Selection *Selection
}

// Transport исходящая сторона транспорта. Обе операции могут завершиться ошибкой.
type Transport interface {
	Send(ctx context.Context, userID string, msg OutMessage) error
	Edit(ctx context.Context, ref MessageRef, text string) error
}

// Handler обрабатывает входящие события.
type Handler interface {
	Handle(ctx context.Context, ev Event)
}

// EncodePayload упаковывает действие и аргумент в данные кнопки.
func EncodePayload(action, arg string) string {
	return action + payloadSeparator + arg
}

// DecodePayload разбирает данные кнопки. Аргумент может содержать разделитель.
func DecodePayload(data string) (action, arg string, ok bool) {
	parts := strings.SplitN(data, payloadSeparator, 2)
	if len(parts) != 2 || parts[0] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}
