package rabbitmq

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/streadway/amqp"

	"github.com/duragon35SG/habit-bot/internal/models"
)

// reminderTTL срок жизни напоминания в очереди. Напоминание, пролежавшее дольше
// (например, пока потребитель был остановлен), уже неактуально и отбрасывается брокером.
const reminderTTL = time.Hour

// Publisher часть amqp.Channel, нужная для публикации.
type Publisher interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// PublishReminder ставит напоминание в очередь напоминаний.
func PublishReminder(ch Publisher, n models.Notification) error {
	const op = "rabbitmq.PublishReminder"
	if err := publish(ch, NotificationsExchange, RemindersRoutingKey, n, reminderTTL); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// PublishMessage сериализует message в JSON и публикует его как persistent-сообщение без срока жизни.
func PublishMessage(ch Publisher, exchange string, routingkey string, message any) error {
	const op = "rabbitmq.PublishMessage"
	if err := publish(ch, exchange, routingkey, message, 0); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func publish(ch Publisher, exchange, routingkey string, message any, ttl time.Duration) error {
	body, err := json.Marshal(message)
	if err != nil {
		return err
	}

	p := amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    time.Now().UTC(),
	}
	if ttl > 0 {
		p.Expiration = strconv.FormatInt(ttl.Milliseconds(), 10)
	}
	return ch.Publish(exchange, routingkey, false, false, p)
}
