package rabbitmq

// QueueConfig очередь и ключ маршрутизации, с которым она привязана к exchange.
type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

const (
	// RemindersQueue очередь напоминаний.
	RemindersQueue = "notifications.reminders"
	// RemindersRoutingKey ключ маршрутизации напоминаний.
	RemindersRoutingKey = "reminder"
)

// GetNotificationQueues возвращает очереди, которые объявляются при старте.
func GetNotificationQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: RemindersQueue, RoutingKey: RemindersRoutingKey},
	}
}
