package rabbitmq

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/streadway/amqp"

	"github.com/duragon35SG/habit-bot/internal/lib/sl"
)

const consumerConcurrency = 10

// ConsumerMessage запускает потребителя очереди queueName. Каждое сообщение обрабатывается
// handler в отдельной горутине, одновременно не больше consumerConcurrency.
// Сообщение, которое не удалось обработать, отклоняется без возврата в очередь.
func ConsumerMessage(ctx context.Context, ch *amqp.Channel, queueName string, handler func([]byte) error, logger *slog.Logger) error {
	const op = "rabbitmq.ConsumerMessage"
	delivery, err := ch.Consume(
		queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	sem := make(chan struct{}, consumerConcurrency)
	go func() {
		for {
			select {
			case d, ok := <-delivery:
				if !ok {
					logger.Info("delivery channel closed", slog.String("queue", queueName))
					return
				}
				sem <- struct{}{}
				go func(d amqp.Delivery) {
					defer func() { <-sem }()
					handleDelivery(d, handler, logger)
				}(d)
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}

func handleDelivery(d amqp.Delivery, handler func([]byte) error, logger *slog.Logger) {
	if err := handler(d.Body); err != nil {
		logger.Error("failed to handle message", slog.String("message_id", d.MessageId), sl.Err(err))
		if nackErr := d.Nack(false, false); nackErr != nil {
			logger.Error("failed to nack message", sl.Err(nackErr))
		}
		return
	}
	if ackErr := d.Ack(false); ackErr != nil {
		logger.Error("failed to ack message", sl.Err(ackErr))
	}
}
