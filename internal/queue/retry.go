package queue

import (
	"github.com/rabbitmq/amqp091-go"

	"github.com/OFFIS-RIT/idisk/backend/pkg/logger"
)

// MaxRetries is the number of redeliveries before a message is moved to
// the dead letter queue.
const MaxRetries = 10

// retryCount reads the x-retries header. Brokers and clients may encode
// it with different integer widths.
func retryCount(headers amqp091.Table) int {
	switch v := headers["x-retries"].(type) {
	case int32:
		return int(v)
	case int64:
		return int(v)
	case int:
		return v
	case int16:
		return int(v)
	case int8:
		return int(v)
	default:
		return 0
	}
}

// retryTarget returns the queue a failed message goes to next and the
// headers to publish it with.
func retryTarget(queueName string, headers amqp091.Table) (string, amqp091.Table) {
	retries := retryCount(headers)
	if retries >= MaxRetries {
		return queueName + "_dlq", headers
	}
	next := amqp091.Table{}
	for k, v := range headers {
		next[k] = v
	}
	next["x-retries"] = int32(retries + 1)
	return queueName + "_retry", next
}

// HandleProcessingError publishes a failed message to the retry queue of
// queueName, or to its dead letter queue after MaxRetries attempts, and
// acks the original delivery.
func HandleProcessingError(ch *amqp091.Channel, msg amqp091.Delivery, queueName string) {
	target, headers := retryTarget(queueName, msg.Headers)
	logger.Info("[Queue] Requeueing failed message", "queue", queueName, "target", target, "retries", retryCount(msg.Headers))

	err := ch.Publish(
		"",
		target,
		false,
		false,
		amqp091.Publishing{
			ContentType:  msg.ContentType,
			Body:         msg.Body,
			Headers:      headers,
			DeliveryMode: amqp091.Persistent,
		},
	)
	if err != nil {
		logger.Error("[Queue] Failed to publish failed message", "target", target, "err", err)
		_ = msg.Nack(false, true)
		return
	}
	if err := msg.Ack(false); err != nil {
		logger.Error("[Queue] Failed to ack message", "err", err)
	}
}
