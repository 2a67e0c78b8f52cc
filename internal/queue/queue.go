package queue

import (
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"github.com/OFFIS-RIT/idisk/backend/internal/util"
	"github.com/OFFIS-RIT/idisk/backend/pkg/logger"
)

const (
	MergeQueue  = "merge_queue"
	ExportQueue = "export_queue"
	DeleteQueue = "delete_queue"

	eventExchange = "pubsub_exchange"
)

// Queues lists every work queue the worker consumes.
var Queues = []string{MergeQueue, ExportQueue, DeleteQueue}

func Init() (*amqp091.Connection, error) {
	user := util.GetEnvString("RABBITMQ_USER", "guest")
	pass := util.GetEnvString("RABBITMQ_PASSWORD", "guest")
	host := util.GetEnvString("RABBITMQ_HOST", "localhost")
	port := util.GetEnvString("RABBITMQ_PORT", "5672")

	connURL := fmt.Sprintf(
		"amqp://%s:%s@%s:%s/",
		user,
		pass,
		host,
		port,
	)

	conn, err := amqp091.Dial(connURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	return conn, nil
}

// SetupQueues declares every queue together with its retry and dead
// letter queue. Messages in the retry queue return to the work queue
// after ten seconds.
func SetupQueues(ch *amqp091.Channel, queueNames []string) error {
	for _, name := range queueNames {
		if _, err := ch.QueueDeclare(
			name,
			true,  // durable
			false, // autoDelete
			false, // exclusive
			false, // noWait
			nil,   // args
		); err != nil {
			return fmt.Errorf("failed to declare %s: %w", name, err)
		}

		dlqName := name + "_dlq"
		if _, err := ch.QueueDeclare(dlqName, true, false, false, false, nil); err != nil {
			return fmt.Errorf("failed to declare %s: %w", dlqName, err)
		}

		retryName := name + "_retry"
		if _, err := ch.QueueDeclare(
			retryName,
			true,
			false,
			false,
			false,
			amqp091.Table{
				"x-message-ttl":             int32(10000),
				"x-dead-letter-exchange":    "",
				"x-dead-letter-routing-key": name,
			},
		); err != nil {
			return fmt.Errorf("failed to declare %s: %w", retryName, err)
		}
		logger.Debug("[Queue] Declared queue", "queue", name)
	}
	return nil
}

func PublishFIFO(ch *amqp091.Channel, queueName string, data []byte) error {
	q, err := ch.QueueDeclare(
		queueName,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return err
	}

	return ch.Publish(
		"",
		q.Name,
		false,
		false,
		amqp091.Publishing{
			ContentType:  "application/json",
			Body:         data,
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
		},
	)
}

// PublishTopic publishes a job event, e.g. "job.completed", to the topic
// exchange.
func PublishTopic(ch *amqp091.Channel, topic string, data []byte) error {
	err := ch.ExchangeDeclare(
		eventExchange,
		"topic",
		false,
		true,
		false,
		false,
		nil,
	)
	if err != nil {
		return err
	}

	return ch.Publish(
		eventExchange,
		topic,
		false,
		false,
		amqp091.Publishing{
			ContentType:  "application/json",
			Body:         data,
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
		},
	)
}
