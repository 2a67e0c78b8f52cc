package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/OFFIS-RIT/idisk/backend/internal/queue"
	"github.com/OFFIS-RIT/idisk/backend/internal/storage"
	"github.com/OFFIS-RIT/idisk/backend/internal/util"
	"github.com/OFFIS-RIT/idisk/backend/pkg/graph"
	"github.com/OFFIS-RIT/idisk/backend/pkg/logger"
	"github.com/OFFIS-RIT/idisk/backend/pkg/logger/console"
	neo4jstore "github.com/OFFIS-RIT/idisk/backend/pkg/store/neo4j"
	pgstore "github.com/OFFIS-RIT/idisk/backend/pkg/store/pgx"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	util.LoadEnv()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// logger
	debug := util.GetEnvBool("DEBUG", false)
	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: debug,
	})
	logger.Init(consoleLogger)

	// Init s3 client
	client, err := storage.NewS3Client(ctx)
	if err != nil {
		logger.Fatal("Could not create S3 client", "err", err)
	}

	vocab, err := util.LoadVocabulary()
	if err != nil {
		logger.Fatal("Could not load vocabulary", "err", err)
	}

	graphClient, err := graph.NewGraphClient(graph.NewGraphClientParams{
		Discovery:     graph.Discovery(util.GetEnvString("IDISK_DISCOVERY", string(graph.DiscoveryPairwise))),
		Workers:       int(util.GetEnvNumeric("IDISK_WORKERS", 1)),
		ProgressEvery: int64(util.GetEnvNumeric("IDISK_PROGRESS_EVERY", int(util.DefaultProgressEvery))),
	})
	if err != nil {
		logger.Fatal("Could not create graph client", "err", err)
	}

	neo, err := neo4jstore.NewClientFromEnv(ctx)
	switch {
	case errors.Is(err, neo4jstore.ErrNotConfigured):
		logger.Info("Neo4j not configured, neo4j exports are disabled")
	case err != nil:
		logger.Fatal("Could not connect to Neo4j", "err", err)
	default:
		defer neo.Close(context.Background())
	}

	// Init pgx client
	databaseURL := util.GetEnv("DATABASE_URL")
	if err := pgstore.Migrate(databaseURL); err != nil {
		logger.Fatal("Unable to migrate database", "err", err)
	}
	pgConn, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		logger.Fatal("Unable to connect to database", "err", err)
	}
	defer pgConn.Close()

	// Init rabbitmq
	conn, err := queue.Init()
	if err != nil {
		logger.Fatal("Failed to connect to RabbitMQ", "err", err)
	}
	defer conn.Close()

	// Init rabbitmq queues if not exist
	ch, err := conn.Channel()
	if err != nil {
		logger.Fatal("Failed to open channel", "err", err)
	}
	defer ch.Close()

	if err := queue.SetupQueues(ch, queue.Queues); err != nil {
		logger.Fatal("Failed to set up queues", "err", err)
	}

	worker := &queue.Worker{
		S3:            client,
		Conn:          pgConn,
		Channel:       ch,
		Graph:         graphClient,
		Vocab:         vocab,
		Neo4j:         neo,
		ParallelFiles: int(util.GetEnvNumeric("IDISK_PARALLEL_FILES", 4)),
		LockTTL:       time.Duration(util.GetEnvNumeric("IDISK_LOCK_TTL_SECONDS", 60) * float64(time.Second)),
	}

	logger.Info("Listening for messages")

	// Create a single consumer channel with prefetch=1
	// This ensures only ONE message is delivered at a time across all queues
	consumerCh, err := conn.Channel()
	if err != nil {
		logger.Fatal("Failed to open consumer channel", "err", err)
	}
	defer consumerCh.Close()

	err = consumerCh.Qos(1, 0, true)
	if err != nil {
		logger.Fatal("Failed to set QoS", "err", err)
	}

	type queuedMessage struct {
		msg       amqp.Delivery
		queueName string
	}

	messageChan := make(chan queuedMessage)

	for _, queueName := range queue.Queues {
		go func(qName string) {
			consumerTag := fmt.Sprintf("%s_consumer", qName)
			msgs, err := consumerCh.Consume(
				qName,
				consumerTag,
				false, // autoAck
				false, // exclusive
				false, // noLocal
				false, // noWait
				nil,   // args
			)
			if err != nil {
				logger.Fatal("Failed to start consuming", "queue", qName, "err", err)
			}

			for {
				select {
				case <-ctx.Done():
					logger.Info("Stopping consumer", "queue", qName)
					return
				case msg, ok := <-msgs:
					if !ok {
						logger.Info("Message channel closed", "queue", qName)
						return
					}
					messageChan <- queuedMessage{msg: msg, queueName: qName}
				}
			}
		}(queueName)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				logger.Info("Stopping message processor")
				return
			case qm := <-messageChan:
				startTime := time.Now()
				logger.Info("Received message", "queue", qm.queueName)

				// Failed messages go to the retry queue or the dead-letter queue
				if err := worker.Handle(ctx, qm.queueName, qm.msg.Body); err != nil {
					logger.Error("Error processing message", "queue", qm.queueName, "err", err)
					queue.HandleProcessingError(consumerCh, qm.msg, qm.queueName)
				} else {
					if err := qm.msg.Ack(false); err != nil {
						logger.Error("Failed to ack message", "err", err)
					}
					logger.Info("Message processed successfully", "queue", qm.queueName)
				}

				logger.Info(
					"Processing time",
					"duration", util.FormatDuration(time.Since(startTime)),
					"warnings", logger.ResetWarnCount(),
				)
				logger.Info("Waiting for next message")
			}
		}
	}()

	<-ctx.Done()
	logger.Info("Shutdown signal received, exiting...")
}
