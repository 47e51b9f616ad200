package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/OFFIS-RIT/stockrag/internal/queue"
	"github.com/OFFIS-RIT/stockrag/internal/setup"
	"github.com/OFFIS-RIT/stockrag/internal/storage"
	"github.com/OFFIS-RIT/stockrag/internal/timing"
	"github.com/OFFIS-RIT/stockrag/internal/util"
	"github.com/OFFIS-RIT/stockrag/pkg/leaselock"
	"github.com/OFFIS-RIT/stockrag/pkg/loader/s3"
	"github.com/OFFIS-RIT/stockrag/pkg/loader/web"
	"github.com/OFFIS-RIT/stockrag/pkg/logger"
	pgstore "github.com/OFFIS-RIT/stockrag/pkg/store/pgx"

	amqp "github.com/rabbitmq/amqp091-go"
)

func main() {
	util.LoadEnv()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	setup.Logger("worker")

	// Init s3 client
	s3Client, err := storage.NewS3Client(ctx)
	if err != nil {
		logger.Fatal("Could not create S3 client", "err", err)
	}
	bucket, err := storage.NewBucket(s3Client)
	if err != nil {
		logger.Fatal("Could not configure bucket", "err", err)
	}

	aiClient, err := setup.AIClient()
	if err != nil {
		logger.Fatal("Could not create AI client", "err", err)
	}

	if util.GetEnvBool("MIGRATE_ON_START", true) {
		if err := pgstore.Migrate(util.GetEnv("DATABASE_URL"), util.GetEnvString("MIGRATIONS_PATH", "migrations")); err != nil {
			logger.Fatal("Failed to migrate database", "err", err)
		}
	}

	// Init pgx pool
	pool, err := setup.Pool(ctx)
	if err != nil {
		logger.Fatal("Unable to connect to database", "err", err)
	}
	defer pool.Close()

	// Init rabbitmq
	conn, err := queue.Init(queue.URLFromEnv())
	if err != nil {
		logger.Fatal("Failed to connect to RabbitMQ", "err", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		logger.Fatal("Failed to open channel", "err", err)
	}
	defer ch.Close()

	if err := queue.SetupQueues(ch, queue.Queues); err != nil {
		logger.Fatal("Failed to declare queues", "err", err)
	}

	encoder, maxTokens := setup.UnitSettings()
	worker := &queue.Worker{
		AI:        aiClient,
		Storage:   pgstore.NewGraphDBStorageWithConnection(pool),
		Locks:     leaselock.New(pool),
		Publisher: ch,
		Documents: s3.NewS3GraphFileLoader(bucket.Name, s3Client),
		Web:       web.NewWebGraphLoader(nil),

		Graph:         setup.GraphOptions(),
		Encoder:       encoder,
		MaxTokens:     maxTokens,
		ParallelFiles: util.GetEnvInt("WORKER_PARALLEL_FILES", 2),
		ParallelUnits: util.GetEnvInt("AI_PARALLEL_REQ", 4),
		MaxAIRetries:  util.GetEnvInt("AI_MAX_RETRIES", 3),
		LeaseTTL:      util.GetEnvMinutes("LEASE_TTL_MIN", 5),
	}

	logger.Info("Listening for messages")

	// Create a single consumer channel with prefetch=1
	// This ensures only ONE message is delivered at a time across all queues
	consumerCh, err := conn.Channel()
	if err != nil {
		logger.Fatal("Failed to open consumer channel", "err", err)
	}
	defer consumerCh.Close()

	if err := consumerCh.Qos(1, 0, true); err != nil {
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

				processingErr := worker.Process(ctx, qm.queueName, qm.msg.Body)

				// If there was an error send to retry or dead-letter, otherwise ack the message
				if processingErr != nil {
					logger.Error("Error processing message", "queue", qm.queueName, "err", processingErr)
					queue.HandleProcessingError(consumerCh, qm.msg, qm.queueName)
				} else {
					if err := qm.msg.Ack(false); err != nil {
						logger.Error("Failed to ack message", "err", err)
					}
					logger.Info("Message processed successfully", "queue", qm.queueName)
				}

				timing.ReportAI(aiClient.GetMetrics())
				timing.ObserveJob(qm.queueName, startTime, processingErr)
				logger.Info("Waiting for next message")
				aiClient.ResetMetrics()
			}
		}
	}()

	<-ctx.Done()
	logger.Info("Shutdown signal received, exiting...")
}
