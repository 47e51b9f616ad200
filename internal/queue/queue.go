package queue

import (
	"fmt"
	"time"

	"github.com/OFFIS-RIT/stockrag/internal/util"

	"github.com/rabbitmq/amqp091-go"
)

const (
	ExtractQueue   = "extract_queue"
	CommunityQueue = "community_queue"

	// TopicExchange carries graph change notifications.
	TopicExchange = "pubsub_exchange"

	retryTTLMs = int32(10000)
)

// Queues lists every work queue consumed by the worker.
var Queues = []string{ExtractQueue, CommunityQueue}

// Publisher is the part of *amqp091.Channel used to publish messages.
type Publisher interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
}

// declarer is the part of *amqp091.Channel used to declare queues.
type declarer interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp091.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp091.Table) (amqp091.Queue, error)
}

// URLFromEnv builds the AMQP url from the RABBITMQ_* variables.
func URLFromEnv() string {
	return fmt.Sprintf(
		"amqp://%s:%s@%s:%s/",
		util.GetEnv("RABBITMQ_USER"),
		util.GetEnv("RABBITMQ_PASSWORD"),
		util.GetEnv("RABBITMQ_HOST"),
		util.GetEnvString("RABBITMQ_PORT", "5672"),
	)
}

func Init(url string) (*amqp091.Connection, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	return conn, nil
}

// SetupQueues declares the topic exchange and, for every queue name, the
// queue itself, its dead letter queue and its retry queue. Messages in the
// retry queue return to the work queue after the retry TTL.
func SetupQueues(ch declarer, queueNames []string) error {
	err := ch.ExchangeDeclare(
		TopicExchange,
		"topic",
		false,
		true,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("exchange declare failed: %w", err)
	}

	for _, name := range queueNames {
		if err := declare(ch, name, nil); err != nil {
			return err
		}
		if err := declare(ch, name+"_dlq", nil); err != nil {
			return err
		}
		err := declare(ch, name+"_retry", amqp091.Table{
			"x-message-ttl":             retryTTLMs,
			"x-dead-letter-exchange":    "",
			"x-dead-letter-routing-key": name,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func declare(ch declarer, name string, args amqp091.Table) error {
	_, err := ch.QueueDeclare(
		name,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		args,
	)
	if err != nil {
		return fmt.Errorf("queue declare %s failed: %w", name, err)
	}
	return nil
}

// PublishFIFO publishes a persistent message to queueName through the
// default exchange.
func PublishFIFO(ch Publisher, queueName string, data []byte) error {
	return ch.Publish(
		"",
		queueName,
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

// PublishTopic publishes a notification on the topic exchange.
func PublishTopic(ch Publisher, topic string, data []byte) error {
	return ch.Publish(
		TopicExchange,
		topic,
		false,
		false,
		amqp091.Publishing{
			ContentType: "application/json",
			Body:        data,
			Timestamp:   time.Now(),
		},
	)
}
