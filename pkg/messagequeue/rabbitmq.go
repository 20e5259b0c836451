package messagequeue

import (
	"fmt"

	"github.com/streadway/amqp"
)

// RabbitMQService implements the MessageQueue interface using RabbitMQ.
type RabbitMQService struct {
	conn    *amqp.Connection
	channel *amqp.Channel
}

// NewRabbitMQServiceConfig contains options for creating a new RabbitMQService.
type NewRabbitMQServiceConfig struct {
	URL string
}

// NewRabbitMQService dials the broker and opens a channel.
func NewRabbitMQService(cfg NewRabbitMQServiceConfig) (MessageQueue, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}

	return &RabbitMQService{conn: conn, channel: ch}, nil
}

// Publish sends a persistent message to a durable queue, declaring it if
// necessary.
func (s *RabbitMQService) Publish(queueName string, body []byte) error {
	q, err := s.channel.QueueDeclare(
		queueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue %q: %w", queueName, err)
	}

	err = s.channel.Publish(
		"",     // default exchange
		q.Name, // routing key
		false,  // mandatory
		false,  // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
		})
	if err != nil {
		return fmt.Errorf("failed to publish to queue %q: %w", queueName, err)
	}
	return nil
}

// Consume delivers each message on the queue to handler. Blocks until the
// channel is closed.
func (s *RabbitMQService) Consume(queueName string, handler func(body []byte)) error {
	q, err := s.channel.QueueDeclare(queueName, true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to declare queue %q: %w", queueName, err)
	}

	msgs, err := s.channel.Consume(
		q.Name,
		"",    // consumer tag
		true,  // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer for queue %q: %w", queueName, err)
	}

	for d := range msgs {
		handler(d.Body)
	}
	return nil
}

// Close closes the RabbitMQ channel and connection.
func (s *RabbitMQService) Close() error {
	var lastErr error
	if s.channel != nil {
		if err := s.channel.Close(); err != nil {
			lastErr = err
		}
	}
	if s.conn != nil {
		if err := s.conn.Close(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}
