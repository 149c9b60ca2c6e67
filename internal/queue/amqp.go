package queue

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"github.com/streadway/amqp"
)

// AMQPQueue implements Queue over RabbitMQ so activations survive the process
// that requested them and can be consumed by a separate worker.
type AMQPQueue struct {
	URL string

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewAMQPQueue(url string) *AMQPQueue {
	return &AMQPQueue{URL: url}
}

// channel lazily dials the broker and reuses one channel.
func (q *AMQPQueue) channel() (*amqp.Channel, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.ch != nil {
		return q.ch, nil
	}

	conn, err := amqp.Dial(q.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}
	q.conn = conn
	q.ch = ch
	return ch, nil
}

func (q *AMQPQueue) Publish(topic string, payload any) error {
	ch, err := q.channel()
	if err != nil {
		return err
	}

	if _, err := ch.QueueDeclare(
		topic,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	); err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	return ch.Publish(
		"",
		topic,
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	)
}

// Subscribe consumes the topic and hands each raw body to the handler. Failed
// jobs are requeued up to three times via the x-retry-count header.
func (q *AMQPQueue) Subscribe(topic string, handler func(payload any) error) error {
	ch, err := q.channel()
	if err != nil {
		return err
	}

	if _, err := ch.QueueDeclare(topic, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	msgs, err := ch.Consume(
		topic,
		"",
		false, // autoAck = false for reliability
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	go func() {
		for d := range msgs {
			if err := handler(d.Body); err != nil {
				var retryCount int32
				if v, ok := d.Headers["x-retry-count"].(int32); ok {
					retryCount = v
				}
				if retryCount < 3 {
					headers := amqp.Table{"x-retry-count": retryCount + 1}
					if pubErr := ch.Publish("", topic, false, false, amqp.Publishing{
						ContentType: "application/json",
						Body:        d.Body,
						Headers:     headers,
					}); pubErr != nil {
						log.Println("Failed to requeue job:", pubErr)
					}
				} else {
					log.Printf("Job permanently failed after %d attempts: %s\n", retryCount, d.Body)
				}
			}
			d.Ack(false)
		}
	}()
	return nil
}

// Close shuts down the channel and connection.
func (q *AMQPQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.ch != nil {
		q.ch.Close()
		q.ch = nil
	}
	if q.conn != nil {
		q.conn.Close()
		q.conn = nil
	}
}

var _ Queue = (*AMQPQueue)(nil)
