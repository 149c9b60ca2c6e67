package queue

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	appErrors "github.com/boardyhq/campaign-backend/internal/errors"
)

// ActivationTopic carries requests to run one activation of a campaign.
const ActivationTopic = "campaign_activations"

// ActivationJob is the payload on ActivationTopic.
type ActivationJob struct {
	CampaignID string `json:"campaign_id"`
}

// Queue interface
type Queue interface {
	Publish(topic string, payload any) error
	Subscribe(topic string, handler func(payload any) error) error
}

// InMemoryQueue dispatches published payloads to subscribers with retry.
type InMemoryQueue struct {
	mu       sync.Mutex
	handlers map[string][]func(payload any) error
}

func NewInMemoryQueue() *InMemoryQueue {
	return &InMemoryQueue{
		handlers: make(map[string][]func(payload any) error),
	}
}

// JobPayload wraps a message payload with retry info
type JobPayload struct {
	Payload    any
	RetryCount int
	MaxRetries int
}

// Publish sends a message to all subscribers
func (q *InMemoryQueue) Publish(topic string, payload any) error {
	q.mu.Lock()
	handlers := q.handlers[topic]
	q.mu.Unlock()

	if len(handlers) == 0 {
		return fmt.Errorf("no subscribers for topic %s", topic)
	}

	job := JobPayload{
		Payload:    payload,
		RetryCount: 0,
		MaxRetries: 3,
	}

	for _, handler := range handlers {
		go q.processJob(handler, job)
	}

	return nil
}

// processJob handles retries and errors
func (q *InMemoryQueue) processJob(handler func(payload any) error, job JobPayload) {
	for job.RetryCount <= job.MaxRetries {
		err := handler(job.Payload)
		if err == nil {
			return // ACK
		}

		job.RetryCount++
		log.Printf("Job failed (attempt %d/%d): %+v, error: %v\n", job.RetryCount, job.MaxRetries, job.Payload, err)

		if job.RetryCount > job.MaxRetries {
			log.Printf("Job permanently failed after %d attempts: %+v\n", job.MaxRetries, job.Payload)
			return // No requeue
		}

		// Exponential backoff before retry
		time.Sleep(time.Duration(job.RetryCount*500) * time.Millisecond)
	}
}

// Subscribe adds a handler for a topic
func (q *InMemoryQueue) Subscribe(topic string, handler func(payload any) error) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.handlers[topic] = append(q.handlers[topic], handler)
	return nil
}

// decodeActivationJob accepts either an in-process ActivationJob or the raw
// JSON body an AMQP consumer hands over.
func decodeActivationJob(payload any) (ActivationJob, error) {
	switch p := payload.(type) {
	case ActivationJob:
		return p, nil
	case []byte:
		var job ActivationJob
		if err := json.Unmarshal(p, &job); err != nil {
			return ActivationJob{}, fmt.Errorf("invalid activation job: %w", err)
		}
		return job, nil
	default:
		return ActivationJob{}, fmt.Errorf("invalid payload type %T for %s", payload, ActivationTopic)
	}
}

// StartActivationSubscriber wires the queue into the dispatch engine: every
// job on ActivationTopic runs one activation. A job naming a campaign that no
// longer exists is dropped, not retried.
func StartActivationSubscriber(q Queue, activate func(id string) error) {
	go func() {
		err := q.Subscribe(ActivationTopic, func(payload any) error {
			job, err := decodeActivationJob(payload)
			if err != nil {
				log.Println(err)
				return nil // malformed, no retry
			}

			log.Println("Processing queued activation for campaign:", job.CampaignID)

			if err := activate(job.CampaignID); err != nil {
				if appErrors.IsNotFound(err) {
					log.Println("Campaign not found, dropping activation:", job.CampaignID)
					return nil
				}
				log.Println("Activation failed:", err)
				return err // triggers retry in queue
			}
			return nil
		})
		if err != nil {
			log.Println("Failed to start subscriber for", ActivationTopic, ":", err)
		}
	}()
}
