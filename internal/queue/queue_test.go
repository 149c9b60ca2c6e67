package queue

import (
	"sync"
	"testing"
	"time"
)

func TestInMemoryQueuePublishWithoutSubscribers(t *testing.T) {
	q := NewInMemoryQueue()
	if err := q.Publish("empty_topic", "x"); err == nil {
		t.Error("expected an error publishing to a topic nobody subscribes to")
	}
}

func TestActivationSubscriberRunsActivation(t *testing.T) {
	q := NewInMemoryQueue()

	var mu sync.Mutex
	var activated []string
	var wg sync.WaitGroup
	wg.Add(1)

	StartActivationSubscriber(q, func(id string) error {
		mu.Lock()
		activated = append(activated, id)
		mu.Unlock()
		wg.Done()
		return nil
	})

	// subscriber registration happens in a goroutine
	waitForSubscriber(t, q)

	if err := q.Publish(ActivationTopic, ActivationJob{CampaignID: "abc"}); err != nil {
		t.Fatalf("publish failed: %v", err)
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if len(activated) != 1 || activated[0] != "abc" {
		t.Errorf("expected one activation for abc, got %v", activated)
	}
}

func TestActivationSubscriberDecodesRawJSON(t *testing.T) {
	q := NewInMemoryQueue()

	var wg sync.WaitGroup
	wg.Add(1)
	var got string

	StartActivationSubscriber(q, func(id string) error {
		got = id
		wg.Done()
		return nil
	})
	waitForSubscriber(t, q)

	// what an AMQP consumer would hand over
	if err := q.Publish(ActivationTopic, []byte(`{"campaign_id":"xyz"}`)); err != nil {
		t.Fatalf("publish failed: %v", err)
	}
	wg.Wait()

	if got != "xyz" {
		t.Errorf("expected xyz, got %q", got)
	}
}

func waitForSubscriber(t *testing.T, q *InMemoryQueue) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for {
		q.mu.Lock()
		registered := len(q.handlers[ActivationTopic]) > 0
		q.mu.Unlock()
		if registered {
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("subscriber never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
