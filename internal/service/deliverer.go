// internal/service/deliverer.go
package service

import (
	"fmt"
	"math/rand"
	"time"
)

// Deliverer is the abstract transport boundary. A returned error is the
// delivery failure detail recorded in the ledger; the engine never assumes a
// specific transport and never retries a failed recipient.
type Deliverer interface {
	Deliver(subject, body, recipientKey string) error
}

// DeliverFunc adapts a plain function to the Deliverer interface.
type DeliverFunc func(subject, body, recipientKey string) error

func (f DeliverFunc) Deliver(subject, body, recipientKey string) error {
	return f(subject, body, recipientKey)
}

// MockDeliverer simulates a transport, failing a configurable fraction of
// sends. TODO: swap for a real SMTP sender once provider credentials exist.
type MockDeliverer struct {
	FailureRate float64
}

func (d *MockDeliverer) Deliver(subject, body, recipientKey string) error {
	if rand.Float64() < d.FailureRate {
		return fmt.Errorf("invalid email address")
	}
	return nil
}

// TimeoutDeliverer bounds each delivery so one slow recipient cannot stall an
// activation indefinitely. A timeout is surfaced as a delivery failure.
type TimeoutDeliverer struct {
	Next    Deliverer
	Timeout time.Duration
}

func (d *TimeoutDeliverer) Deliver(subject, body, recipientKey string) error {
	done := make(chan error, 1)
	go func() {
		done <- d.Next.Deliver(subject, body, recipientKey)
	}()
	select {
	case err := <-done:
		return err
	case <-time.After(d.Timeout):
		return fmt.Errorf("delivery timed out after %s", d.Timeout)
	}
}
