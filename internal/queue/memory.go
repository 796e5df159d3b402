package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/soundcrate/soundcrate/internal/domain"
)

// MemoryQueue is an in-process Queue with the same ack/retry semantics as
// the Redis implementation. Used by tests and local development.
type MemoryQueue struct {
	mu          sync.Mutex
	pending     [][]byte
	inflight    map[string][]byte
	dead        [][]byte
	maxAttempts int
}

func NewMemoryQueue(maxAttempts int) *MemoryQueue {
	if maxAttempts < 1 {
		maxAttempts = 5
	}
	return &MemoryQueue{
		inflight:    make(map[string][]byte),
		maxAttempts: maxAttempts,
	}
}

func (q *MemoryQueue) Enqueue(_ context.Context, msg domain.JobMessage) error {
	env, err := NewEnvelope(msg)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal envelope: %w", err)
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = append(q.pending, payload)
	return nil
}

func (q *MemoryQueue) Receive(_ context.Context, max int) ([]*Delivery, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var deliveries []*Delivery
	for len(deliveries) < max && len(q.pending) > 0 {
		raw := q.pending[0]
		q.pending = q.pending[1:]

		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			continue
		}
		q.inflight[env.ID] = raw
		deliveries = append(deliveries, &Delivery{Envelope: env, raw: raw})
	}
	return deliveries, nil
}

func (q *MemoryQueue) Ack(_ context.Context, d *Delivery) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.inflight[d.Envelope.ID]; !ok {
		return fmt.Errorf("message %s is not in flight", d.Envelope.ID)
	}
	delete(q.inflight, d.Envelope.ID)
	return nil
}

func (q *MemoryQueue) Retry(_ context.Context, d *Delivery) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.inflight[d.Envelope.ID]; !ok {
		return fmt.Errorf("message %s is not in flight", d.Envelope.ID)
	}
	delete(q.inflight, d.Envelope.ID)

	env := d.Envelope
	env.Attempts++
	payload, err := json.Marshal(&env)
	if err != nil {
		return fmt.Errorf("failed to marshal envelope: %w", err)
	}

	if env.Attempts >= q.maxAttempts {
		q.dead = append(q.dead, payload)
		return nil
	}
	q.pending = append(q.pending, payload)
	return nil
}

// Len reports how many messages are waiting for delivery.
func (q *MemoryQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// DeadLen reports how many messages exhausted their retries.
func (q *MemoryQueue) DeadLen() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.dead)
}
