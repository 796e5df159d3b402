// Package queue is the at-least-once delivery channel between the upload
// layer and the media pipeline.
package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/soundcrate/soundcrate/internal/domain"
)

// Envelope wraps a job message on the wire with its delivery bookkeeping.
// Attempts counts deliveries so a poison message eventually stops cycling.
type Envelope struct {
	ID       string          `json:"id"`
	Attempts int             `json:"attempts"`
	Body     json.RawMessage `json:"body"`
}

// Delivery is one received message. Exactly one of Ack or Retry must be
// applied to each delivery.
type Delivery struct {
	Envelope Envelope

	// raw is the payload as stored by the broker; implementations use it to
	// locate the in-flight entry on ack/retry.
	raw []byte
}

// Queue is the client surface of the job channel. Receive hands back up to
// max deliveries; redelivery of unacked messages is the broker's job.
type Queue interface {
	Enqueue(ctx context.Context, msg domain.JobMessage) error
	Receive(ctx context.Context, max int) ([]*Delivery, error)
	Ack(ctx context.Context, d *Delivery) error
	Retry(ctx context.Context, d *Delivery) error
}

// NewEnvelope wraps a job message for its first delivery.
func NewEnvelope(msg domain.JobMessage) (*Envelope, error) {
	body, err := domain.EncodeJobMessage(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to encode job message: %w", err)
	}
	return &Envelope{
		ID:   uuid.New().String(),
		Body: body,
	}, nil
}
