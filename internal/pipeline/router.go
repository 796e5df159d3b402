// Package pipeline contains the job handlers behind the media queue and the
// router that dispatches deliveries to them.
package pipeline

import (
	"context"
	"fmt"

	"github.com/soundcrate/soundcrate/internal/domain"
	"github.com/soundcrate/soundcrate/internal/logger"
	"github.com/soundcrate/soundcrate/internal/queue"
)

// Handler processes one decoded job message. A nil return acks the delivery;
// an error sends it back for retry.
type Handler interface {
	Handle(ctx context.Context, msg domain.JobMessage) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, msg domain.JobMessage) error

func (f HandlerFunc) Handle(ctx context.Context, msg domain.JobMessage) error {
	return f(ctx, msg)
}

// Router maps job kinds to handlers and settles every delivery it is handed
// with exactly one ack or retry.
type Router struct {
	handlers map[domain.JobKind]Handler
	queue    queue.Queue
	log      *logger.Logger
}

func NewRouter(q queue.Queue, log *logger.Logger) *Router {
	return &Router{
		handlers: make(map[domain.JobKind]Handler),
		queue:    q,
		log:      log.WithComponent("router"),
	}
}

// Register binds a handler to a job kind, replacing any previous binding.
func (r *Router) Register(kind domain.JobKind, h Handler) {
	r.handlers[kind] = h
}

// ProcessBatch decodes and dispatches each delivery. Malformed payloads and
// unknown job kinds are acked so they cannot clog the queue; handler errors
// and panics send the delivery back for retry.
func (r *Router) ProcessBatch(ctx context.Context, deliveries []*queue.Delivery) {
	for _, d := range deliveries {
		r.process(ctx, d)
	}
}

func (r *Router) process(ctx context.Context, d *queue.Delivery) {
	msg, err := domain.DecodeJobMessage(d.Envelope.Body)
	if err != nil {
		r.log.Warn("Dropping undecodable job message", "message_id", d.Envelope.ID, "error", err)
		r.ack(ctx, d)
		return
	}

	h, ok := r.handlers[msg.Kind()]
	if !ok {
		r.log.Warn("Dropping job with no registered handler", "message_id", d.Envelope.ID, "job_kind", string(msg.Kind()))
		r.ack(ctx, d)
		return
	}

	log := r.log.WithJob(string(msg.Kind()))
	if err := r.dispatch(ctx, h, msg); err != nil {
		log.Error("Job failed", "message_id", d.Envelope.ID, "attempt", d.Envelope.Attempts+1, "error", err)
		if rerr := r.queue.Retry(ctx, d); rerr != nil {
			log.Error("Failed to schedule retry", "message_id", d.Envelope.ID, "error", rerr)
		}
		return
	}

	r.ack(ctx, d)
}

// dispatch runs the handler, converting a panic into an ordinary retryable
// error so one bad message cannot take the worker down.
func (r *Router) dispatch(ctx context.Context, h Handler, msg domain.JobMessage) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("job handler panicked: %v", p)
		}
	}()
	return h.Handle(ctx, msg)
}

func (r *Router) ack(ctx context.Context, d *queue.Delivery) {
	if err := r.queue.Ack(ctx, d); err != nil {
		r.log.Error("Failed to ack delivery", "message_id", d.Envelope.ID, "error", err)
	}
}
