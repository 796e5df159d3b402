package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/soundcrate/soundcrate/internal/domain"
)

// RedisQueue implements Queue on Redis lists. Pending messages sit in the
// main list; Receive moves them to a per-queue processing list so a crashed
// worker leaves them visible for recovery rather than lost. Retry pushes a
// message back to pending with its attempt count bumped; once MaxAttempts
// is reached the message lands in the dead-letter list instead.
type RedisQueue struct {
	client      *redis.Client
	name        string
	maxAttempts int
}

type RedisConfig struct {
	Addr        string
	Password    string
	DB          int
	QueueName   string
	MaxAttempts int
}

func NewRedisQueue(ctx context.Context, cfg RedisConfig) (*RedisQueue, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	maxAttempts := cfg.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 5
	}

	return &RedisQueue{
		client:      client,
		name:        cfg.QueueName,
		maxAttempts: maxAttempts,
	}, nil
}

func (q *RedisQueue) pendingKey() string    { return q.name }
func (q *RedisQueue) processingKey() string { return q.name + ":processing" }
func (q *RedisQueue) deadKey() string       { return q.name + ":dead" }

func (q *RedisQueue) Enqueue(ctx context.Context, msg domain.JobMessage) error {
	env, err := NewEnvelope(msg)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal envelope: %w", err)
	}
	if err := q.client.LPush(ctx, q.pendingKey(), payload).Err(); err != nil {
		return fmt.Errorf("failed to enqueue message: %w", err)
	}
	return nil
}

func (q *RedisQueue) Receive(ctx context.Context, max int) ([]*Delivery, error) {
	var deliveries []*Delivery

	for len(deliveries) < max {
		payload, err := q.client.LMove(ctx, q.pendingKey(), q.processingKey(), "RIGHT", "LEFT").Result()
		if errors.Is(err, redis.Nil) {
			break
		}
		if err != nil {
			return deliveries, fmt.Errorf("failed to receive message: %w", err)
		}

		raw := []byte(payload)
		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			// Unparseable payloads can never succeed; drop them from the
			// processing list so they do not pile up.
			_ = q.client.LRem(ctx, q.processingKey(), 1, raw).Err()
			continue
		}

		deliveries = append(deliveries, &Delivery{Envelope: env, raw: raw})
	}

	return deliveries, nil
}

func (q *RedisQueue) Ack(ctx context.Context, d *Delivery) error {
	if err := q.client.LRem(ctx, q.processingKey(), 1, d.raw).Err(); err != nil {
		return fmt.Errorf("failed to ack message %s: %w", d.Envelope.ID, err)
	}
	return nil
}

func (q *RedisQueue) Retry(ctx context.Context, d *Delivery) error {
	env := d.Envelope
	env.Attempts++

	payload, err := json.Marshal(&env)
	if err != nil {
		return fmt.Errorf("failed to marshal envelope: %w", err)
	}

	dest := q.pendingKey()
	if env.Attempts >= q.maxAttempts {
		dest = q.deadKey()
	}

	pipe := q.client.TxPipeline()
	pipe.LRem(ctx, q.processingKey(), 1, d.raw)
	pipe.LPush(ctx, dest, payload)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to retry message %s: %w", d.Envelope.ID, err)
	}
	return nil
}

// RecoverProcessing moves everything from the processing list back to
// pending. Called on worker startup to reclaim messages a previous instance
// took but never resolved.
func (q *RedisQueue) RecoverProcessing(ctx context.Context) (int, error) {
	recovered := 0
	for {
		err := q.client.LMove(ctx, q.processingKey(), q.pendingKey(), "RIGHT", "LEFT").Err()
		if errors.Is(err, redis.Nil) {
			return recovered, nil
		}
		if err != nil {
			return recovered, fmt.Errorf("failed to recover processing list: %w", err)
		}
		recovered++
	}
}
