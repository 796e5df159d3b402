// Package worker runs the queue consumer loop and the stuck-version sweeper.
package worker

import (
	"context"
	"sync"
	"time"

	"github.com/soundcrate/soundcrate/internal/logger"
	"github.com/soundcrate/soundcrate/internal/pipeline"
	"github.com/soundcrate/soundcrate/internal/queue"
)

// Config controls the polling cadence of the consumer loop.
type Config struct {
	BatchSize     int
	PollInterval  time.Duration
	SweepInterval time.Duration
}

// Worker polls the queue on an interval and hands batches to the router. An
// in-flight batch always settles before Stop returns.
type Worker struct {
	cfg     Config
	queue   queue.Queue
	router  *pipeline.Router
	sweeper *pipeline.Sweeper
	log     *logger.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(cfg Config, q queue.Queue, router *pipeline.Router, sweeper *pipeline.Sweeper, log *logger.Logger) *Worker {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = time.Minute
	}
	return &Worker{
		cfg:     cfg,
		queue:   q,
		router:  router,
		sweeper: sweeper,
		log:     log.WithComponent("worker"),
	}
}

// Start launches the consume and sweep loops.
func (w *Worker) Start(ctx context.Context) {
	ctx, w.cancel = context.WithCancel(ctx)

	w.wg.Add(1)
	go w.consumeLoop(ctx)

	if w.sweeper != nil {
		w.wg.Add(1)
		go w.sweepLoop(ctx)
	}

	w.log.Info("Worker started",
		"batch_size", w.cfg.BatchSize,
		"poll_interval", w.cfg.PollInterval.String(),
		"sweep_interval", w.cfg.SweepInterval.String())
}

// Stop cancels the loops and waits for them to drain.
func (w *Worker) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
	w.log.Info("Worker stopped")
}

func (w *Worker) consumeLoop(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.poll(ctx)
		}
	}
}

func (w *Worker) poll(ctx context.Context) {
	deliveries, err := w.queue.Receive(ctx, w.cfg.BatchSize)
	if err != nil {
		if ctx.Err() == nil {
			w.log.Error("Failed to receive from queue", "error", err)
		}
		return
	}
	if len(deliveries) == 0 {
		return
	}
	w.log.Debug("Received batch", "count", len(deliveries))
	w.router.ProcessBatch(ctx, deliveries)
}

func (w *Worker) sweepLoop(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := w.sweeper.Sweep(ctx)
			if err != nil {
				if ctx.Err() == nil {
					w.log.Error("Sweep failed", "error", err)
				}
				continue
			}
			if n > 0 {
				w.log.Info("Sweep requeued stuck versions", "count", n)
			}
		}
	}
}
