package pipeline

import (
	"context"
	"time"

	"github.com/soundcrate/soundcrate/internal/domain"
	"github.com/soundcrate/soundcrate/internal/logger"
	"github.com/soundcrate/soundcrate/internal/queue"
	"github.com/soundcrate/soundcrate/internal/store"
)

// Sweeper requeues versions stranded in processing. A row stuck past the
// threshold means a worker died between claiming it and writing the final
// status; resetting it to pending lets a fresh audio job claim it again.
type Sweeper struct {
	Store      *store.DB
	Queue      queue.Queue
	StuckAfter time.Duration
	Log        *logger.Logger
}

func NewSweeper(db *store.DB, q queue.Queue, stuckAfter time.Duration, log *logger.Logger) *Sweeper {
	return &Sweeper{
		Store:      db,
		Queue:      q,
		StuckAfter: stuckAfter,
		Log:        log.WithComponent("sweeper"),
	}
}

// Sweep runs one pass and returns how many versions it requeued.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	cutoff := time.Now().Add(-s.StuckAfter)
	stuck, err := s.Store.ListStuckVersions(cutoff)
	if err != nil {
		return 0, err
	}

	requeued := 0
	for _, v := range stuck {
		log := s.Log.WithVersion(v.TrackID, v.ID)
		if err := s.Store.ResetVersionToPending(v.ID); err != nil {
			log.Error("Failed to reset stuck version", "error", err)
			continue
		}
		msg := domain.ProcessAudio{
			TrackID:     v.TrackID,
			VersionID:   v.ID,
			OriginalKey: v.OriginalKey,
		}
		if err := s.Queue.Enqueue(ctx, msg); err != nil {
			log.Error("Failed to requeue stuck version", "error", err)
			continue
		}
		log.Info("Requeued stuck version", "stuck_since", v.UpdatedAt)
		requeued++
	}
	return requeued, nil
}
