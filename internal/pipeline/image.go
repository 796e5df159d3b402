package pipeline

import (
	"context"
	"fmt"

	"github.com/soundcrate/soundcrate/internal/domain"
	"github.com/soundcrate/soundcrate/internal/imagetx"
	"github.com/soundcrate/soundcrate/internal/keys"
	"github.com/soundcrate/soundcrate/internal/logger"
	"github.com/soundcrate/soundcrate/internal/objectstore"
	"github.com/soundcrate/soundcrate/internal/queue"
	"github.com/soundcrate/soundcrate/internal/store"
)

var albumArtSpec = imagetx.Spec{Width: 500, Height: 500, Fit: "cover", Format: "jpeg"}

var avatarSpec = imagetx.Spec{Width: 256, Height: 256, Fit: "cover", Format: "png"}

// ImageHandler moves a temp-uploaded image through the transform chain into
// its permanent key. The remote transformer is optional; when it is absent or
// fails the local one runs, and when even local decode fails the original
// bytes ship unmodified. Image work degrades, it does not fail the job.
type ImageHandler struct {
	Store   *store.DB
	Objects objectstore.Store
	Queue   queue.Queue
	Remote  imagetx.Transformer
	Local   imagetx.Transformer
	Log     *logger.Logger
}

func NewImageHandler(db *store.DB, objects objectstore.Store, q queue.Queue, remote, local imagetx.Transformer, log *logger.Logger) *ImageHandler {
	return &ImageHandler{
		Store:   db,
		Objects: objects,
		Queue:   q,
		Remote:  remote,
		Local:   local,
		Log:     log.WithComponent("image_job"),
	}
}

func (h *ImageHandler) Handle(ctx context.Context, msg domain.JobMessage) error {
	switch job := msg.(type) {
	case domain.ProcessAlbumArt:
		return h.handleAlbumArt(ctx, job)
	case domain.ProcessProfilePhoto:
		return h.handleProfilePhoto(ctx, job)
	default:
		return fmt.Errorf("image handler received %s message", msg.Kind())
	}
}

func (h *ImageHandler) handleAlbumArt(ctx context.Context, job domain.ProcessAlbumArt) error {
	log := h.Log.WithVersion(job.TrackID, job.VersionID)

	// Verify the temp upload exists before touching anything. A missing
	// input is a hard failure with zero mutations behind it.
	if _, err := h.Objects.Stat(ctx, job.TempKey); err != nil {
		return fmt.Errorf("temp upload %s missing: %w", job.TempKey, err)
	}
	data, err := h.Objects.Get(ctx, job.TempKey)
	if err != nil {
		return fmt.Errorf("failed to fetch temp upload %s: %w", job.TempKey, err)
	}

	out := h.transform(ctx, data, albumArtSpec, log)

	destKey := keys.AlbumArt(job.TrackID, job.VersionID, "jpg")
	if err := h.Objects.Put(ctx, destKey, out, albumArtSpec.ContentType()); err != nil {
		return fmt.Errorf("failed to store album art: %w", err)
	}
	if err := h.Store.UpdateAlbumArtKey(job.VersionID, destKey); err != nil {
		return fmt.Errorf("failed to update album art key: %w", err)
	}

	if err := h.Objects.Delete(ctx, job.TempKey); err != nil {
		log.Warn("Failed to delete temp upload", "key", job.TempKey, "error", err)
	}

	// The download artifact embeds the cover, so it needs a rebuild.
	if err := h.Queue.Enqueue(ctx, domain.UpdateMetadata{TrackID: job.TrackID, VersionID: job.VersionID}); err != nil {
		return fmt.Errorf("failed to enqueue metadata update: %w", err)
	}

	log.Info("Album art processed", "key", destKey)
	return nil
}

func (h *ImageHandler) handleProfilePhoto(ctx context.Context, job domain.ProcessProfilePhoto) error {
	log := h.Log.WithUser(job.UserID)

	if _, err := h.Objects.Stat(ctx, job.TempKey); err != nil {
		return fmt.Errorf("temp upload %s missing: %w", job.TempKey, err)
	}
	data, err := h.Objects.Get(ctx, job.TempKey)
	if err != nil {
		return fmt.Errorf("failed to fetch temp upload %s: %w", job.TempKey, err)
	}

	out := h.transform(ctx, data, avatarSpec, log)

	destKey := keys.Avatar(job.UserID)
	if err := h.Objects.Put(ctx, destKey, out, avatarSpec.ContentType()); err != nil {
		return fmt.Errorf("failed to store avatar: %w", err)
	}
	if err := h.Store.UpdateAvatarKey(job.UserID, destKey); err != nil {
		return fmt.Errorf("failed to update avatar key: %w", err)
	}

	if err := h.Objects.Delete(ctx, job.TempKey); err != nil {
		log.Warn("Failed to delete temp upload", "key", job.TempKey, "error", err)
	}

	log.Info("Profile photo processed", "key", destKey)
	return nil
}

// transform runs the remote-then-local fallback chain and falls back to the
// untouched input bytes when neither transformer can produce output.
func (h *ImageHandler) transform(ctx context.Context, data []byte, spec imagetx.Spec, log *logger.Logger) []byte {
	if h.Remote != nil {
		out, err := h.Remote.Transform(ctx, data, spec)
		if err == nil {
			return out
		}
		log.Warn("Remote transform failed, falling back to local", "error", err)
	}
	if h.Local != nil {
		out, err := h.Local.Transform(ctx, data, spec)
		if err == nil {
			return out
		}
		log.Warn("Local transform failed, storing original bytes", "error", err)
	}
	return data
}
