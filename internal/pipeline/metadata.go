package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/soundcrate/soundcrate/internal/domain"
	"github.com/soundcrate/soundcrate/internal/keys"
	"github.com/soundcrate/soundcrate/internal/logger"
	"github.com/soundcrate/soundcrate/internal/objectstore"
	"github.com/soundcrate/soundcrate/internal/store"
	"github.com/soundcrate/soundcrate/internal/tagging"
)

// MetadataHandler rebuilds the download artifact after a user edits the
// version's textual metadata. It reads the stored row fields back rather than
// re-probing the audio, touches only the download key, and never moves the
// processing status.
type MetadataHandler struct {
	Store   *store.DB
	Objects objectstore.Store
	Log     *logger.Logger
}

func NewMetadataHandler(db *store.DB, objects objectstore.Store, log *logger.Logger) *MetadataHandler {
	return &MetadataHandler{
		Store:   db,
		Objects: objects,
		Log:     log.WithComponent("metadata_job"),
	}
}

func (h *MetadataHandler) Handle(ctx context.Context, msg domain.JobMessage) error {
	job, ok := msg.(domain.UpdateMetadata)
	if !ok {
		return fmt.Errorf("metadata handler received %s message", msg.Kind())
	}
	log := h.Log.WithVersion(job.TrackID, job.VersionID)

	version, err := h.Store.GetVersion(job.VersionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Warn("Version row is gone, dropping job")
			return nil
		}
		return fmt.Errorf("failed to load version: %w", err)
	}
	if version.Status != domain.StatusComplete {
		log.Info("Version has no download artifact yet, dropping job", "status", string(version.Status))
		return nil
	}

	original, err := h.Objects.Get(ctx, version.OriginalKey)
	if err != nil {
		return fmt.Errorf("failed to fetch original %s: %w", version.OriginalKey, err)
	}

	track, err := h.Store.GetTrack(job.TrackID)
	if err != nil {
		return fmt.Errorf("failed to load track: %w", err)
	}

	set := tagging.TagSet{
		Title:  track.Title,
		Artist: version.Artist,
		Album:  version.Album,
		Genre:  version.Genre,
		Year:   version.Year,
	}
	if version.AlbumArtKey != nil {
		art, err := h.Objects.Get(ctx, *version.AlbumArtKey)
		if err != nil {
			// A vanished cover degrades the rebuild instead of blocking it.
			log.Warn("Album art object missing, rebuilding without cover", "key", *version.AlbumArtKey, "error", err)
		} else {
			info, serr := h.Objects.Stat(ctx, *version.AlbumArtKey)
			set.ArtworkData = art
			if serr == nil {
				set.ArtworkMIME = info.ContentType
			} else {
				set.ArtworkMIME = "image/jpeg"
			}
		}
	}

	download, err := tagging.Apply(original, set)
	if err != nil {
		return fmt.Errorf("failed to tag download artifact: %w", err)
	}

	downloadKey := keys.Download(job.TrackID, job.VersionID)
	if err := h.Objects.Put(ctx, downloadKey, download, audioContentType(version.Codec)); err != nil {
		return fmt.Errorf("failed to store download artifact: %w", err)
	}
	if err := h.Store.UpdateDownloadKey(job.VersionID, downloadKey); err != nil {
		return fmt.Errorf("failed to update download key: %w", err)
	}

	log.Info("Download artifact rebuilt", "download_key", downloadKey)
	return nil
}
