package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/soundcrate/soundcrate/internal/domain"
	"github.com/soundcrate/soundcrate/internal/keys"
	"github.com/soundcrate/soundcrate/internal/logger"
	"github.com/soundcrate/soundcrate/internal/objectstore"
	"github.com/soundcrate/soundcrate/internal/probe"
	"github.com/soundcrate/soundcrate/internal/store"
	"github.com/soundcrate/soundcrate/internal/tagging"
)

// AudioHandler turns an uploaded original into the stream and download
// artifacts and completes the version row. All destination keys are
// deterministic, so a redelivered job overwrites its own previous output.
type AudioHandler struct {
	Store   *store.DB
	Objects objectstore.Store
	Log     *logger.Logger
}

func NewAudioHandler(db *store.DB, objects objectstore.Store, log *logger.Logger) *AudioHandler {
	return &AudioHandler{
		Store:   db,
		Objects: objects,
		Log:     log.WithComponent("audio_job"),
	}
}

func (h *AudioHandler) Handle(ctx context.Context, msg domain.JobMessage) error {
	job, ok := msg.(domain.ProcessAudio)
	if !ok {
		return fmt.Errorf("audio handler received %s message", msg.Kind())
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

	claimed, err := h.Store.ClaimVersionForProcessing(version.ID)
	if err != nil {
		return fmt.Errorf("failed to claim version: %w", err)
	}
	if !claimed {
		log.Info("Version not claimable, dropping duplicate delivery", "status", string(version.Status))
		return nil
	}

	if err := h.run(ctx, job, log); err != nil {
		if ferr := h.Store.FailVersion(version.ID, err.Error()); ferr != nil {
			log.Error("Failed to mark version failed", "error", ferr)
		}
		return err
	}
	return nil
}

// run does the work between a successful claim and the completion update.
// Any error here moves the row to failed and is retried by the queue.
func (h *AudioHandler) run(ctx context.Context, job domain.ProcessAudio, log *logger.Logger) error {
	original, err := h.Objects.Get(ctx, job.OriginalKey)
	if err != nil {
		return fmt.Errorf("failed to fetch original %s: %w", job.OriginalKey, err)
	}

	facts, artwork, err := probe.Extract(original)
	if err != nil {
		return fmt.Errorf("failed to probe original: %w", err)
	}
	log.Info("Probed original",
		"codec", facts.Codec,
		"duration", facts.Duration,
		"bitrate", facts.Bitrate,
		"size", len(original))

	// The stream artifact is a byte copy of the original until transcoding
	// lands. Its key and content type are the lossy-stream contract, fixed
	// regardless of source codec, so nothing upstream changes when it does.
	streamKey := keys.Stream(job.TrackID, job.VersionID)
	if err := h.Objects.Put(ctx, streamKey, original, "audio/mpeg"); err != nil {
		return fmt.Errorf("failed to store stream artifact: %w", err)
	}

	var albumArtKey *string
	if artwork != nil {
		artKey := keys.AlbumArt(job.TrackID, job.VersionID, artwork.Ext)
		if err := h.Objects.Put(ctx, artKey, artwork.Data, artwork.MIME); err != nil {
			return fmt.Errorf("failed to store album art: %w", err)
		}
		albumArtKey = &artKey
	}

	track, err := h.Store.GetTrack(job.TrackID)
	if err != nil {
		return fmt.Errorf("failed to load track: %w", err)
	}

	set := tagging.TagSet{
		Title:  track.Title,
		Artist: facts.Artist,
		Album:  facts.Album,
		Genre:  facts.Genre,
		Year:   facts.Year,
	}
	if artwork != nil {
		set.ArtworkData = artwork.Data
		set.ArtworkMIME = artwork.MIME
	}
	download, err := tagging.Apply(original, set)
	if err != nil {
		return fmt.Errorf("failed to tag download artifact: %w", err)
	}

	downloadKey := keys.Download(job.TrackID, job.VersionID)
	if err := h.Objects.Put(ctx, downloadKey, download, audioContentType(facts.Codec)); err != nil {
		return fmt.Errorf("failed to store download artifact: %w", err)
	}

	vf := store.VersionFacts{
		Duration:     facts.Duration,
		Bitrate:      facts.Bitrate,
		SampleRate:   facts.SampleRate,
		ChannelCount: facts.ChannelCount,
		Codec:        facts.Codec,
		Artist:       facts.Artist,
		Album:        facts.Album,
		Genre:        facts.Genre,
		Year:         facts.Year,
	}
	if err := h.Store.CompleteVersion(job.VersionID, vf, streamKey, downloadKey, albumArtKey); err != nil {
		return fmt.Errorf("failed to complete version: %w", err)
	}

	adopted, err := h.Store.AdoptActiveVersionIfNone(job.TrackID, job.VersionID)
	if err != nil {
		log.Error("Failed to adopt active version", "error", err)
	} else if adopted {
		log.Info("Adopted as active version")
	}
	if !adopted {
		if err := h.Store.TouchTrack(job.TrackID); err != nil {
			log.Warn("Failed to touch track", "error", err)
		}
	}

	log.Info("Audio processing complete", "stream_key", streamKey, "download_key", downloadKey)
	return nil
}

func audioContentType(codec string) string {
	if codec == "flac" {
		return "audio/flac"
	}
	return "audio/mpeg"
}
