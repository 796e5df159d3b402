package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/soundcrate/soundcrate/internal/domain"
)

// CreateVersion inserts a new version row in pending status, assigning the
// next version number for the track. The unique (track_id, version_number)
// index backstops concurrent inserts.
func (db *DB) CreateVersion(version *domain.TrackVersion) error {
	now := time.Now()
	if version.CreatedAt.IsZero() {
		version.CreatedAt = now
	}
	version.UpdatedAt = now
	if version.Status == "" {
		version.Status = domain.StatusPending
	}

	query := `INSERT INTO track_versions (id, track_id, version_number, original_key, processing_status, created_at, updated_at)
		VALUES (?, ?, (SELECT COALESCE(MAX(version_number), 0) + 1 FROM track_versions WHERE track_id = ?), ?, ?, ?, ?)`

	_, err := db.Exec(query, version.ID, version.TrackID, version.TrackID, version.OriginalKey, version.Status, version.CreatedAt, version.UpdatedAt)
	if err != nil {
		return err
	}

	return db.Get(&version.VersionNumber, `SELECT version_number FROM track_versions WHERE id = ?`, version.ID)
}

func (db *DB) GetVersion(id string) (*domain.TrackVersion, error) {
	query := `SELECT id, track_id, version_number, original_key, stream_key, download_key, album_art_key,
		processing_status, error, duration, bitrate, sample_rate, channel_count, codec, artist, album, genre, year,
		archived_at, created_at, updated_at
		FROM track_versions WHERE id = ?`

	version := &domain.TrackVersion{}
	err := db.Get(version, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: version %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return version, nil
}

// ClaimVersionForProcessing is the compare-and-swap entry guard of the audio
// job. Only pending and failed rows are claimable, so a duplicate delivery
// racing an in-flight job loses here instead of processing twice.
func (db *DB) ClaimVersionForProcessing(id string) (bool, error) {
	query := `UPDATE track_versions SET processing_status = ?, error = NULL, updated_at = ?
		WHERE id = ? AND processing_status IN (?, ?)`

	res, err := db.Exec(query, domain.StatusProcessing, time.Now(), id, domain.StatusPending, domain.StatusFailed)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// VersionFacts is the result of probing an uploaded file.
type VersionFacts struct {
	Duration     float64
	Bitrate      int
	SampleRate   int
	ChannelCount int
	Codec        string
	Artist       string
	Album        string
	Genre        string
	Year         int
}

// CompleteVersion persists everything the audio job produced in a single
// update: derived keys, extracted facts, and the complete status.
func (db *DB) CompleteVersion(id string, facts VersionFacts, streamKey, downloadKey string, albumArtKey *string) error {
	query := `UPDATE track_versions SET
		processing_status = ?,
		stream_key = ?, download_key = ?, album_art_key = ?,
		duration = ?, bitrate = ?, sample_rate = ?, channel_count = ?, codec = ?,
		artist = ?, album = ?, genre = ?, year = ?,
		error = NULL, updated_at = ?
		WHERE id = ? AND processing_status = ?`

	res, err := db.Exec(query,
		domain.StatusComplete,
		streamKey, downloadKey, albumArtKey,
		facts.Duration, facts.Bitrate, facts.SampleRate, facts.ChannelCount, facts.Codec,
		facts.Artist, facts.Album, facts.Genre, facts.Year,
		time.Now(), id, domain.StatusProcessing)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("version %s is not in processing", id)
	}
	return nil
}

func (db *DB) FailVersion(id, msg string) error {
	query := `UPDATE track_versions SET processing_status = ?, error = ?, updated_at = ?
		WHERE id = ? AND processing_status = ?`

	_, err := db.Exec(query, domain.StatusFailed, msg, time.Now(), id, domain.StatusProcessing)
	return err
}

func (db *DB) UpdateDownloadKey(id, key string) error {
	_, err := db.Exec(`UPDATE track_versions SET download_key = ?, updated_at = ? WHERE id = ?`, key, time.Now(), id)
	return err
}

func (db *DB) UpdateAlbumArtKey(id, key string) error {
	_, err := db.Exec(`UPDATE track_versions SET album_art_key = ?, updated_at = ? WHERE id = ?`, key, time.Now(), id)
	return err
}

// UpdateVersionTags overwrites the textual metadata a user may edit after
// processing. The metadata update job reads these stored values back when it
// rebuilds the download artifact.
func (db *DB) UpdateVersionTags(id, artist, album, genre string, year int) error {
	query := `UPDATE track_versions SET artist = ?, album = ?, genre = ?, year = ?, updated_at = ? WHERE id = ?`
	_, err := db.Exec(query, artist, album, genre, year, time.Now(), id)
	return err
}

func (db *DB) ArchiveVersion(id string) error {
	now := time.Now()
	_, err := db.Exec(`UPDATE track_versions SET archived_at = ?, updated_at = ? WHERE id = ?`, now, now, id)
	return err
}

// ListStuckVersions returns versions sitting in processing since before the
// cutoff. These are jobs whose worker died between the claim and the final
// status write.
func (db *DB) ListStuckVersions(cutoff time.Time) ([]*domain.TrackVersion, error) {
	query := `SELECT id, track_id, version_number, original_key, stream_key, download_key, album_art_key,
		processing_status, error, duration, bitrate, sample_rate, channel_count, codec, artist, album, genre, year,
		archived_at, created_at, updated_at
		FROM track_versions WHERE processing_status = ? AND updated_at < ?`

	var versions []*domain.TrackVersion
	err := db.Select(&versions, query, domain.StatusProcessing, cutoff)
	return versions, err
}

// ResetVersionToPending returns a stuck version to the queue-entry state so
// a fresh job message can claim it again.
func (db *DB) ResetVersionToPending(id string) error {
	query := `UPDATE track_versions SET processing_status = ?, updated_at = ?
		WHERE id = ? AND processing_status = ?`

	_, err := db.Exec(query, domain.StatusPending, time.Now(), id, domain.StatusProcessing)
	return err
}
