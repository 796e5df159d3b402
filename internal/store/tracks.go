package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/soundcrate/soundcrate/internal/domain"
)

var ErrNotFound = errors.New("record not found")

func (db *DB) CreateTrack(track *domain.Track) error {
	now := time.Now()
	if track.CreatedAt.IsZero() {
		track.CreatedAt = now
	}
	track.UpdatedAt = now

	query := `INSERT INTO tracks (id, owner_id, title, description, public, allow_downloads, social_prompt, active_version_id, created_at, updated_at)
		VALUES (:id, :owner_id, :title, :description, :public, :allow_downloads, :social_prompt, :active_version_id, :created_at, :updated_at)`

	_, err := db.NamedExec(query, track)
	return err
}

func (db *DB) GetTrack(id string) (*domain.Track, error) {
	query := `SELECT id, owner_id, title, description, public, allow_downloads, social_prompt, active_version_id, created_at, updated_at
		FROM tracks WHERE id = ?`

	track := &domain.Track{}
	err := db.Get(track, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: track %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return track, nil
}

// SetActiveVersion points a track at a version. The version must be complete;
// anything else is rejected so a half-processed upload never goes live.
func (db *DB) SetActiveVersion(trackID, versionID string) error {
	query := `UPDATE tracks SET active_version_id = ?, updated_at = ?
		WHERE id = ?
		AND EXISTS (SELECT 1 FROM track_versions v WHERE v.id = ? AND v.processing_status = 'complete')`

	res, err := db.Exec(query, versionID, time.Now(), trackID, versionID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("version %s is not complete or track %s does not exist", versionID, trackID)
	}
	return nil
}

// AdoptActiveVersionIfNone sets the active version only when the track has
// none yet. Reports whether the track adopted the version.
func (db *DB) AdoptActiveVersionIfNone(trackID, versionID string) (bool, error) {
	query := `UPDATE tracks SET active_version_id = ?, updated_at = ?
		WHERE id = ? AND active_version_id IS NULL
		AND EXISTS (SELECT 1 FROM track_versions v WHERE v.id = ? AND v.processing_status = 'complete')`

	res, err := db.Exec(query, versionID, time.Now(), trackID, versionID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (db *DB) TouchTrack(id string) error {
	_, err := db.Exec(`UPDATE tracks SET updated_at = ? WHERE id = ?`, time.Now(), id)
	return err
}
