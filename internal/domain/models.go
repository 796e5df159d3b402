package domain

import (
	"time"
)

// ProcessingStatus is the lifecycle state of a track version.
type ProcessingStatus string

const (
	StatusPending    ProcessingStatus = "pending"
	StatusProcessing ProcessingStatus = "processing"
	StatusComplete   ProcessingStatus = "complete"
	StatusFailed     ProcessingStatus = "failed"
)

// CanTransition reports whether moving a version from one status to another
// is legal. A failed version may re-enter processing when its job message is
// redelivered.
func CanTransition(from, to ProcessingStatus) bool {
	switch from {
	case StatusPending:
		return to == StatusProcessing
	case StatusFailed:
		return to == StatusProcessing
	case StatusProcessing:
		return to == StatusComplete || to == StatusFailed
	default:
		return false
	}
}

// Track is a logical upload owned by a user. The pipeline only reads it and
// maintains ActiveVersionID; everything else belongs to the CRUD layer.
type Track struct {
	ID              string    `json:"id" db:"id"`
	OwnerID         string    `json:"owner_id" db:"owner_id"`
	Title           string    `json:"title" db:"title"`
	Description     string    `json:"description" db:"description"`
	Public          bool      `json:"public" db:"public"`
	AllowDownloads  bool      `json:"allow_downloads" db:"allow_downloads"`
	SocialPrompt    string    `json:"social_prompt,omitempty" db:"social_prompt"`
	ActiveVersionID *string   `json:"active_version_id,omitempty" db:"active_version_id"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}

// TrackVersion is one physical upload attempt for a track.
type TrackVersion struct {
	ID            string           `json:"id" db:"id"`
	TrackID       string           `json:"track_id" db:"track_id"`
	VersionNumber int              `json:"version_number" db:"version_number"`
	OriginalKey   string           `json:"original_key" db:"original_key"`
	StreamKey     *string          `json:"stream_key,omitempty" db:"stream_key"`
	DownloadKey   *string          `json:"download_key,omitempty" db:"download_key"`
	AlbumArtKey   *string          `json:"album_art_key,omitempty" db:"album_art_key"`
	Status        ProcessingStatus `json:"processing_status" db:"processing_status"`
	Error         *string          `json:"error,omitempty" db:"error"`

	// Facts extracted from the uploaded audio.
	Duration     float64 `json:"duration" db:"duration"`
	Bitrate      int     `json:"bitrate" db:"bitrate"`
	SampleRate   int     `json:"sample_rate" db:"sample_rate"`
	ChannelCount int     `json:"channel_count" db:"channel_count"`
	Codec        string  `json:"codec" db:"codec"`
	Artist       string  `json:"artist" db:"artist"`
	Album        string  `json:"album" db:"album"`
	Genre        string  `json:"genre" db:"genre"`
	Year         int     `json:"year" db:"year"`

	ArchivedAt *time.Time `json:"archived_at,omitempty" db:"archived_at"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at" db:"updated_at"`
}

// User is the slice of the user record the pipeline touches: the avatar key
// written by the profile photo job.
type User struct {
	ID          string    `json:"id" db:"id"`
	DisplayName string    `json:"display_name" db:"display_name"`
	AvatarKey   *string   `json:"avatar_key,omitempty" db:"avatar_key"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}
