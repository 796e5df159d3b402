package domain

import (
	"encoding/json"
	"errors"
	"fmt"
)

// JobKind tags a job message on the wire. In-flight messages survive deploys,
// so kinds are append-only and unknown kinds must stay non-fatal.
type JobKind string

const (
	KindProcessAudio        JobKind = "process_audio"
	KindUpdateMetadata      JobKind = "update_metadata"
	KindProcessAlbumArt     JobKind = "process_album_art"
	KindProcessProfilePhoto JobKind = "process_profile_photo"
)

var ErrUnknownJobKind = errors.New("unknown job kind")

// JobMessage is the closed union of messages the pipeline consumes. Each
// variant carries the identifiers the producer already holds so handlers
// never re-query for context.
type JobMessage interface {
	Kind() JobKind
	jobMessage()
}

type ProcessAudio struct {
	TrackID     string `json:"trackId"`
	VersionID   string `json:"versionId"`
	OriginalKey string `json:"originalKey"`
}

type UpdateMetadata struct {
	TrackID   string `json:"trackId"`
	VersionID string `json:"versionId"`
}

type ProcessAlbumArt struct {
	TrackID   string `json:"trackId"`
	VersionID string `json:"versionId"`
	TempKey   string `json:"tempKey"`
}

type ProcessProfilePhoto struct {
	UserID  string `json:"userId"`
	TempKey string `json:"tempKey"`
}

func (ProcessAudio) Kind() JobKind        { return KindProcessAudio }
func (UpdateMetadata) Kind() JobKind      { return KindUpdateMetadata }
func (ProcessAlbumArt) Kind() JobKind     { return KindProcessAlbumArt }
func (ProcessProfilePhoto) Kind() JobKind { return KindProcessProfilePhoto }

func (ProcessAudio) jobMessage()        {}
func (UpdateMetadata) jobMessage()      {}
func (ProcessAlbumArt) jobMessage()     {}
func (ProcessProfilePhoto) jobMessage() {}

type jobEnvelope struct {
	Type JobKind `json:"type"`
}

// EncodeJobMessage serialises a message with its type tag folded into the
// same JSON object, matching the producer-side wire format.
func EncodeJobMessage(msg JobMessage) ([]byte, error) {
	body, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal job message: %w", err)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("failed to fold job message: %w", err)
	}
	fields["type"], _ = json.Marshal(msg.Kind())

	return json.Marshal(fields)
}

// DecodeJobMessage parses a wire payload back into its concrete variant.
// Unknown type tags return ErrUnknownJobKind so the consumer can ack and
// move on instead of crashing on messages from a newer deploy.
func DecodeJobMessage(data []byte) (JobMessage, error) {
	var env jobEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to parse job envelope: %w", err)
	}

	switch env.Type {
	case KindProcessAudio:
		var msg ProcessAudio
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, err
		}
		return msg, nil
	case KindUpdateMetadata:
		var msg UpdateMetadata
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, err
		}
		return msg, nil
	case KindProcessAlbumArt:
		var msg ProcessAlbumArt
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, err
		}
		return msg, nil
	case KindProcessProfilePhoto:
		var msg ProcessProfilePhoto
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, err
		}
		return msg, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownJobKind, env.Type)
	}
}
