// Package keys builds the canonical object-store keys shared by the upload
// handlers that produce files and the jobs that consume them. Builders are
// pure; both sides must agree on these paths or the pipeline loses files.
package keys

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// VersionPrefix is the namespace holding every artifact of one version.
// Keys are never reused across versions; deleting a version means deleting
// everything under this prefix.
func VersionPrefix(trackID, versionID string) string {
	return fmt.Sprintf("tracks/%s/versions/%s/", trackID, versionID)
}

// Original is the key of the source file as uploaded.
func Original(trackID, versionID, ext string) string {
	return VersionPrefix(trackID, versionID) + "original." + normalizeExt(ext)
}

// Stream is the key of the artifact served for in-browser playback.
func Stream(trackID, versionID string) string {
	return VersionPrefix(trackID, versionID) + "stream.mp3"
}

// Download is the key of the tagged artifact offered for download.
func Download(trackID, versionID string) string {
	return VersionPrefix(trackID, versionID) + "download.mp3"
}

// AlbumArt is the key of the version's artwork, extension-qualified since
// art may arrive as jpeg or png.
func AlbumArt(trackID, versionID, ext string) string {
	return VersionPrefix(trackID, versionID) + "albumart." + normalizeExt(ext)
}

// Avatar is the key of a user's profile photo. Fixed per user so repeated
// uploads overwrite in place.
func Avatar(userID string) string {
	return fmt.Sprintf("users/%s/avatar.png", userID)
}

// TempUploadPrefix is the staging namespace for direct client uploads.
const TempUploadPrefix = "tmp/uploads/"

// TempUpload returns a fresh staging key for a direct upload. This is the
// only non-deterministic builder; the random id keeps concurrent uploads
// from colliding.
func TempUpload(ext string) string {
	return TempUploadPrefix + uuid.New().String() + "." + normalizeExt(ext)
}

func normalizeExt(ext string) string {
	ext = strings.TrimPrefix(strings.ToLower(ext), ".")
	if ext == "" {
		return "bin"
	}
	return ext
}
