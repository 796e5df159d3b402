package store

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/soundcrate/soundcrate/internal/domain"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := NewSQLiteDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func createTestTrack(t *testing.T, db *DB) *domain.Track {
	t.Helper()

	user := &domain.User{ID: uuid.New().String(), DisplayName: "uploader"}
	if err := db.CreateUser(user); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	track := &domain.Track{
		ID:      uuid.New().String(),
		OwnerID: user.ID,
		Title:   "Demo Track",
		Public:  true,
	}
	if err := db.CreateTrack(track); err != nil {
		t.Fatalf("failed to create track: %v", err)
	}
	return track
}

func createTestVersion(t *testing.T, db *DB, trackID string) *domain.TrackVersion {
	t.Helper()

	version := &domain.TrackVersion{
		ID:          uuid.New().String(),
		TrackID:     trackID,
		OriginalKey: "tracks/" + trackID + "/versions/x/original.mp3",
	}
	if err := db.CreateVersion(version); err != nil {
		t.Fatalf("failed to create version: %v", err)
	}
	return version
}

func TestCreateAndGetTrack(t *testing.T) {
	db := setupTestDB(t)
	track := createTestTrack(t, db)

	got, err := db.GetTrack(track.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.Title != "Demo Track" {
		t.Errorf("Title = %q, want Demo Track", got.Title)
	}
	if got.ActiveVersionID != nil {
		t.Error("new track has an active version")
	}

	if _, err := db.GetTrack("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestVersionNumbering(t *testing.T) {
	db := setupTestDB(t)
	track := createTestTrack(t, db)

	v1 := createTestVersion(t, db, track.ID)
	v2 := createTestVersion(t, db, track.ID)
	v3 := createTestVersion(t, db, track.ID)

	if v1.VersionNumber != 1 || v2.VersionNumber != 2 || v3.VersionNumber != 3 {
		t.Errorf("version numbers = %d, %d, %d, want 1, 2, 3",
			v1.VersionNumber, v2.VersionNumber, v3.VersionNumber)
	}

	// Numbering is per track.
	other := createTestTrack(t, db)
	if v := createTestVersion(t, db, other.ID); v.VersionNumber != 1 {
		t.Errorf("first version of second track numbered %d, want 1", v.VersionNumber)
	}
}

func TestNewVersionStartsPending(t *testing.T) {
	db := setupTestDB(t)
	track := createTestTrack(t, db)
	version := createTestVersion(t, db, track.ID)

	got, err := db.GetVersion(version.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.Status != domain.StatusPending {
		t.Errorf("Status = %s, want pending", got.Status)
	}
	if got.StreamKey != nil || got.DownloadKey != nil {
		t.Error("new version already has derived keys")
	}
}

func TestClaimVersionForProcessing(t *testing.T) {
	db := setupTestDB(t)
	track := createTestTrack(t, db)
	version := createTestVersion(t, db, track.ID)

	claimed, err := db.ClaimVersionForProcessing(version.ID)
	if err != nil {
		t.Fatalf("claim failed: %v", err)
	}
	if !claimed {
		t.Fatal("pending version not claimable")
	}

	// A duplicate delivery must lose the claim race.
	claimed, err = db.ClaimVersionForProcessing(version.ID)
	if err != nil {
		t.Fatalf("second claim errored: %v", err)
	}
	if claimed {
		t.Error("claimed a version already in processing")
	}

	// A failed version is claimable again on redelivery.
	if err := db.FailVersion(version.ID, "probe exploded"); err != nil {
		t.Fatalf("fail failed: %v", err)
	}
	claimed, _ = db.ClaimVersionForProcessing(version.ID)
	if !claimed {
		t.Error("failed version not claimable")
	}

	got, _ := db.GetVersion(version.ID)
	if got.Error != nil {
		t.Error("reclaim did not clear the error message")
	}
}

func TestCompleteVersion(t *testing.T) {
	db := setupTestDB(t)
	track := createTestTrack(t, db)
	version := createTestVersion(t, db, track.ID)

	facts := VersionFacts{
		Duration:     187.4,
		Bitrate:      128000,
		SampleRate:   44100,
		ChannelCount: 2,
		Codec:        "mp3",
		Artist:       "Someone",
		Album:        "Something",
		Genre:        "Ambient",
		Year:         2024,
	}
	artKey := "tracks/t/versions/v/albumart.jpg"

	// Completion is only legal from processing.
	if err := db.CompleteVersion(version.ID, facts, "s", "d", nil); err == nil {
		t.Fatal("completed a pending version")
	}

	if _, err := db.ClaimVersionForProcessing(version.ID); err != nil {
		t.Fatalf("claim failed: %v", err)
	}
	if err := db.CompleteVersion(version.ID, facts, "stream-key", "download-key", &artKey); err != nil {
		t.Fatalf("complete failed: %v", err)
	}

	got, _ := db.GetVersion(version.ID)
	if got.Status != domain.StatusComplete {
		t.Errorf("Status = %s, want complete", got.Status)
	}
	if got.StreamKey == nil || *got.StreamKey != "stream-key" {
		t.Errorf("StreamKey = %v, want stream-key", got.StreamKey)
	}
	if got.AlbumArtKey == nil || *got.AlbumArtKey != artKey {
		t.Errorf("AlbumArtKey = %v, want %s", got.AlbumArtKey, artKey)
	}
	if got.Duration != 187.4 || got.Bitrate != 128000 || got.Codec != "mp3" {
		t.Errorf("facts not persisted: %+v", got)
	}
	if got.Artist != "Someone" || got.Year != 2024 {
		t.Errorf("tags not persisted: %+v", got)
	}

	// A complete version never regresses.
	if claimed, _ := db.ClaimVersionForProcessing(version.ID); claimed {
		t.Error("claimed a complete version")
	}
}

func TestFailVersion(t *testing.T) {
	db := setupTestDB(t)
	track := createTestTrack(t, db)
	version := createTestVersion(t, db, track.ID)

	db.ClaimVersionForProcessing(version.ID)
	if err := db.FailVersion(version.ID, "no frame sync"); err != nil {
		t.Fatalf("fail failed: %v", err)
	}

	got, _ := db.GetVersion(version.ID)
	if got.Status != domain.StatusFailed {
		t.Errorf("Status = %s, want failed", got.Status)
	}
	if got.Error == nil || *got.Error != "no frame sync" {
		t.Errorf("Error = %v, want no frame sync", got.Error)
	}
}

func TestSetActiveVersionRequiresComplete(t *testing.T) {
	db := setupTestDB(t)
	track := createTestTrack(t, db)
	version := createTestVersion(t, db, track.ID)

	if err := db.SetActiveVersion(track.ID, version.ID); err == nil {
		t.Fatal("activated a pending version")
	}

	db.ClaimVersionForProcessing(version.ID)
	db.CompleteVersion(version.ID, VersionFacts{Codec: "mp3"}, "s", "d", nil)

	if err := db.SetActiveVersion(track.ID, version.ID); err != nil {
		t.Fatalf("activate failed: %v", err)
	}
	got, _ := db.GetTrack(track.ID)
	if got.ActiveVersionID == nil || *got.ActiveVersionID != version.ID {
		t.Errorf("ActiveVersionID = %v, want %s", got.ActiveVersionID, version.ID)
	}
}

func TestAdoptActiveVersionIfNone(t *testing.T) {
	db := setupTestDB(t)
	track := createTestTrack(t, db)

	complete := func(v *domain.TrackVersion) {
		t.Helper()
		db.ClaimVersionForProcessing(v.ID)
		if err := db.CompleteVersion(v.ID, VersionFacts{Codec: "mp3"}, "s", "d", nil); err != nil {
			t.Fatalf("complete failed: %v", err)
		}
	}

	v1 := createTestVersion(t, db, track.ID)
	complete(v1)

	adopted, err := db.AdoptActiveVersionIfNone(track.ID, v1.ID)
	if err != nil {
		t.Fatalf("adopt failed: %v", err)
	}
	if !adopted {
		t.Fatal("first complete version not adopted")
	}

	// Track already has an active version; a reprocessed upload must not
	// steal the slot.
	v2 := createTestVersion(t, db, track.ID)
	complete(v2)
	adopted, _ = db.AdoptActiveVersionIfNone(track.ID, v2.ID)
	if adopted {
		t.Error("second version displaced the active one")
	}

	got, _ := db.GetTrack(track.ID)
	if *got.ActiveVersionID != v1.ID {
		t.Errorf("ActiveVersionID = %s, want %s", *got.ActiveVersionID, v1.ID)
	}
}

func TestUpdateVersionTags(t *testing.T) {
	db := setupTestDB(t)
	track := createTestTrack(t, db)
	version := createTestVersion(t, db, track.ID)

	if err := db.UpdateVersionTags(version.ID, "New Artist", "New Album", "Techno", 2026); err != nil {
		t.Fatalf("update tags failed: %v", err)
	}

	got, _ := db.GetVersion(version.ID)
	if got.Artist != "New Artist" || got.Album != "New Album" || got.Genre != "Techno" || got.Year != 2026 {
		t.Errorf("tags = %q/%q/%q/%d", got.Artist, got.Album, got.Genre, got.Year)
	}
	if got.Status != domain.StatusPending {
		t.Errorf("tag update changed status to %s", got.Status)
	}
}

func TestListStuckVersionsAndReset(t *testing.T) {
	db := setupTestDB(t)
	track := createTestTrack(t, db)
	version := createTestVersion(t, db, track.ID)

	db.ClaimVersionForProcessing(version.ID)

	// Nothing is stuck relative to a cutoff in the past.
	stuck, err := db.ListStuckVersions(time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(stuck) != 0 {
		t.Errorf("got %d stuck versions, want 0", len(stuck))
	}

	// Backdate the claim so it crosses the threshold.
	if _, err := db.Exec(`UPDATE track_versions SET updated_at = ? WHERE id = ?`,
		time.Now().Add(-time.Hour), version.ID); err != nil {
		t.Fatalf("backdate failed: %v", err)
	}

	stuck, err = db.ListStuckVersions(time.Now().Add(-30 * time.Minute))
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(stuck) != 1 || stuck[0].ID != version.ID {
		t.Fatalf("stuck list = %+v, want the claimed version", stuck)
	}

	if err := db.ResetVersionToPending(version.ID); err != nil {
		t.Fatalf("reset failed: %v", err)
	}
	got, _ := db.GetVersion(version.ID)
	if got.Status != domain.StatusPending {
		t.Errorf("Status = %s after reset, want pending", got.Status)
	}
}

func TestArchiveVersion(t *testing.T) {
	db := setupTestDB(t)
	track := createTestTrack(t, db)
	version := createTestVersion(t, db, track.ID)

	if err := db.ArchiveVersion(version.ID); err != nil {
		t.Fatalf("archive failed: %v", err)
	}
	got, _ := db.GetVersion(version.ID)
	if got.ArchivedAt == nil {
		t.Error("ArchivedAt not set")
	}
}

func TestUserAvatarKey(t *testing.T) {
	db := setupTestDB(t)
	user := &domain.User{ID: uuid.New().String(), DisplayName: "someone"}
	if err := db.CreateUser(user); err != nil {
		t.Fatalf("create user failed: %v", err)
	}

	if err := db.UpdateAvatarKey(user.ID, "users/"+user.ID+"/avatar.png"); err != nil {
		t.Fatalf("update avatar failed: %v", err)
	}
	got, err := db.GetUser(user.ID)
	if err != nil {
		t.Fatalf("get user failed: %v", err)
	}
	if got.AvatarKey == nil || *got.AvatarKey != "users/"+user.ID+"/avatar.png" {
		t.Errorf("AvatarKey = %v", got.AvatarKey)
	}
}
