package tagging

import (
	"bytes"
	"strconv"
	"testing"

	"github.com/dhowden/tag"
	"github.com/go-flac/flacvorbis"
	flac "github.com/go-flac/go-flac"

	"github.com/soundcrate/soundcrate/internal/testutil"
)

func readBack(t *testing.T, data []byte) tag.Metadata {
	t.Helper()
	meta, err := tag.ReadFrom(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("failed to read back tags: %v", err)
	}
	return meta
}

func TestApplyMP3ReplacesExistingTag(t *testing.T) {
	original := testutil.TaggedMP3(t, testutil.MP3Tags{
		Title:  "Old Title",
		Artist: "Old Artist",
	}, 8)
	frames := original[id3v2TagSize(original):]

	out, err := Apply(original, TagSet{
		Title:  "New Title",
		Artist: "New Artist",
		Album:  "New Album",
		Genre:  "House",
	})
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}

	meta := readBack(t, out)
	if meta.Title() != "New Title" {
		t.Errorf("Title = %q, want New Title", meta.Title())
	}
	if meta.Artist() != "New Artist" {
		t.Errorf("Artist = %q, want New Artist", meta.Artist())
	}
	if meta.Album() != "New Album" {
		t.Errorf("Album = %q, want New Album", meta.Album())
	}

	// The audio frames must survive byte for byte.
	if !bytes.Equal(out[id3v2TagSize(out):], frames) {
		t.Error("audio frames changed during retag")
	}
}

func TestApplyMP3BarePayload(t *testing.T) {
	original := testutil.MP3(t, 8)

	out, err := Apply(original, TagSet{Title: "Untitled"})
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}

	if meta := readBack(t, out); meta.Title() != "Untitled" {
		t.Errorf("Title = %q, want Untitled", meta.Title())
	}
	if !bytes.Equal(out[id3v2TagSize(out):], original) {
		t.Error("audio frames changed")
	}
}

func TestApplyMP3EmbedsArtwork(t *testing.T) {
	cover := testutil.PNG(t, 32, 32)

	out, err := Apply(testutil.MP3(t, 8), TagSet{
		Title:       "With Cover",
		ArtworkData: cover,
		ArtworkMIME: "image/png",
	})
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}

	pic := readBack(t, out).Picture()
	if pic == nil {
		t.Fatal("no picture in retagged payload")
	}
	if !bytes.Equal(pic.Data, cover) {
		t.Error("picture bytes do not match cover")
	}
}

func TestApplyIsRepeatable(t *testing.T) {
	original := testutil.MP3(t, 8)
	set := TagSet{Title: "T", Artist: "A", Year: 2025}

	first, err := Apply(original, set)
	if err != nil {
		t.Fatalf("first apply failed: %v", err)
	}
	second, err := Apply(first, set)
	if err != nil {
		t.Fatalf("second apply failed: %v", err)
	}

	// Retagging a retagged payload must not stack tags or grow the audio.
	if !bytes.Equal(second[id3v2TagSize(second):], original) {
		t.Error("audio frames changed across repeated applies")
	}
	if meta := readBack(t, second); meta.Artist() != "A" {
		t.Errorf("Artist = %q after second apply, want A", meta.Artist())
	}
}

func TestApplyFLAC(t *testing.T) {
	original := testutil.FLAC(t)

	out, err := Apply(original, TagSet{
		Title:  "Flac Title",
		Artist: "Flac Artist",
		Year:   2024,
	})
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}

	f, err := flac.ParseBytes(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("failed to parse retagged flac: %v", err)
	}

	// Stream info survives untouched.
	info, err := f.GetStreamInfo()
	if err != nil {
		t.Fatalf("stream info lost: %v", err)
	}
	if info.SampleRate != 44100 {
		t.Errorf("SampleRate = %d, want 44100", info.SampleRate)
	}

	var cmt *flacvorbis.MetaDataBlockVorbisComment
	for _, block := range f.Meta {
		if block.Type == flac.VorbisComment {
			parsed, err := flacvorbis.ParseFromMetaDataBlock(*block)
			if err != nil {
				t.Fatalf("failed to parse vorbis comment: %v", err)
			}
			cmt = parsed
		}
	}
	if cmt == nil {
		t.Fatal("no vorbis comment block in retagged flac")
	}

	mustField := func(field, want string) {
		t.Helper()
		values, err := cmt.Get(field)
		if err != nil || len(values) == 0 {
			t.Fatalf("field %s missing: %v", field, err)
		}
		if values[0] != want {
			t.Errorf("%s = %q, want %q", field, values[0], want)
		}
	}
	mustField(flacvorbis.FIELD_TITLE, "Flac Title")
	mustField(flacvorbis.FIELD_ARTIST, "Flac Artist")
	mustField(flacvorbis.FIELD_DATE, strconv.Itoa(2024))
}

func TestApplyFLACGarbage(t *testing.T) {
	if _, err := Apply([]byte("fLaCgarbage"), TagSet{Title: "x"}); err == nil {
		t.Error("expected error for corrupt flac payload")
	}
}
