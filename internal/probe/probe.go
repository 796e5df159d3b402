// Package probe extracts playable facts and embedded artwork from uploaded
// audio held fully in memory.
package probe

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/dhowden/tag"
	flac "github.com/go-flac/go-flac"
)

var ErrUnsupportedFormat = errors.New("unsupported audio format")

// Facts are the technical and textual properties persisted on the version row.
type Facts struct {
	Duration     float64 // seconds
	Bitrate      int     // bits per second
	SampleRate   int
	ChannelCount int
	Codec        string

	Title  string
	Artist string
	Album  string
	Genre  string
	Year   int
}

// Artwork is a cover image embedded in the audio container.
type Artwork struct {
	Data []byte
	MIME string
	Ext  string
}

// Extract probes the payload. Textual tags and cover art are optional; a
// file with no frames at all is a hard failure.
func Extract(data []byte) (*Facts, *Artwork, error) {
	facts := &Facts{}

	switch {
	case isFLAC(data):
		if err := probeFLAC(data, facts); err != nil {
			return nil, nil, err
		}
	default:
		if err := probeMP3(data, facts); err != nil {
			return nil, nil, err
		}
	}

	art := readTags(data, facts)
	return facts, art, nil
}

// readTags pulls the textual metadata and embedded picture. Missing tags are
// not an error; the upload simply has nothing embedded.
func readTags(data []byte, facts *Facts) *Artwork {
	meta, err := tag.ReadFrom(bytes.NewReader(data))
	if err != nil {
		return nil
	}

	facts.Title = meta.Title()
	facts.Artist = meta.Artist()
	facts.Album = meta.Album()
	facts.Genre = meta.Genre()
	facts.Year = meta.Year()

	pic := meta.Picture()
	if pic == nil || len(pic.Data) == 0 {
		return nil
	}

	ext := pic.Ext
	if ext == "" {
		ext = extFromMIME(pic.MIMEType)
	}
	return &Artwork{
		Data: pic.Data,
		MIME: pic.MIMEType,
		Ext:  ext,
	}
}

func isFLAC(data []byte) bool {
	return len(data) >= 4 && bytes.Equal(data[:4], []byte("fLaC"))
}

func probeFLAC(data []byte, facts *Facts) error {
	f, err := flac.ParseBytes(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to parse flac stream: %w", err)
	}

	info, err := f.GetStreamInfo()
	if err != nil {
		return fmt.Errorf("failed to read flac stream info: %w", err)
	}

	facts.Codec = "flac"
	facts.SampleRate = info.SampleRate
	facts.ChannelCount = info.ChannelCount
	if info.SampleRate > 0 {
		facts.Duration = float64(info.SampleCount) / float64(info.SampleRate)
	}
	if facts.Duration > 0 {
		facts.Bitrate = int(float64(len(data)) * 8 / facts.Duration)
	}
	return nil
}

// MPEG header lookup tables, MPEG-1/2/2.5 Layer III.
var (
	mp3BitratesV1 = [16]int{0, 32, 40, 48, 56, 64, 80, 96, 112, 128, 160, 192, 224, 256, 320, 0}
	mp3BitratesV2 = [16]int{0, 8, 16, 24, 32, 40, 48, 56, 64, 80, 96, 112, 128, 144, 160, 0}
	mp3Rates      = map[byte][4]int{
		3: {44100, 48000, 32000, 0}, // MPEG-1
		2: {22050, 24000, 16000, 0}, // MPEG-2
		0: {11025, 12000, 8000, 0},  // MPEG-2.5
	}
)

// probeMP3 parses the first MPEG audio frame header after any ID3v2 tag.
// Duration is a CBR estimate from the audio payload size; good enough for
// display and consistent with what the uploader sees in their player.
func probeMP3(data []byte, facts *Facts) error {
	offset := id3v2TagSize(data)

	headerAt := -1
	for i := offset; i+4 <= len(data); i++ {
		if data[i] == 0xFF && data[i+1]&0xE0 == 0xE0 {
			headerAt = i
			break
		}
	}
	if headerAt == -1 {
		return fmt.Errorf("%w: no mpeg frame sync found", ErrUnsupportedFormat)
	}

	b1, b2, b3 := data[headerAt+1], data[headerAt+2], data[headerAt+3]

	versionBits := (b1 >> 3) & 0x03
	layerBits := (b1 >> 1) & 0x03
	if versionBits == 1 || layerBits != 1 {
		// Reserved version or a layer other than III.
		return fmt.Errorf("%w: unsupported mpeg version/layer", ErrUnsupportedFormat)
	}

	bitrateIdx := (b2 >> 4) & 0x0F
	rateIdx := (b2 >> 2) & 0x03

	var kbps int
	if versionBits == 3 {
		kbps = mp3BitratesV1[bitrateIdx]
	} else {
		kbps = mp3BitratesV2[bitrateIdx]
	}
	sampleRate := mp3Rates[versionBits][rateIdx]
	if kbps == 0 || sampleRate == 0 {
		return fmt.Errorf("%w: invalid mpeg frame header", ErrUnsupportedFormat)
	}

	channelMode := (b3 >> 6) & 0x03
	channels := 2
	if channelMode == 3 {
		channels = 1
	}

	facts.Codec = "mp3"
	facts.Bitrate = kbps * 1000
	facts.SampleRate = sampleRate
	facts.ChannelCount = channels

	audioBytes := len(data) - headerAt
	facts.Duration = float64(audioBytes) * 8 / float64(facts.Bitrate)
	return nil
}

// id3v2TagSize returns the byte offset past the leading ID3v2 tag, or 0 when
// the payload has none. The size field is a 28-bit syncsafe integer.
func id3v2TagSize(data []byte) int {
	if len(data) < 10 || !bytes.Equal(data[:3], []byte("ID3")) {
		return 0
	}
	size := int(data[6]&0x7F)<<21 | int(data[7]&0x7F)<<14 | int(data[8]&0x7F)<<7 | int(data[9]&0x7F)
	return size + 10
}

func extFromMIME(mime string) string {
	switch strings.ToLower(mime) {
	case "image/jpeg", "image/jpg":
		return "jpg"
	case "image/png":
		return "png"
	case "image/gif":
		return "gif"
	default:
		return "jpg"
	}
}
