// Package testutil builds small synthetic media payloads for tests. The
// audio is real enough for the probe and tagging layers: valid MPEG frame
// headers and ID3v2/FLAC metadata, silence for payload.
package testutil

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/bogem/id3v2/v2"
	flac "github.com/go-flac/go-flac"
)

// mp3Frame is one MPEG-1 Layer III frame: 128 kbps, 44.1 kHz, joint stereo.
// 417 bytes at this bitrate and sample rate.
func mp3Frame() []byte {
	frame := make([]byte, 417)
	frame[0], frame[1], frame[2], frame[3] = 0xFF, 0xFB, 0x90, 0x40
	return frame
}

// MP3 returns an untagged constant-bitrate MP3 payload of the given number
// of frames.
func MP3(t *testing.T, frames int) []byte {
	t.Helper()
	var buf bytes.Buffer
	for i := 0; i < frames; i++ {
		buf.Write(mp3Frame())
	}
	return buf.Bytes()
}

// MP3Tags are the metadata fields TaggedMP3 embeds. Zero values are omitted.
type MP3Tags struct {
	Title   string
	Artist  string
	Album   string
	Genre   string
	Artwork []byte // embedded as a PNG front cover when set
}

// TaggedMP3 returns an MP3 payload with an ID3v2.4 tag ahead of the frames.
func TaggedMP3(t *testing.T, tags MP3Tags, frames int) []byte {
	t.Helper()

	tag := id3v2.NewEmptyTag()
	tag.SetVersion(4)
	tag.SetDefaultEncoding(id3v2.EncodingUTF8)
	if tags.Title != "" {
		tag.SetTitle(tags.Title)
	}
	if tags.Artist != "" {
		tag.SetArtist(tags.Artist)
	}
	if tags.Album != "" {
		tag.SetAlbum(tags.Album)
	}
	if tags.Genre != "" {
		tag.SetGenre(tags.Genre)
	}
	if len(tags.Artwork) > 0 {
		tag.AddAttachedPicture(id3v2.PictureFrame{
			Encoding:    id3v2.EncodingUTF8,
			MimeType:    "image/png",
			PictureType: id3v2.PTFrontCover,
			Description: "Front Cover",
			Picture:     tags.Artwork,
		})
	}

	var buf bytes.Buffer
	if _, err := tag.WriteTo(&buf); err != nil {
		t.Fatalf("failed to write test id3 tag: %v", err)
	}
	buf.Write(MP3(t, frames))
	return buf.Bytes()
}

// FLAC returns a minimal FLAC container: a hand-built STREAMINFO block
// describing one second of 44.1 kHz stereo 16-bit audio, plus dummy frame
// bytes.
func FLAC(t *testing.T) []byte {
	t.Helper()

	info := make([]byte, 34)
	// min/max block size 4096
	info[0], info[1] = 0x10, 0x00
	info[2], info[3] = 0x10, 0x00
	// sample rate 44100 (20 bits), channels-1 (3 bits), bps-1 (5 bits)
	sampleRate := 44100
	info[10] = byte(sampleRate >> 12)
	info[11] = byte(sampleRate >> 4)
	info[12] = byte(sampleRate&0x0F)<<4 | (2-1)<<1 | (16-1)>>4
	// bps low nibble + total samples (36 bits, high nibble here)
	info[13] = ((16 - 1) & 0x0F) << 4
	// total samples low 32 bits: 44100, exactly one second
	info[14], info[15] = 0x00, 0x00
	info[16], info[17] = 0xAC, 0x44

	// Frame section must open with the FLAC frame sync code or the parser
	// rejects the whole container.
	frames := append([]byte{0xFF, 0xF8}, bytes.Repeat([]byte{0x00}, 2046)...)

	f := &flac.File{
		Meta: []*flac.MetaDataBlock{
			{Type: flac.StreamInfo, Data: info},
		},
		Frames: frames,
	}
	return f.Marshal()
}

// PNG returns a solid-color PNG of the given dimensions.
func PNG(t *testing.T, width, height int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: 0x33, G: 0x66, B: 0x99, A: 0xFF})
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode test png: %v", err)
	}
	return buf.Bytes()
}
