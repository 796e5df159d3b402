// Package tagging embeds a tag set into a copy of uploaded audio bytes to
// produce the downloadable artifact. The audio payload is never re-encoded;
// only the metadata sections are rebuilt.
package tagging

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"

	"github.com/bogem/id3v2/v2"
	"github.com/go-flac/flacpicture"
	"github.com/go-flac/flacvorbis"
	flac "github.com/go-flac/go-flac"
)

var ErrUnsupportedFormat = errors.New("unsupported audio format for tagging")

// TagSet is the metadata written into the download artifact. Title comes
// from the owning track; the rest from the version row.
type TagSet struct {
	Title  string
	Artist string
	Album  string
	Genre  string
	Year   int

	ArtworkData []byte
	ArtworkMIME string
}

// Apply returns a new payload with the tag set replacing whatever metadata
// the original carried. The input slice is not modified.
func Apply(data []byte, set TagSet) ([]byte, error) {
	if len(data) >= 4 && bytes.Equal(data[:4], []byte("fLaC")) {
		return applyFLAC(data, set)
	}
	return applyMP3(data, set)
}

// applyMP3 strips any existing ID3v2 tag and prepends a fresh v2.4 tag
// ahead of the untouched audio frames.
func applyMP3(data []byte, set TagSet) ([]byte, error) {
	tag := id3v2.NewEmptyTag()
	tag.SetVersion(4)
	tag.SetDefaultEncoding(id3v2.EncodingUTF8)

	if set.Title != "" {
		tag.SetTitle(set.Title)
	}
	if set.Artist != "" {
		tag.SetArtist(set.Artist)
	}
	if set.Album != "" {
		tag.SetAlbum(set.Album)
	}
	if set.Genre != "" {
		tag.SetGenre(set.Genre)
	}
	if set.Year > 0 {
		tag.SetYear(strconv.Itoa(set.Year))
	}
	if len(set.ArtworkData) > 0 {
		mime := set.ArtworkMIME
		if mime == "" {
			mime = "image/jpeg"
		}
		tag.AddAttachedPicture(id3v2.PictureFrame{
			Encoding:    id3v2.EncodingUTF8,
			MimeType:    mime,
			PictureType: id3v2.PTFrontCover,
			Description: "Front Cover",
			Picture:     set.ArtworkData,
		})
	}

	var out bytes.Buffer
	if _, err := tag.WriteTo(&out); err != nil {
		return nil, fmt.Errorf("failed to write id3 tag: %w", err)
	}

	audio := data[id3v2TagSize(data):]
	out.Grow(len(audio))
	if _, err := out.Write(audio); err != nil {
		return nil, fmt.Errorf("failed to append audio frames: %w", err)
	}
	return out.Bytes(), nil
}

// applyFLAC replaces the VorbisComment and Picture metadata blocks and
// re-marshals the container around the verbatim audio frames.
func applyFLAC(data []byte, set TagSet) ([]byte, error) {
	f, err := flac.ParseBytes(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse flac stream: %w", err)
	}

	var kept []*flac.MetaDataBlock
	for _, block := range f.Meta {
		if block.Type == flac.VorbisComment || block.Type == flac.Picture {
			continue
		}
		kept = append(kept, block)
	}

	cmt := flacvorbis.New()
	addComment := func(field, value string) {
		if value != "" {
			_ = cmt.Add(field, value)
		}
	}
	addComment(flacvorbis.FIELD_TITLE, set.Title)
	addComment(flacvorbis.FIELD_ARTIST, set.Artist)
	addComment(flacvorbis.FIELD_ALBUM, set.Album)
	addComment(flacvorbis.FIELD_GENRE, set.Genre)
	if set.Year > 0 {
		addComment(flacvorbis.FIELD_DATE, strconv.Itoa(set.Year))
	}
	cmtBlock := cmt.Marshal()
	kept = append(kept, &cmtBlock)

	if len(set.ArtworkData) > 0 {
		mime := set.ArtworkMIME
		if mime == "" {
			mime = "image/jpeg"
		}
		pic, err := flacpicture.NewFromImageData(flacpicture.PictureTypeFrontCover, "Front Cover", set.ArtworkData, mime)
		if err != nil {
			return nil, fmt.Errorf("failed to build flac picture block: %w", err)
		}
		picBlock := pic.Marshal()
		kept = append(kept, &picBlock)
	}

	f.Meta = kept
	return f.Marshal(), nil
}

func id3v2TagSize(data []byte) int {
	if len(data) < 10 || !bytes.Equal(data[:3], []byte("ID3")) {
		return 0
	}
	size := int(data[6]&0x7F)<<21 | int(data[7]&0x7F)<<14 | int(data[8]&0x7F)<<7 | int(data[9]&0x7F)
	return size + 10
}
