// Package imagetx normalises uploaded artwork and avatars. A remote
// transform service does the work when configured; the local resizer covers
// the rest. Callers decide how far to degrade when both fail.
package imagetx

import (
	"bytes"
	"context"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// Spec describes the requested output image.
type Spec struct {
	Width  int
	Height int
	Fit    string // "cover" crops to fill, "contain" fits within
	Format string // "jpeg" or "png"
}

// ContentType returns the MIME type the output encodes to.
func (s Spec) ContentType() string {
	if s.Format == "png" {
		return "image/png"
	}
	return "image/jpeg"
}

// Transformer converts raw image bytes into the requested output. A non-nil
// error means the caller should fall back, not fail the job.
type Transformer interface {
	Transform(ctx context.Context, data []byte, spec Spec) ([]byte, error)
}

// LocalTransformer resizes in-process.
type LocalTransformer struct{}

func NewLocalTransformer() *LocalTransformer {
	return &LocalTransformer{}
}

func (t *LocalTransformer) Transform(_ context.Context, data []byte, spec Spec) ([]byte, error) {
	src, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	var resized image.Image
	switch spec.Fit {
	case "contain":
		resized = imaging.Fit(src, spec.Width, spec.Height, imaging.Lanczos)
	default:
		resized = imaging.Fill(src, spec.Width, spec.Height, imaging.Center, imaging.Lanczos)
	}

	var out bytes.Buffer
	if spec.Format == "png" {
		err = imaging.Encode(&out, resized, imaging.PNG)
	} else {
		err = imaging.Encode(&out, resized, imaging.JPEG, imaging.JPEGQuality(85))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return out.Bytes(), nil
}
