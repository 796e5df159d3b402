// Package objectstore abstracts the key-addressed blob service the pipeline
// reads originals from and writes derivatives to.
package objectstore

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("object not found")

// ObjectInfo describes a stored object without its payload.
type ObjectInfo struct {
	Key          string
	Size         int64
	ContentType  string
	ETag         string
	LastModified time.Time
}

// Store is the object-store client surface the jobs depend on. Payloads are
// whole byte slices: the audio transform needs random access to the entire
// file, so there is no streaming variant.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)
	Stat(ctx context.Context, key string) (*ObjectInfo, error)
}

// DeletePrefix removes every object under a namespace prefix. Used when a
// version is torn down: keys are never reused, so the whole namespace goes.
func DeletePrefix(ctx context.Context, s Store, prefix string) error {
	objects, err := s.List(ctx, prefix)
	if err != nil {
		return err
	}
	for _, obj := range objects {
		if err := s.Delete(ctx, obj.Key); err != nil {
			return err
		}
	}
	return nil
}
