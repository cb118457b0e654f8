// Package storage keeps uploaded media, on local disk or in MongoDB GridFS.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

var (
	ErrNotFound        = errors.New("media not found")
	ErrUnsupportedType = errors.New("unsupported media type")
	ErrTooLarge        = errors.New("media too large")
)

// allowed maps accepted content types onto stored file extensions.
var allowed = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// Store persists media under opaque names.
type Store interface {
	Save(ctx context.Context, name, contentType string, r io.Reader) error
	Open(ctx context.Context, name string) (io.ReadCloser, string, error)
}

// Object is a stored upload.
type Object struct {
	Name        string
	ContentType string
	Size        int64
}

// Put sniffs r, rejects non-images and anything over maxBytes, and stores the rest
// under a random name with the matching extension.
func Put(ctx context.Context, s Store, r io.Reader, maxBytes int64) (*Object, error) {
	buf, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(buf)) > maxBytes {
		return nil, ErrTooLarge
	}

	mt := mimetype.Detect(buf)
	ext, ok := allowed[mt.String()]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, mt.String())
	}

	obj := &Object{Name: uuid.NewString() + ext, ContentType: mt.String(), Size: int64(len(buf))}
	if err := s.Save(ctx, obj.Name, obj.ContentType, bytes.NewReader(buf)); err != nil {
		return nil, err
	}
	return obj, nil
}

// ContentTypeFor returns the content type implied by a stored name's extension.
func ContentTypeFor(name string) string {
	for ct, ext := range allowed {
		if len(name) > len(ext) && name[len(name)-len(ext):] == ext {
			return ct
		}
	}
	return "application/octet-stream"
}
