package filestorage

import (
	"context"
	"errors"
	"io"
)

// ErrInvalidPath is returned for object paths that escape the storage root
var ErrInvalidPath = errors.New("invalid storage path")

// ObjectInfo describes a stored object
type ObjectInfo struct {
	Bucket      string
	Path        string // bucket-relative path, e.g. conversations/<id>/<uuid>-report.pdf
	URL         string // public URL
	Size        int64
	ContentType string
}

// FileStorage defines the interface for object storage operations
type FileStorage interface {
	// Put stores the content of r under objectPath and returns its description
	Put(ctx context.Context, objectPath string, r io.Reader, contentType string) (*ObjectInfo, error)

	// Open returns a reader for a stored object
	Open(ctx context.Context, objectPath string) (io.ReadCloser, error)

	// Delete removes an object. Missing objects are not an error.
	Delete(ctx context.Context, objectPath string) error

	// PublicURL returns the URL under which objectPath is served
	PublicURL(objectPath string) string

	// Bucket names the logical bucket this storage writes to
	Bucket() string
}
