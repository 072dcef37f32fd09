package filestorage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// LocalStorage stores objects on the local filesystem under basePath/bucket.
type LocalStorage struct {
	basePath string
	baseURL  string
	bucket   string
	logger   zerolog.Logger
}

// NewLocalStorage creates a new LocalStorage instance, creating the bucket directory.
func NewLocalStorage(basePath, baseURL, bucket string, logger zerolog.Logger) (*LocalStorage, error) {
	root := filepath.Join(basePath, bucket)
	if err := os.MkdirAll(root, 0o755); err != nil {
		logger.Error().Err(err).Str("path", root).Msg("Failed to create storage directory")
		return nil, fmt.Errorf("failed to create storage directory %s: %w", root, err)
	}
	logger.Info().Str("path", root).Msg("Local storage directory ensured")

	return &LocalStorage{
		basePath: basePath,
		baseURL:  strings.TrimRight(baseURL, "/"),
		bucket:   bucket,
		logger:   logger,
	}, nil
}

// ObjectName builds a collision-free object path under dir, keeping the original
// filename readable at the end.
func ObjectName(dir, filename string) string {
	base := filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	base = strings.Map(func(r rune) rune {
		if r == '/' || r == 0 {
			return '_'
		}
		return r
	}, base)
	if base == "" || base == "." {
		base = "file"
	}
	return path.Join(dir, uuid.NewString()+"-"+base)
}

// Bucket implements FileStorage
func (ls *LocalStorage) Bucket() string {
	return ls.bucket
}

// Put implements FileStorage
func (ls *LocalStorage) Put(ctx context.Context, objectPath string, r io.Reader, contentType string) (*ObjectInfo, error) {
	full, err := ls.resolve(objectPath)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create object directory: %w", err)
	}

	dst, err := os.Create(full)
	if err != nil {
		ls.logger.Error().Err(err).Str("path", full).Msg("Failed to create destination file")
		return nil, fmt.Errorf("failed to create destination file: %w", err)
	}
	defer dst.Close()

	size, err := io.Copy(dst, readerWithContext(ctx, r))
	if err != nil {
		_ = os.Remove(full)
		ls.logger.Error().Err(err).Str("path", full).Msg("Failed to write object")
		return nil, fmt.Errorf("failed to save object content: %w", err)
	}

	ls.logger.Debug().Str("object", objectPath).Int64("size", size).Msg("Object stored")
	return &ObjectInfo{
		Bucket:      ls.bucket,
		Path:        objectPath,
		URL:         ls.PublicURL(objectPath),
		Size:        size,
		ContentType: contentType,
	}, nil
}

// Open implements FileStorage
func (ls *LocalStorage) Open(_ context.Context, objectPath string) (io.ReadCloser, error) {
	full, err := ls.resolve(objectPath)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(full)
	if err != nil {
		return nil, fmt.Errorf("failed to open object: %w", err)
	}
	return f, nil
}

// Delete implements FileStorage
func (ls *LocalStorage) Delete(_ context.Context, objectPath string) error {
	full, err := ls.resolve(objectPath)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, os.ErrNotExist) {
		ls.logger.Error().Err(err).Str("path", full).Msg("Failed to delete object")
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

// PublicURL implements FileStorage
func (ls *LocalStorage) PublicURL(objectPath string) string {
	return ls.baseURL + "/" + ls.bucket + "/" + strings.TrimLeft(objectPath, "/")
}

// resolve maps an object path onto the bucket directory. Any ".." segment is
// rejected; dots inside a name such as "report..v2.pdf" are fine.
func (ls *LocalStorage) resolve(objectPath string) (string, error) {
	for _, seg := range strings.Split(strings.ReplaceAll(objectPath, "\\", "/"), "/") {
		if seg == ".." {
			return "", ErrInvalidPath
		}
	}
	clean := path.Clean("/" + objectPath)
	if clean == "/" {
		return "", ErrInvalidPath
	}
	return filepath.Join(ls.basePath, ls.bucket, filepath.FromSlash(clean)), nil
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

func readerWithContext(ctx context.Context, r io.Reader) io.Reader {
	return ctxReader{ctx: ctx, r: r}
}
