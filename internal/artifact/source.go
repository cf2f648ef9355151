// Package artifact locates and opens the serialized classifier artifact on one of
// several storage backends.
package artifact

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ayusman/senas/internal/classifier"
	"github.com/ayusman/senas/internal/config"
)

// ErrNotFound is returned when the artifact does not exist on its backend.
var ErrNotFound = errors.New("artifact not found")

// Source is a storage backend holding the artifact.
type Source interface {
	// Open returns a reader over the artifact bytes. The caller closes it.
	Open(ctx context.Context) (io.ReadCloser, error)

	// String describes the location for logs.
	String() string
}

// NewSource returns the Source selected by cfg.Source.
func NewSource(ctx context.Context, cfg config.ModelConfig) (Source, error) {
	switch cfg.Source {
	case config.SourceLocal, "":
		return NewLocalSource(cfg.BaseDir, cfg.Path), nil
	case config.SourceGCS:
		return NewGCSSource(ctx, cfg.Bucket, cfg.Object)
	case config.SourceS3:
		return NewS3Source(ctx, cfg.Bucket, cfg.Object, cfg.Region)
	default:
		return nil, fmt.Errorf("unknown artifact source %q", cfg.Source)
	}
}

// Load opens the artifact from src and decodes it into a classifier model.
func Load(ctx context.Context, src Source) (*classifier.Model, error) {
	rc, err := src.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	model, err := classifier.Decode(rc)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", src, err)
	}
	return model, nil
}

// LocalSource reads the artifact from the filesystem.
type LocalSource struct {
	path string
}

// NewLocalSource resolves path against baseDir unless it is already absolute.
// An empty baseDir means the working directory.
func NewLocalSource(baseDir, path string) *LocalSource {
	if !filepath.IsAbs(path) && baseDir != "" {
		path = filepath.Join(baseDir, path)
	}
	return &LocalSource{path: path}
}

// Open implements Source.
func (s *LocalSource) Open(ctx context.Context) (io.ReadCloser, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, s.path)
		}
		return nil, fmt.Errorf("open %s: %w", s.path, err)
	}
	return f, nil
}

// Path returns the resolved file path.
func (s *LocalSource) Path() string {
	return s.path
}

func (s *LocalSource) String() string {
	return "file://" + s.path
}
