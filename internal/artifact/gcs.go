package artifact

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
)

// GCSSource reads the artifact from a Google Cloud Storage object using
// application default credentials.
type GCSSource struct {
	client *storage.Client
	bucket string
	object string
}

// NewGCSSource creates a storage client for bucket/object.
func NewGCSSource(ctx context.Context, bucket, object string) (*GCSSource, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create gcs client: %w", err)
	}
	return &GCSSource{client: client, bucket: bucket, object: object}, nil
}

// Open implements Source.
func (s *GCSSource) Open(ctx context.Context) (io.ReadCloser, error) {
	r, err := s.client.Bucket(s.bucket).Object(s.object).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) || errors.Is(err, storage.ErrBucketNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, s)
		}
		return nil, fmt.Errorf("read %s: %w", s, err)
	}
	return r, nil
}

// Close releases the storage client.
func (s *GCSSource) Close() error {
	return s.client.Close()
}

func (s *GCSSource) String() string {
	return "gs://" + s.bucket + "/" + s.object
}
