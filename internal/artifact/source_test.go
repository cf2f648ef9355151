package artifact

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/ayusman/senas/internal/classifier"
	"github.com/ayusman/senas/internal/config"
	"github.com/ayusman/senas/testdata"
)

type fakeS3 struct {
	body  []byte
	err   error
	input *s3.GetObjectInput
}

func (f *fakeS3) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(f.body))}, nil
}

func TestLocalSource(t *testing.T) {
	dir := t.TempDir()
	if _, err := testdata.WriteModel(dir, testdata.GoldenModel); err != nil {
		t.Fatalf("failed to write model: %v", err)
	}

	t.Run("resolves relative to base dir", func(t *testing.T) {
		src := NewLocalSource(dir, testdata.GoldenModel)
		if src.Path() != filepath.Join(dir, testdata.GoldenModel) {
			t.Errorf("unexpected path %q", src.Path())
		}

		model, err := Load(context.Background(), src)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if model.Type != classifier.TypeLogistic {
			t.Errorf("expected type %q, got %q", classifier.TypeLogistic, model.Type)
		}
	})

	t.Run("absolute path ignores base dir", func(t *testing.T) {
		abs := filepath.Join(dir, testdata.GoldenModel)
		src := NewLocalSource("/elsewhere", abs)
		if src.Path() != abs {
			t.Errorf("expected %q, got %q", abs, src.Path())
		}
	})

	t.Run("missing file is ErrNotFound", func(t *testing.T) {
		src := NewLocalSource(dir, "absent.json")
		if _, err := Load(context.Background(), src); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("corrupt file is ErrInvalidArtifact", func(t *testing.T) {
		path := filepath.Join(dir, "corrupt.json")
		if err := os.WriteFile(path, []byte("\x80\x04pickle"), 0644); err != nil {
			t.Fatalf("failed to write file: %v", err)
		}
		_, err := Load(context.Background(), NewLocalSource(dir, "corrupt.json"))
		if !errors.Is(err, classifier.ErrInvalidArtifact) {
			t.Errorf("expected ErrInvalidArtifact, got %v", err)
		}
	})
}

func TestS3Source(t *testing.T) {
	data, err := testdata.ModelBytes(testdata.GoldenModel)
	if err != nil {
		t.Fatalf("failed to load model bytes: %v", err)
	}

	t.Run("loads object", func(t *testing.T) {
		fake := &fakeS3{body: data}
		src := NewS3SourceWithClient(fake, "models", "senas/model.json")

		if _, err := Load(context.Background(), src); err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if *fake.input.Bucket != "models" || *fake.input.Key != "senas/model.json" {
			t.Errorf("unexpected request %s/%s", *fake.input.Bucket, *fake.input.Key)
		}
		if src.String() != "s3://models/senas/model.json" {
			t.Errorf("unexpected description %q", src.String())
		}
	})

	t.Run("missing key is ErrNotFound", func(t *testing.T) {
		src := NewS3SourceWithClient(&fakeS3{err: &types.NoSuchKey{}}, "models", "absent.json")
		if _, err := src.Open(context.Background()); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("other errors are wrapped", func(t *testing.T) {
		boom := errors.New("connection reset")
		src := NewS3SourceWithClient(&fakeS3{err: boom}, "models", "m.json")
		_, err := src.Open(context.Background())
		if !errors.Is(err, boom) {
			t.Errorf("expected wrapped error, got %v", err)
		}
		if errors.Is(err, ErrNotFound) {
			t.Error("transport errors must not be reported as not found")
		}
	})
}

func TestNewSource(t *testing.T) {
	src, err := NewSource(context.Background(), config.ModelConfig{Source: config.SourceLocal, Path: "m.json"})
	if err != nil {
		t.Fatalf("NewSource() error = %v", err)
	}
	if _, ok := src.(*LocalSource); !ok {
		t.Errorf("expected *LocalSource, got %T", src)
	}

	if _, err := NewSource(context.Background(), config.ModelConfig{Source: "ftp"}); err == nil {
		t.Error("expected error for unknown source")
	}
}
