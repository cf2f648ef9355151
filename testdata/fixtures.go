// Package testdata provides model artifacts, golden responses and frames for tests.
package testdata

import (
	"bytes"
	"embed"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"

	"gocv.io/x/gocv"

	"github.com/ayusman/senas/internal/classifier"
)

//go:embed models/* golden/*
var fixturesFS embed.FS

// Artifact names under models/.
const (
	// GoldenModel is a three-class logistic model whose all-zero input yields "A" at 0.6.
	GoldenModel = "golden.json"
	// UniformModel is a six-class model that always answers 1/6 per class.
	UniformModel = "uniform.json"
)

// ModelBytes returns the raw artifact with the given name.
func ModelBytes(name string) ([]byte, error) {
	data, err := fixturesFS.ReadFile("models/" + name)
	if err != nil {
		return nil, fmt.Errorf("load model %s: %w", name, err)
	}
	return data, nil
}

// LoadModel decodes the named artifact.
func LoadModel(name string) (*classifier.Model, error) {
	data, err := ModelBytes(name)
	if err != nil {
		return nil, err
	}
	return classifier.Decode(bytes.NewReader(data))
}

// WriteModel copies the named artifact into dir and returns its path.
func WriteModel(dir, name string) (string, error) {
	data, err := ModelBytes(name)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write model %s: %w", name, err)
	}
	return path, nil
}

// LoadGolden decodes golden/<name> into v.
func LoadGolden(name string, v any) error {
	data, err := fixturesFS.ReadFile("golden/" + name)
	if err != nil {
		return fmt.Errorf("load golden %s: %w", name, err)
	}
	return json.Unmarshal(data, v)
}

// BlackJPEG encodes a black image of the given size as JPEG.
func BlackJPEG(width, height int) ([]byte, error) {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.Black)
		}
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// DataURL wraps data in a base64 data URL with the given MIME type.
func DataURL(mime string, data []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// LoadBlackFrame decodes a black JPEG of the given size into a Mat.
// The caller closes the returned Mat.
func LoadBlackFrame(width, height int) (*gocv.Mat, error) {
	data, err := BlackJPEG(width, height)
	if err != nil {
		return nil, err
	}

	mat, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	return &mat, nil
}
