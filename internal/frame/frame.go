// Package frame turns a browser data URL into a decoded BGR pixel matrix.
package frame

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"strings"

	_ "image/gif"  // register GIF for DecodeConfig
	_ "image/jpeg" // register JPEG for DecodeConfig
	_ "image/png"  // register PNG for DecodeConfig

	"gocv.io/x/gocv"
	_ "golang.org/x/image/bmp"  // register BMP for DecodeConfig
	_ "golang.org/x/image/webp" // register WEBP for DecodeConfig
)

var (
	// ErrMissingDelimiter is returned when a data URL has no comma separating the header.
	ErrMissingDelimiter = errors.New("data url has no ',' delimiter")

	// ErrInvalidBase64 is returned when the payload is not valid base64.
	ErrInvalidBase64 = errors.New("invalid base64 payload")

	// ErrUnsupportedImage is returned for payloads that are not a recognised image.
	ErrUnsupportedImage = errors.New("unsupported image")

	// ErrTooLarge is returned when the image exceeds the pixel limit.
	ErrTooLarge = errors.New("image too large")
)

var signatures = map[string][]byte{
	"jpeg": {0xFF, 0xD8},
	"png":  {0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A},
	"gif":  {0x47, 0x49, 0x46, 0x38},
	"webp": {0x52, 0x49, 0x46, 0x46},
	"bmp":  {0x42, 0x4D},
}

// Info describes a validated image payload.
type Info struct {
	Format string
	Width  int
	Height int
}

// Decoder validates and decodes frames. MaxPixels <= 0 disables the size check.
type Decoder struct {
	MaxPixels int64
}

// SplitDataURL discards everything up to the first comma and returns the remainder.
func SplitDataURL(dataURL string) (string, error) {
	_, payload, ok := strings.Cut(dataURL, ",")
	if !ok {
		return "", ErrMissingDelimiter
	}
	return payload, nil
}

// DecodeBase64 decodes standard base64, accepting unpadded input.
func DecodeBase64(payload string) ([]byte, error) {
	payload = strings.TrimSpace(payload)
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		var rawErr error
		data, rawErr = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
		if rawErr != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidBase64, err)
		}
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrInvalidBase64)
	}
	return data, nil
}

// Validate checks the magic number and header of data and enforces the pixel limit.
func (d *Decoder) Validate(data []byte) (Info, error) {
	format := sniff(data)
	if format == "" {
		return Info{}, fmt.Errorf("%w: unknown signature", ErrUnsupportedImage)
	}

	cfg, name, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Info{}, fmt.Errorf("%w: %s: %v", ErrUnsupportedImage, format, err)
	}

	if d.MaxPixels > 0 && int64(cfg.Width)*int64(cfg.Height) > d.MaxPixels {
		return Info{}, fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrTooLarge, cfg.Width, cfg.Height, d.MaxPixels)
	}

	return Info{Format: name, Width: cfg.Width, Height: cfg.Height}, nil
}

// Decode validates data and decodes it into a color Mat. The caller closes the Mat.
func (d *Decoder) Decode(data []byte) (*gocv.Mat, error) {
	if _, err := d.Validate(data); err != nil {
		return nil, err
	}

	mat, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil {
		mat.Close()
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}
	if mat.Empty() {
		mat.Close()
		return nil, fmt.Errorf("%w: decoded frame is empty", ErrUnsupportedImage)
	}
	return &mat, nil
}

// DecodeDataURL runs the full pipeline: split, base64 decode, validate, decode.
func (d *Decoder) DecodeDataURL(dataURL string) (*gocv.Mat, error) {
	payload, err := SplitDataURL(dataURL)
	if err != nil {
		return nil, err
	}

	data, err := DecodeBase64(payload)
	if err != nil {
		return nil, err
	}

	return d.Decode(data)
}

func sniff(data []byte) string {
	for format, sig := range signatures {
		if !bytes.HasPrefix(data, sig) {
			continue
		}
		if format == "webp" && (len(data) < 12 || !bytes.Equal(data[8:12], []byte("WEBP"))) {
			continue
		}
		return format
	}
	return ""
}
