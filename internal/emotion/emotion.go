// Package emotion detects faces in a frame and scores their facial expression.
package emotion

import (
	"image"
	"math"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"gocv.io/x/gocv"
)

// Detector defines the interface for face + emotion detection implementations.
type Detector interface {
	// Detect returns one Face per detected face, in detection order.
	// Returns an empty slice if no faces are found.
	Detect(frame *gocv.Mat) ([]Face, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Scorer assigns a score per emotion label to a cropped face image.
type Scorer interface {
	Score(face image.Image) (map[string]float64, error)
	Close() error
}

// Face is one detected face and its emotion scores.
type Face struct {
	Box      image.Rectangle    `json:"box"`
	Emotions map[string]float64 `json:"emotions"`
}

// Config holds configuration options for the cascade + ONNX detector.
type Config struct {
	// CascadePath is the OpenCV Haar cascade XML for frontal faces.
	CascadePath string

	// MinFaceSize is the smallest face side in pixels the cascade reports.
	MinFaceSize int

	// ModelPath is the ONNX emotion classifier.
	ModelPath string

	// RuntimeLibrary is the onnxruntime shared library. Empty uses the default search path.
	RuntimeLibrary string

	InputName  string
	OutputName string

	// InputSize is the square side of the grayscale model input.
	InputSize int

	// Labels names the model outputs in order.
	Labels []string

	// Softmax converts raw model outputs to probabilities.
	Softmax bool
}

// Top returns the highest scoring emotion. Ties resolve to the alphabetically first
// label so results do not depend on map iteration order. NaN scores are skipped.
// ok is false when no label has a score.
func Top(emotions map[string]float64) (label string, score float64, ok bool) {
	labels := make([]string, 0, len(emotions))
	for l, v := range emotions {
		if math.IsNaN(v) {
			continue
		}
		labels = append(labels, l)
	}
	sort.Strings(labels)

	for _, l := range labels {
		if !ok || emotions[l] > score {
			label, score, ok = l, emotions[l], true
		}
	}
	return label, score, ok
}

// Capitalize upper-cases the first letter and lower-cases the rest.
func Capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}
