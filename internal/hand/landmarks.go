// Package hand converts MediaPipe hand landmarks into the classifier's feature vector.
package hand

import (
	"errors"
	"fmt"
	"math"
)

// Hand landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	Wrist        = 0
	ThumbCMC     = 1
	ThumbMCP     = 2
	ThumbIP      = 3
	ThumbTip     = 4
	IndexMCP     = 5
	IndexPIP     = 6
	IndexDIP     = 7
	IndexTip     = 8
	MiddleMCP    = 9
	MiddlePIP    = 10
	MiddleDIP    = 11
	MiddleTip    = 12
	RingMCP      = 13
	RingPIP      = 14
	RingDIP      = 15
	RingTip      = 16
	PinkyMCP     = 17
	PinkyPIP     = 18
	PinkyDIP     = 19
	PinkyTip     = 20
	NumLandmarks = 21
)

// FeatureLength is the length of the flattened feature vector.
const FeatureLength = NumLandmarks * 3

var (
	// ErrLandmarkCount is returned when a hand does not have exactly NumLandmarks points.
	ErrLandmarkCount = errors.New("unexpected landmark count")

	// ErrDegenerateHand is returned when the wrist and middle finger MCP coincide,
	// leaving no scale to normalize by.
	ErrDegenerateHand = errors.New("degenerate hand: zero palm size")
)

// Point3D represents a 3D point in space with x, y, z coordinates.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Landmarks holds the 21 points of one detected hand.
type Landmarks struct {
	Points [NumLandmarks]Point3D `json:"points"`
}

// FromPoints builds Landmarks from a slice that must contain exactly NumLandmarks points.
func FromPoints(points []Point3D) (*Landmarks, error) {
	if len(points) != NumLandmarks {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrLandmarkCount, len(points), NumLandmarks)
	}
	lm := &Landmarks{}
	copy(lm.Points[:], points)
	return lm, nil
}

func norm(p Point3D) float64 {
	return math.Sqrt(p.X*p.X + p.Y*p.Y + p.Z*p.Z)
}

// Normalize translates the points so the wrist is at the origin and scales them so
// the wrist to middle finger MCP distance is 1.0.
func (h *Landmarks) Normalize() (*Landmarks, error) {
	if h == nil {
		return nil, fmt.Errorf("%w: nil hand", ErrLandmarkCount)
	}

	normalized := &Landmarks{}
	wrist := h.Points[Wrist]
	for i := 0; i < NumLandmarks; i++ {
		normalized.Points[i] = Point3D{
			X: h.Points[i].X - wrist.X,
			Y: h.Points[i].Y - wrist.Y,
			Z: h.Points[i].Z - wrist.Z,
		}
	}

	scale := norm(normalized.Points[MiddleMCP])
	if scale < 1e-10 {
		return nil, ErrDegenerateHand
	}

	for i := 0; i < NumLandmarks; i++ {
		normalized.Points[i].X /= scale
		normalized.Points[i].Y /= scale
		normalized.Points[i].Z /= scale
	}

	return normalized, nil
}

// Features normalizes the hand and flattens it to x0, y0, z0, x1, ... z20.
func (h *Landmarks) Features() ([]float64, error) {
	normalized, err := h.Normalize()
	if err != nil {
		return nil, err
	}

	features := make([]float64, 0, FeatureLength)
	for _, p := range normalized.Points {
		features = append(features, p.X, p.Y, p.Z)
	}
	return features, nil
}
