package classifier

import (
	"fmt"
	"math"
)

// Layer is one dense layer; Weights is indexed [output][input].
type Layer struct {
	Weights [][]float64 `json:"weights"`
	Bias    []float64   `json:"bias"`
}

// MLP is a feed-forward network with a softmax (or binary sigmoid) output layer.
type MLP struct {
	classes    []string
	layers     []Layer
	activation func(float64) float64
}

var activations = map[string]func(float64) float64{
	"relu": func(v float64) float64 {
		if v < 0 {
			return 0
		}
		return v
	},
	"tanh":     math.Tanh,
	"logistic": sigmoid,
	"identity": func(v float64) float64 { return v },
}

// NewMLP validates the layer shapes and returns an MLP classifier. An empty
// activation name means relu.
func NewMLP(classes []string, layers []Layer, activation string) (*MLP, error) {
	if len(classes) < 2 {
		return nil, fmt.Errorf("%w: need at least 2 classes, got %d", ErrInvalidArtifact, len(classes))
	}
	if len(layers) == 0 {
		return nil, fmt.Errorf("%w: mlp has no layers", ErrInvalidArtifact)
	}

	if activation == "" {
		activation = "relu"
	}
	act, ok := activations[activation]
	if !ok {
		return nil, fmt.Errorf("%w: unknown activation %q", ErrInvalidArtifact, activation)
	}

	width := FeatureLength
	for i, layer := range layers {
		if len(layer.Weights) == 0 || len(layer.Bias) != len(layer.Weights) {
			return nil, fmt.Errorf("%w: layer %d has %d weight rows and %d biases", ErrInvalidArtifact, i, len(layer.Weights), len(layer.Bias))
		}
		for j, row := range layer.Weights {
			if len(row) != width {
				return nil, fmt.Errorf("%w: layer %d row %d has %d inputs, want %d", ErrInvalidArtifact, i, j, len(row), width)
			}
		}
		width = len(layer.Weights)
	}

	binary := len(classes) == 2 && width == 1
	if width != len(classes) && !binary {
		return nil, fmt.Errorf("%w: output width %d for %d classes", ErrInvalidArtifact, width, len(classes))
	}

	return &MLP{classes: classes, layers: layers, activation: act}, nil
}

// Classes implements Classifier.
func (m *MLP) Classes() []string {
	return m.classes
}

// PredictProba implements Classifier.
func (m *MLP) PredictProba(x []float64) ([]float64, error) {
	if len(x) != FeatureLength {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrFeatureLength, len(x), FeatureLength)
	}

	out := x
	last := len(m.layers) - 1
	for i, layer := range m.layers {
		next := make([]float64, len(layer.Weights))
		for j, row := range layer.Weights {
			next[j] = dot(row, out) + layer.Bias[j]
			if i != last {
				next[j] = m.activation(next[j])
			}
		}
		out = next
	}

	if len(out) == 1 {
		p := sigmoid(out[0])
		return []float64{1 - p, p}, nil
	}
	return softmax(out), nil
}
