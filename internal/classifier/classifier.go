// Package classifier evaluates the exported sign-language classifier: a feature
// scaler followed by a probability-emitting model.
package classifier

import (
	"errors"
	"fmt"
	"math"
)

// FeatureLength is the number of inputs the classifier expects (21 landmarks x 3 axes).
const FeatureLength = 63

// Model type tags.
const (
	TypeLogistic = "logistic_regression"
	TypeMLP      = "mlp"
)

var (
	// ErrInvalidArtifact is returned when an artifact cannot be decoded into a model.
	ErrInvalidArtifact = errors.New("invalid model artifact")

	// ErrFeatureLength is returned when an input does not have the expected width.
	ErrFeatureLength = errors.New("unexpected feature vector length")

	// ErrNonFinite is returned when evaluation overflows into NaN or infinite probabilities.
	ErrNonFinite = errors.New("non-finite probability")
)

// Classifier produces class probabilities for a scaled feature vector.
type Classifier interface {
	// Classes returns the labels in probability order.
	Classes() []string

	// PredictProba returns one probability per class for a scaled input.
	PredictProba(x []float64) ([]float64, error)
}

// Prediction is the top class chosen for an input.
type Prediction struct {
	Label      string
	Index      int
	Confidence float64
}

// Model bundles the scaler, classifier and type tag loaded from one artifact.
type Model struct {
	Type       string
	Scaler     *Scaler
	Classifier Classifier
}

// Predict scales x, evaluates the classifier and returns the arg-max class.
// Ties resolve to the lowest index. Finite inputs that overflow during evaluation
// return ErrNonFinite.
func (m *Model) Predict(x []float64) (Prediction, error) {
	if len(x) != FeatureLength {
		return Prediction{}, fmt.Errorf("%w: got %d, want %d", ErrFeatureLength, len(x), FeatureLength)
	}

	scaled, err := m.Scaler.Transform(x)
	if err != nil {
		return Prediction{}, err
	}

	proba, err := m.Classifier.PredictProba(scaled)
	if err != nil {
		return Prediction{}, err
	}

	classes := m.Classifier.Classes()
	if len(proba) == 0 || len(proba) != len(classes) {
		return Prediction{}, fmt.Errorf("classifier returned %d probabilities for %d classes", len(proba), len(classes))
	}
	for i, p := range proba {
		if math.IsNaN(p) || math.IsInf(p, 0) {
			return Prediction{}, fmt.Errorf("%w: class %q", ErrNonFinite, classes[i])
		}
	}

	best := ArgMax(proba)
	return Prediction{
		Label:      classes[best],
		Index:      best,
		Confidence: proba[best],
	}, nil
}

// ArgMax returns the index of the largest value, the first one on ties.
// It returns -1 for an empty slice.
func ArgMax(values []float64) int {
	if len(values) == 0 {
		return -1
	}
	best := 0
	for i := 1; i < len(values); i++ {
		if values[i] > values[best] {
			best = i
		}
	}
	return best
}

// softmax converts logits into probabilities in place.
func softmax(logits []float64) []float64 {
	if len(logits) == 0 {
		return logits
	}

	maxLogit := logits[0]
	for _, v := range logits[1:] {
		if v > maxLogit {
			maxLogit = v
		}
	}

	var sum float64
	for i, v := range logits {
		logits[i] = math.Exp(v - maxLogit)
		sum += logits[i]
	}
	for i := range logits {
		logits[i] /= sum
	}
	return logits
}

func sigmoid(v float64) float64 {
	return 1.0 / (1.0 + math.Exp(-v))
}

// dot computes the inner product of two equal-length vectors.
func dot(a, b []float64) float64 {
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
