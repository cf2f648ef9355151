package classifier

import (
	"encoding/json"
	"fmt"
	"io"
)

// Artifact is the serialized form of a trained model: classifier parameters, the
// fitted scaler and a type tag.
type Artifact struct {
	Type       string      `json:"type"`
	Classes    []string    `json:"classes"`
	Scaler     Scaler      `json:"scaler"`
	Coef       [][]float64 `json:"coef,omitempty"`
	Intercept  []float64   `json:"intercept,omitempty"`
	Layers     []Layer     `json:"layers,omitempty"`
	Activation string      `json:"activation,omitempty"`
}

// Decode reads a JSON artifact from r and builds the Model it describes.
func Decode(r io.Reader) (*Model, error) {
	var a Artifact
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&a); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArtifact, err)
	}
	return a.Build()
}

// Build validates the artifact and constructs the Model.
func (a *Artifact) Build() (*Model, error) {
	if len(a.Classes) == 0 {
		return nil, fmt.Errorf("%w: no classes", ErrInvalidArtifact)
	}

	scaler := a.Scaler
	if err := scaler.validate(); err != nil {
		return nil, err
	}

	var (
		clf Classifier
		err error
	)
	switch a.Type {
	case TypeLogistic:
		clf, err = NewLogistic(a.Classes, a.Coef, a.Intercept)
	case TypeMLP:
		clf, err = NewMLP(a.Classes, a.Layers, a.Activation)
	default:
		return nil, fmt.Errorf("%w: unknown model type %q", ErrInvalidArtifact, a.Type)
	}
	if err != nil {
		return nil, err
	}

	return &Model{
		Type:       a.Type,
		Scaler:     &scaler,
		Classifier: clf,
	}, nil
}
