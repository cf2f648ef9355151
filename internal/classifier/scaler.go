package classifier

import "fmt"

// Scaler standardizes features as (x - mean) / scale.
type Scaler struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

// Transform returns a scaled copy of x. Zero scale entries leave the centered value
// unchanged, matching how the scaler was fitted on constant features.
func (s *Scaler) Transform(x []float64) ([]float64, error) {
	if len(x) != len(s.Mean) {
		return nil, fmt.Errorf("%w: got %d, scaler expects %d", ErrFeatureLength, len(x), len(s.Mean))
	}

	out := make([]float64, len(x))
	for i, v := range x {
		scale := s.Scale[i]
		if scale == 0 {
			scale = 1
		}
		out[i] = (v - s.Mean[i]) / scale
	}
	return out, nil
}

func (s *Scaler) validate() error {
	if len(s.Mean) != FeatureLength {
		return fmt.Errorf("%w: scaler mean has %d entries, want %d", ErrInvalidArtifact, len(s.Mean), FeatureLength)
	}
	if len(s.Scale) != len(s.Mean) {
		return fmt.Errorf("%w: scaler scale has %d entries, mean has %d", ErrInvalidArtifact, len(s.Scale), len(s.Mean))
	}
	return nil
}
