package classifier

import "fmt"

// Logistic is a linear classifier. With one coefficient row and two classes it is a
// binary sigmoid model; otherwise it is multinomial with a softmax output.
type Logistic struct {
	classes   []string
	coef      [][]float64
	intercept []float64
}

// NewLogistic validates the shapes and returns a Logistic classifier.
func NewLogistic(classes []string, coef [][]float64, intercept []float64) (*Logistic, error) {
	if len(classes) < 2 {
		return nil, fmt.Errorf("%w: need at least 2 classes, got %d", ErrInvalidArtifact, len(classes))
	}

	rows := len(classes)
	if len(classes) == 2 && len(coef) == 1 {
		rows = 1
	}
	if len(coef) != rows {
		return nil, fmt.Errorf("%w: %d coefficient rows for %d classes", ErrInvalidArtifact, len(coef), len(classes))
	}
	if len(intercept) != rows {
		return nil, fmt.Errorf("%w: %d intercepts for %d coefficient rows", ErrInvalidArtifact, len(intercept), rows)
	}
	for i, row := range coef {
		if len(row) != FeatureLength {
			return nil, fmt.Errorf("%w: coefficient row %d has %d entries, want %d", ErrInvalidArtifact, i, len(row), FeatureLength)
		}
	}

	return &Logistic{classes: classes, coef: coef, intercept: intercept}, nil
}

// Classes implements Classifier.
func (l *Logistic) Classes() []string {
	return l.classes
}

// PredictProba implements Classifier.
func (l *Logistic) PredictProba(x []float64) ([]float64, error) {
	if len(x) != FeatureLength {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrFeatureLength, len(x), FeatureLength)
	}

	if len(l.coef) == 1 {
		p := sigmoid(dot(l.coef[0], x) + l.intercept[0])
		return []float64{1 - p, p}, nil
	}

	logits := make([]float64, len(l.coef))
	for i, row := range l.coef {
		logits[i] = dot(row, x) + l.intercept[i]
	}
	return softmax(logits), nil
}
