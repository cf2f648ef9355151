package emotion

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"sync"

	"github.com/nfnt/resize"
	ort "github.com/yalue/onnxruntime_go"
)

// ONNXScorer runs a grayscale facial expression classifier through onnxruntime.
// Input tensors are reused between runs, so Score is serialized.
type ONNXScorer struct {
	session      *ort.AdvancedSession
	inputTensor  *ort.Tensor[float32]
	outputTensor *ort.Tensor[float32]
	labels       []string
	size         int
	softmax      bool
	mu           sync.Mutex
}

// NewONNXScorer initializes the runtime environment and opens the model session.
func NewONNXScorer(cfg Config) (*ONNXScorer, error) {
	if cfg.InputSize <= 0 {
		return nil, fmt.Errorf("invalid input size %d", cfg.InputSize)
	}
	if len(cfg.Labels) == 0 {
		return nil, errors.New("no emotion labels configured")
	}

	if !ort.IsInitialized() {
		if cfg.RuntimeLibrary != "" {
			ort.SetSharedLibraryPath(cfg.RuntimeLibrary)
		}
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("failed to initialize ONNX environment: %w", err)
		}
	}

	size := int64(cfg.InputSize)
	inputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 1, size, size))
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}

	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(len(cfg.Labels))))
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(cfg.ModelPath,
		[]string{cfg.InputName}, []string{cfg.OutputName},
		[]ort.ArbitraryTensor{inputTensor}, []ort.ArbitraryTensor{outputTensor},
		nil)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}

	return &ONNXScorer{
		session:      session,
		inputTensor:  inputTensor,
		outputTensor: outputTensor,
		labels:       append([]string(nil), cfg.Labels...),
		size:         cfg.InputSize,
		softmax:      cfg.Softmax,
	}, nil
}

// Score implements Scorer.
func (s *ONNXScorer) Score(face image.Image) (map[string]float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	copy(s.inputTensor.GetData(), Preprocess(face, s.size))

	if err := s.session.Run(); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	return Scores(s.outputTensor.GetData(), s.labels, s.softmax), nil
}

// Close destroys the tensors and the session. The runtime environment is shared
// by the process and is left for DestroyEnvironment at shutdown.
func (s *ONNXScorer) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	if s.session != nil {
		errs = append(errs, s.session.Destroy())
		s.session = nil
	}
	if s.inputTensor != nil {
		errs = append(errs, s.inputTensor.Destroy())
		s.inputTensor = nil
	}
	if s.outputTensor != nil {
		errs = append(errs, s.outputTensor.Destroy())
		s.outputTensor = nil
	}
	return errors.Join(errs...)
}

// DestroyEnvironment tears down the process-wide onnxruntime environment.
func DestroyEnvironment() error {
	if !ort.IsInitialized() {
		return nil
	}
	return ort.DestroyEnvironment()
}

// Preprocess resizes img to size x size and returns its luminance in [0, 1], row major.
func Preprocess(img image.Image, size int) []float32 {
	resized := resize.Resize(uint(size), uint(size), img, resize.Bilinear)
	bounds := resized.Bounds()

	data := make([]float32, size*size)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			g := color.GrayModel.Convert(resized.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.Gray)
			data[y*size+x] = float32(g.Y) / 255.0
		}
	}
	return data
}

// Scores maps raw model outputs onto labels, optionally applying a softmax.
// Outputs beyond the label list are ignored.
func Scores(raw []float32, labels []string, softmax bool) map[string]float64 {
	n := min(len(raw), len(labels))
	values := make([]float64, n)
	for i := 0; i < n; i++ {
		values[i] = float64(raw[i])
	}

	if softmax && n > 0 {
		maxVal := values[0]
		for _, v := range values[1:] {
			maxVal = math.Max(maxVal, v)
		}
		var sum float64
		for i, v := range values {
			values[i] = math.Exp(v - maxVal)
			sum += values[i]
		}
		for i := range values {
			values[i] /= sum
		}
	}

	scores := make(map[string]float64, n)
	for i, v := range values {
		scores[labels[i]] = v
	}
	return scores
}
