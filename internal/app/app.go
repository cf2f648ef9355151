// Package app holds the loaded models and implements the sign and emotion predictions.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/ayusman/senas/internal/artifact"
	"github.com/ayusman/senas/internal/classifier"
	"github.com/ayusman/senas/internal/config"
	"github.com/ayusman/senas/internal/emotion"
	"github.com/ayusman/senas/internal/frame"
	"github.com/ayusman/senas/internal/hand"
	"github.com/ayusman/senas/internal/logging"
	"github.com/ayusman/senas/internal/store"
)

const (
	// NotAvailable is the sign label returned below the confidence threshold.
	NotAvailable = "N/A"
	// NoFace is the emotion returned when no face is found in the frame.
	NoFace = "..."
)

var (
	errModelUnavailable    = errors.New("classifier not loaded")
	errDetectorUnavailable = errors.New("emotion detector not loaded")
)

// Config holds configuration options for the application.
type Config struct {
	Model          *classifier.Model
	ModelSource    string
	Detector       emotion.Detector
	Store          *store.Store
	Logger         *slog.Logger
	Threshold      float64
	MaxFramePixels int64
}

// SignResult is the answer of the sign endpoint.
type SignResult struct {
	Label      string  `json:"letra"`
	Confidence float64 `json:"confianza"`
}

// EmotionResult is the answer of the emotion endpoint.
type EmotionResult struct {
	Emotion string `json:"emocion"`
}

// Status describes which models are loaded.
type Status struct {
	Uptime         time.Duration
	ModelLoaded    bool
	ModelType      string
	ModelSource    string
	Classes        []string
	DetectorLoaded bool
	HistoryEnabled bool
}

// App is the application context shared by every request handler.
type App struct {
	config   Config
	model    *classifier.Model
	detector emotion.Detector
	frames   *frame.Decoder
	logger   *slog.Logger
	started  time.Time
	mu       sync.RWMutex
}

// New creates a new App instance with the given configuration.
func New(config Config) *App {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &App{
		config:   config,
		model:    config.Model,
		detector: config.Detector,
		frames:   &frame.Decoder{MaxPixels: config.MaxFramePixels},
		logger:   logger,
		started:  time.Now(),
	}
}

// Load builds an App from cfg. A missing or corrupt artifact and a failed detector
// construction are logged and leave that model unavailable. An unknown artifact
// source or an unusable history database is returned as an error.
func Load(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	src, err := artifact.NewSource(ctx, cfg.Model)
	if err != nil {
		return nil, fmt.Errorf("artifact source: %w", err)
	}

	model, err := artifact.Load(ctx, src)
	if err != nil {
		logger.Error("failed to load classifier artifact", "source", src.String(), "err", err)
	} else {
		logger.Info("loaded classifier artifact",
			"source", src.String(),
			"type", model.Type,
			"classes", len(model.Classifier.Classes()))
	}
	if closer, ok := src.(io.Closer); ok {
		closer.Close()
	}

	var det emotion.Detector
	if cfg.Emotion.Enabled {
		d, err := emotion.NewCascadeDetector(DetectorConfig(cfg.Emotion))
		if err != nil {
			logger.Error("failed to build emotion detector", "err", err)
		} else {
			det = d
			logger.Info("loaded emotion detector", "cascade", cfg.Emotion.CascadePath, "model", cfg.Emotion.ModelPath)
		}
	} else {
		logger.Info("emotion detector disabled")
	}

	var st *store.Store
	if cfg.History.Path != "" {
		st, err = store.New(cfg.History.Path)
		if err != nil {
			if det != nil {
				det.Close()
			}
			return nil, fmt.Errorf("history store: %w", err)
		}
		logger.Info("prediction history enabled", "path", cfg.History.Path)
	}

	return New(Config{
		Model:          model,
		ModelSource:    src.String(),
		Detector:       det,
		Store:          st,
		Logger:         logger,
		Threshold:      cfg.Model.ConfidenceThreshold,
		MaxFramePixels: cfg.Server.MaxFramePixels,
	}), nil
}

// DetectorConfig converts the emotion section of the service configuration.
func DetectorConfig(c config.EmotionConfig) emotion.Config {
	return emotion.Config{
		CascadePath:    c.CascadePath,
		MinFaceSize:    c.MinFaceSize,
		ModelPath:      c.ModelPath,
		RuntimeLibrary: c.RuntimeLibrary,
		InputName:      c.InputName,
		OutputName:     c.OutputName,
		InputSize:      c.InputSize,
		Labels:         c.Labels,
		Softmax:        c.Softmax,
	}
}

// PredictSign classifies a 63-value feature vector. A top probability below the
// confidence threshold yields the NotAvailable label.
func (a *App) PredictSign(ctx context.Context, features []float64) (SignResult, error) {
	const op = "predict sign"

	model := a.Model()
	if model == nil {
		return SignResult{}, newError(KindUnavailable, op, errModelUnavailable)
	}
	if features == nil {
		return SignResult{}, newError(KindValidation, op, errors.New("features missing"))
	}
	if len(features) != classifier.FeatureLength {
		return SignResult{}, newError(KindValidation, op,
			fmt.Errorf("%w: got %d, want %d", classifier.ErrFeatureLength, len(features), classifier.FeatureLength))
	}
	for i, v := range features {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return SignResult{}, newError(KindValidation, op, fmt.Errorf("feature %d is not finite", i))
		}
	}

	pred, err := model.Predict(features)
	if err != nil {
		return SignResult{}, newError(KindInference, op, err)
	}

	result := SignResult{Label: pred.Label, Confidence: pred.Confidence}
	if pred.Confidence < a.config.Threshold {
		result.Label = NotAvailable
	}

	a.record(ctx, store.KindSign, result.Label, result.Confidence)
	return result, nil
}

// PredictLandmarks extracts features from 21 raw hand landmarks and classifies them.
func (a *App) PredictLandmarks(ctx context.Context, points []hand.Point3D) (SignResult, error) {
	const op = "predict landmarks"

	if a.Model() == nil {
		return SignResult{}, newError(KindUnavailable, op, errModelUnavailable)
	}

	lm, err := hand.FromPoints(points)
	if err != nil {
		return SignResult{}, newError(KindValidation, op, err)
	}
	features, err := lm.Features()
	if err != nil {
		return SignResult{}, newError(KindValidation, op, err)
	}

	return a.PredictSign(ctx, features)
}

// PredictEmotion decodes a data-URL frame and returns the capitalized top emotion of
// the first detected face, or NoFace when the frame contains no face.
func (a *App) PredictEmotion(ctx context.Context, dataURL string) (EmotionResult, error) {
	const op = "predict emotion"

	det := a.Detector()
	if det == nil {
		return EmotionResult{}, newError(KindUnavailable, op, errDetectorUnavailable)
	}
	if dataURL == "" {
		return EmotionResult{}, newError(KindValidation, op, errors.New("image_b64 missing"))
	}

	mat, err := a.frames.DecodeDataURL(dataURL)
	if err != nil {
		return EmotionResult{}, newError(KindDecode, op, err)
	}
	defer mat.Close()

	faces, err := det.Detect(mat)
	if err != nil {
		return EmotionResult{}, newError(KindInference, op, err)
	}

	if len(faces) == 0 {
		a.record(ctx, store.KindEmotion, NoFace, 0)
		return EmotionResult{Emotion: NoFace}, nil
	}

	label, score, ok := emotion.Top(faces[0].Emotions)
	if !ok {
		return EmotionResult{}, newError(KindInference, op, errors.New("detector returned no emotion scores"))
	}

	result := EmotionResult{Emotion: emotion.Capitalize(label)}
	a.record(ctx, store.KindEmotion, result.Emotion, score)
	return result, nil
}

// record stores a prediction in the history. Failures are logged only.
func (a *App) record(ctx context.Context, kind store.Kind, label string, confidence float64) {
	if a.config.Store == nil {
		return
	}

	p := &store.Prediction{
		Kind:       kind,
		Label:      label,
		Confidence: confidence,
		RequestID:  logging.RequestID(ctx),
	}
	if err := a.config.Store.Predictions().Create(ctx, p); err != nil {
		a.logger.Warn("failed to record prediction",
			"kind", kind,
			"request_id", p.RequestID,
			"err", err)
	}
}

// Model returns the loaded classifier, or nil.
func (a *App) Model() *classifier.Model {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.model
}

// Detector returns the emotion detector, or nil.
func (a *App) Detector() emotion.Detector {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.detector
}

// SetDetector sets the emotion detector implementation to use.
func (a *App) SetDetector(d emotion.Detector) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.detector = d
}

// Store returns the history store, or nil when history is disabled.
func (a *App) Store() *store.Store {
	return a.config.Store
}

// Logger returns the application logger.
func (a *App) Logger() *slog.Logger {
	return a.logger
}

// Status reports which models are loaded.
func (a *App) Status() Status {
	s := Status{
		Uptime:         time.Since(a.started),
		ModelSource:    a.config.ModelSource,
		DetectorLoaded: a.Detector() != nil,
		HistoryEnabled: a.config.Store != nil,
	}
	if m := a.Model(); m != nil {
		s.ModelLoaded = true
		s.ModelType = m.Type
		s.Classes = m.Classifier.Classes()
	}
	return s
}

// Close releases the detector's native handles and the history database.
func (a *App) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	var errs []error
	if a.detector != nil {
		errs = append(errs, a.detector.Close())
		a.detector = nil
	}
	if a.config.Store != nil {
		errs = append(errs, a.config.Store.Close())
	}
	return errors.Join(errs...)
}
