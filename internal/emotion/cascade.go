package emotion

import (
	"errors"
	"fmt"
	"image"
	"os"
	"sync"

	"gocv.io/x/gocv"
)

// CascadeDetector finds faces with an OpenCV Haar cascade and scores each crop.
// The cascade and the scorer keep native state, so Detect is serialized.
type CascadeDetector struct {
	cascade     gocv.CascadeClassifier
	scorer      Scorer
	minFaceSize int
	mu          sync.Mutex
}

// NewCascadeDetector loads the cascade and the ONNX scorer described by cfg.
func NewCascadeDetector(cfg Config) (*CascadeDetector, error) {
	scorer, err := NewONNXScorer(cfg)
	if err != nil {
		return nil, err
	}

	d, err := NewCascadeDetectorWithScorer(cfg.CascadePath, cfg.MinFaceSize, scorer)
	if err != nil {
		scorer.Close()
		return nil, err
	}
	return d, nil
}

// NewCascadeDetectorWithScorer loads the cascade at cascadePath and pairs it with scorer.
func NewCascadeDetectorWithScorer(cascadePath string, minFaceSize int, scorer Scorer) (*CascadeDetector, error) {
	if scorer == nil {
		return nil, errors.New("nil emotion scorer")
	}
	if _, err := os.Stat(cascadePath); err != nil {
		return nil, fmt.Errorf("face cascade: %w", err)
	}

	cascade := gocv.NewCascadeClassifier()
	if !cascade.Load(cascadePath) {
		cascade.Close()
		return nil, fmt.Errorf("load face cascade %s", cascadePath)
	}

	return &CascadeDetector{
		cascade:     cascade,
		scorer:      scorer,
		minFaceSize: minFaceSize,
	}, nil
}

// Detect implements Detector.
func (d *CascadeDetector) Detect(frame *gocv.Mat) ([]Face, error) {
	if frame == nil || frame.Empty() {
		return nil, errors.New("empty frame")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	gray := gocv.NewMat()
	defer gray.Close()
	if frame.Channels() == 1 {
		frame.CopyTo(&gray)
	} else {
		gocv.CvtColor(*frame, &gray, gocv.ColorBGRToGray)
	}

	minSize := image.Pt(d.minFaceSize, d.minFaceSize)
	rects := d.cascade.DetectMultiScaleWithParams(gray, 1.1, 5, 0, minSize, image.Pt(0, 0))
	if len(rects) == 0 {
		return []Face{}, nil
	}

	faces := make([]Face, 0, len(rects))
	for _, rect := range rects {
		crop, err := cropImage(gray, rect)
		if err != nil {
			return nil, err
		}

		scores, err := d.scorer.Score(crop)
		if err != nil {
			return nil, fmt.Errorf("score face %v: %w", rect, err)
		}

		faces = append(faces, Face{Box: rect, Emotions: scores})
	}

	return faces, nil
}

// Close releases the cascade and the scorer.
func (d *CascadeDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	cascadeErr := d.cascade.Close()
	scorerErr := d.scorer.Close()
	return errors.Join(cascadeErr, scorerErr)
}

func cropImage(gray gocv.Mat, rect image.Rectangle) (image.Image, error) {
	rect = rect.Intersect(image.Rect(0, 0, gray.Cols(), gray.Rows()))
	if rect.Empty() {
		return nil, fmt.Errorf("face %v outside frame", rect)
	}

	region := gray.Region(rect)
	defer region.Close()

	img, err := region.ToImage()
	if err != nil {
		return nil, fmt.Errorf("convert face crop: %w", err)
	}
	return img, nil
}
