package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// List limits.
const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)

// Kind identifies which endpoint produced a prediction.
type Kind string

const (
	// KindSign is a sign-letter prediction.
	KindSign Kind = "sign"
	// KindEmotion is a facial emotion prediction.
	KindEmotion Kind = "emotion"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	return k == KindSign || k == KindEmotion
}

// Prediction represents a recorded prediction stored in the database.
type Prediction struct {
	ID         string    `json:"id"`
	Kind       Kind      `json:"kind"`
	Label      string    `json:"label"`
	Confidence float64   `json:"confidence"`
	RequestID  string    `json:"request_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// PredictionRepository provides access to the prediction history.
type PredictionRepository struct {
	db *sql.DB
}

// Predictions returns the prediction repository for this store.
func (s *Store) Predictions() *PredictionRepository {
	return &PredictionRepository{db: s.db}
}

// Create inserts p, assigning an ID and creation time when they are unset.
func (r *PredictionRepository) Create(ctx context.Context, p *Prediction) error {
	if !p.Kind.Valid() {
		return fmt.Errorf("invalid prediction kind %q", p.Kind)
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO predictions (id, kind, label, confidence, request_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		p.ID, string(p.Kind), p.Label, p.Confidence, p.RequestID, p.CreatedAt,
	)
	return err
}

// GetByID retrieves a prediction by its ID.
func (r *PredictionRepository) GetByID(ctx context.Context, id string) (*Prediction, error) {
	p := &Prediction{}
	var kind string

	err := r.db.QueryRowContext(ctx,
		`SELECT id, kind, label, confidence, request_id, created_at
		 FROM predictions WHERE id = ?`,
		id,
	).Scan(&p.ID, &kind, &p.Label, &p.Confidence, &p.RequestID, &p.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	p.Kind = Kind(kind)
	return p, nil
}

// List returns up to limit predictions, newest first. An empty kind lists every kind.
// A limit outside (0, MaxListLimit] is clamped.
func (r *PredictionRepository) List(ctx context.Context, kind Kind, limit int) ([]*Prediction, error) {
	limit = ClampLimit(limit)

	query := `SELECT id, kind, label, confidence, request_id, created_at FROM predictions`
	args := []any{}
	if kind != "" {
		query += ` WHERE kind = ?`
		args = append(args, string(kind))
	}
	query += ` ORDER BY created_at DESC, rowid DESC LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	predictions := []*Prediction{}
	for rows.Next() {
		p := &Prediction{}
		var k string
		if err := rows.Scan(&p.ID, &k, &p.Label, &p.Confidence, &p.RequestID, &p.CreatedAt); err != nil {
			return nil, err
		}
		p.Kind = Kind(k)
		predictions = append(predictions, p)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return predictions, nil
}

// Count returns the number of stored predictions of kind, or of every kind when kind is empty.
func (r *PredictionRepository) Count(ctx context.Context, kind Kind) (int, error) {
	var n int
	var err error
	if kind == "" {
		err = r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM predictions`).Scan(&n)
	} else {
		err = r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM predictions WHERE kind = ?`, string(kind)).Scan(&n)
	}
	return n, err
}

// ClampLimit applies the default and maximum list limits.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}
