package store

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestPredictionRepository_Create(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := &Prediction{Kind: KindSign, Label: "A", Confidence: 0.6, RequestID: "req-1"}
	if err := s.Predictions().Create(ctx, p); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if p.ID == "" {
		t.Fatal("expected ID to be assigned")
	}
	if p.CreatedAt.IsZero() {
		t.Fatal("expected CreatedAt to be assigned")
	}

	got, err := s.Predictions().GetByID(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Kind != KindSign || got.Label != "A" || got.Confidence != 0.6 || got.RequestID != "req-1" {
		t.Errorf("unexpected prediction %+v", got)
	}
}

func TestPredictionRepository_Create_InvalidKind(t *testing.T) {
	s := newTestStore(t)

	err := s.Predictions().Create(context.Background(), &Prediction{Kind: "gesture", Label: "x"})
	if err == nil {
		t.Error("expected error for invalid kind")
	}
}

func TestPredictionRepository_GetByID_NotFound(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.Predictions().GetByID(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestPredictionRepository_List(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	repo := s.Predictions()

	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	records := []*Prediction{
		{Kind: KindSign, Label: "A", Confidence: 0.9, CreatedAt: base},
		{Kind: KindEmotion, Label: "Happy", Confidence: 0.8, CreatedAt: base.Add(time.Second)},
		{Kind: KindSign, Label: "B", Confidence: 0.7, CreatedAt: base.Add(2 * time.Second)},
	}
	for _, p := range records {
		if err := repo.Create(ctx, p); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	t.Run("newest first", func(t *testing.T) {
		got, err := repo.List(ctx, "", 0)
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(got) != 3 {
			t.Fatalf("expected 3 predictions, got %d", len(got))
		}
		want := []string{"B", "Happy", "A"}
		for i, p := range got {
			if p.Label != want[i] {
				t.Errorf("position %d: expected %s, got %s", i, want[i], p.Label)
			}
		}
	})

	t.Run("filtered by kind", func(t *testing.T) {
		got, err := repo.List(ctx, KindSign, 0)
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("expected 2 sign predictions, got %d", len(got))
		}
		for _, p := range got {
			if p.Kind != KindSign {
				t.Errorf("expected kind sign, got %s", p.Kind)
			}
		}
	})

	t.Run("limit", func(t *testing.T) {
		got, err := repo.List(ctx, "", 1)
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(got) != 1 || got[0].Label != "B" {
			t.Errorf("expected only the newest prediction, got %+v", got)
		}
	})

	t.Run("empty result is not nil", func(t *testing.T) {
		empty := newTestStore(t)
		got, err := empty.Predictions().List(ctx, KindEmotion, 10)
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if got == nil || len(got) != 0 {
			t.Errorf("expected empty slice, got %v", got)
		}
	})
}

func TestPredictionRepository_Count(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	repo := s.Predictions()

	for _, k := range []Kind{KindSign, KindSign, KindEmotion} {
		if err := repo.Create(ctx, &Prediction{Kind: k, Label: "x"}); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	tests := []struct {
		kind Kind
		want int
	}{
		{"", 3},
		{KindSign, 2},
		{KindEmotion, 1},
	}
	for _, tt := range tests {
		got, err := repo.Count(ctx, tt.kind)
		if err != nil {
			t.Fatalf("Count(%q) error = %v", tt.kind, err)
		}
		if got != tt.want {
			t.Errorf("Count(%q): expected %d, got %d", tt.kind, tt.want, got)
		}
	}
}

func TestClampLimit(t *testing.T) {
	tests := map[int]int{
		-1:   DefaultListLimit,
		0:    DefaultListLimit,
		10:   10,
		500:  500,
		9999: MaxListLimit,
	}
	for in, want := range tests {
		if got := ClampLimit(in); got != want {
			t.Errorf("ClampLimit(%d): expected %d, got %d", in, want, got)
		}
	}
}
