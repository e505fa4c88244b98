package db

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"housing/ml"
)

func TestTrainingLogRoundTrip(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "training.db"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	for i := 0; i < 3; i++ {
		report := &ml.TrainingReport{
			ModelType:     ml.ModelTypeLinearRegression,
			DatasetSource: "synthetic:rows=1000,seed=42",
			TrainRows:     800,
			TestRows:      200,
			MSE:           0.1 * float64(i+1),
			ArtifactPath:  "artifacts/housing_model.json",
			ArtifactSize:  512,
			TrainedAt:     base.Add(time.Duration(i) * time.Hour),
		}
		if err := store.RecordTrainingRun(ctx, report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	logs, err := store.LoadTrainingLog(ctx, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(logs) != 2 {
		t.Fatalf("expected 2 logs, got %d", len(logs))
	}
	if !logs[0].TrainedAt.Equal(base.Add(2 * time.Hour)) {
		t.Fatalf("expected newest first, got %v", logs[0].TrainedAt)
	}
	if logs[0].TrainRows != 800 || logs[0].ModelName != ml.ModelTypeLinearRegression {
		t.Fatalf("unexpected log: %+v", logs[0])
	}

	all, err := store.LoadTrainingLog(ctx, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 logs, got %d", len(all))
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "training.db")
	for i := 0; i < 2; i++ {
		store, err := Open(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		store.Close()
	}
}
