package service

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"

	"housing/ml"
)

func readyCache(t *testing.T) *ml.ModelCache {
	t.Helper()
	path := filepath.Join(t.TempDir(), "housing_model.json")
	trainer := ml.NewTrainer(ml.TrainerConfig{
		Source:       ml.SyntheticSource{Rows: ml.DefaultSyntheticRows, Seed: ml.DefaultSeed},
		ArtifactPath: path,
		Seed:         ml.DefaultSeed,
	}, zaptest.NewLogger(t))
	if _, err := trainer.Train(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cache := ml.NewModelCache()
	if err := cache.Init(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	t.Cleanup(cache.Close)
	return cache
}

func emptyCache(t *testing.T) *ml.ModelCache {
	t.Helper()
	cache := ml.NewModelCache()
	if err := cache.Init(filepath.Join(t.TempDir(), "missing.json")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return cache
}

func exampleInput() HouseInput {
	return HouseInputFromVector(ml.FeatureVector{
		MedInc: 3.5, HouseAge: 30.0, AveRooms: 6.0, AveBedrms: 1.0,
		Population: 800.0, AveOccup: 3.0, Latitude: 34.0, Longitude: -118.0,
	})
}

func TestPredictReady(t *testing.T) {
	cache := readyCache(t)
	svc, err := New(cache, Config{PredictionCacheSize: 16}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result, err := svc.Predict(context.Background(), exampleInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.IsNaN(result.PredictedPrice) || math.IsInf(result.PredictedPrice, 0) {
		t.Fatalf("expected finite prediction, got %v", result.PredictedPrice)
	}

	model, _ := cache.Get()
	want, _ := model.Predict(exampleInput().mustVector(t).Values())
	if result.PredictedPrice != want {
		t.Fatalf("expected raw inference %v, got %v", want, result.PredictedPrice)
	}

	again, err := svc.Predict(context.Background(), exampleInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if again != result {
		t.Fatalf("expected memoised result %v, got %v", result, again)
	}
	svc.Close()
}

func TestPredictNotReady(t *testing.T) {
	svc, err := New(emptyCache(t), Config{}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.Predict(context.Background(), exampleInput()); !errors.Is(err, ml.ErrModelNotReady) {
		t.Fatalf("expected ErrModelNotReady, got %v", err)
	}
}

func TestPredictMissingFieldIsInvalidInput(t *testing.T) {
	for _, cache := range []*ml.ModelCache{readyCache(t), emptyCache(t)} {
		svc, err := New(cache, Config{}, zaptest.NewLogger(t))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		in := exampleInput()
		in.Latitude = nil

		_, err = svc.Predict(context.Background(), in)
		if !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("expected ErrInvalidInput, got %v", err)
		}
		if errors.Is(err, ml.ErrModelNotReady) {
			t.Fatal("invalid input must not report not ready")
		}
		var verr *ValidationError
		if !errors.As(err, &verr) || len(verr.Issues) != 1 || verr.Issues[0].Loc[1] != "Latitude" {
			t.Fatalf("unexpected issues: %v", err)
		}
	}
}

func TestHealthIgnoresCacheState(t *testing.T) {
	svc, err := New(ml.NewModelCache(), Config{}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := svc.Health(); got != (HealthStatus{Status: "ok", Version: "0.1.0"}) {
		t.Fatalf("unexpected health: %+v", got)
	}
	if svc.ModelState() != ml.CacheEmpty {
		t.Fatalf("expected empty cache, got %s", svc.ModelState())
	}
}

func TestNewRequiresCache(t *testing.T) {
	if _, err := New(nil, Config{}, nil); err == nil {
		t.Fatal("expected error without cache")
	}
}

func TestDecodeHouseInput(t *testing.T) {
	body := `{"MedInc": "3.5", "HouseAge": 30, "AveRooms": 6, "AveBedrms": 1,
		"Population": 800, "AveOccup": 3, "Latitude": 34, "Longitude": -118, "extra": true}`
	in, err := DecodeHouseInput(strings.NewReader(body))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	v := in.mustVector(t)
	if v.MedInc != 3.5 || v.Longitude != -118 {
		t.Fatalf("unexpected vector: %+v", v)
	}
}

func TestDecodeHouseInputRejects(t *testing.T) {
	cases := map[string]struct {
		body      string
		issueType string
	}{
		"malformed json": {`{"MedInc":`, "json_invalid"},
		"not an object":  {`[1, 2, 3]`, "model_attributes_type"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeHouseInput(strings.NewReader(tc.body))
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if verr.Issues[0].Type != tc.issueType {
				t.Fatalf("expected %s, got %s", tc.issueType, verr.Issues[0].Type)
			}
		})
	}
}

func TestNumberAcceptsDecimalStringsOnly(t *testing.T) {
	cases := map[string]bool{
		`"3.5"`:    true,
		`" -118 "`: true,
		`"1e3"`:    true,
		`4.25`:     true,
		`"0x1p4"`:  false,
		`"-0X10"`:  false,
		`"3,5"`:    false,
	}
	for raw, valid := range cases {
		var n Number
		if err := n.UnmarshalJSON([]byte(raw)); err != nil {
			t.Fatalf("%s: unexpected error: %v", raw, err)
		}
		if n.invalid == valid {
			t.Errorf("%s: expected valid=%v", raw, valid)
		}
	}
}

func TestValidateReportsEveryField(t *testing.T) {
	body := `{"MedInc": "abc", "HouseAge": null, "AveRooms": true, "AveBedrms": "NaN"}`
	in, err := DecodeHouseInput(strings.NewReader(body))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err = in.Validate()
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(verr.Issues) != ml.NumFeatures {
		t.Fatalf("expected %d issues, got %v", ml.NumFeatures, verr.Issues)
	}
	want := map[string]string{
		"MedInc":    "float_parsing",
		"HouseAge":  "missing",
		"AveRooms":  "float_parsing",
		"AveBedrms": "finite_number",
		"Longitude": "missing",
	}
	for _, issue := range verr.Issues {
		if typ, ok := want[issue.Loc[1]]; ok && typ != issue.Type {
			t.Fatalf("field %s: expected %s, got %s", issue.Loc[1], typ, issue.Type)
		}
	}
}

func (in HouseInput) mustVector(t *testing.T) ml.FeatureVector {
	t.Helper()
	v, err := in.FeatureVector()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return v
}
