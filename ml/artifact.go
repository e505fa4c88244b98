package ml

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"
)

// ArtifactMetadata is advisory information saved next to the coefficients.
type ArtifactMetadata struct {
	TrainedAt     time.Time `json:"trained_at"`
	DatasetSource string    `json:"dataset_source"`
	MSE           float64   `json:"mse"`
	TrainRows     int       `json:"train_rows"`
	TestRows      int       `json:"test_rows"`

	// FeatureRanges holds the [min, max] of each feature in the training data.
	FeatureRanges map[string][2]float64 `json:"feature_ranges,omitempty"`
}

type artifact struct {
	ModelType    string           `json:"model_type"`
	FeatureNames []string         `json:"feature_names"`
	SchemaHash   string           `json:"schema_hash"`
	Coefficients []float64        `json:"coefficients"`
	Intercept    float64          `json:"intercept"`
	Metadata     ArtifactMetadata `json:"metadata"`
}

func newArtifact(modelType string, coef [NumFeatures]float64, intercept float64, meta ArtifactMetadata) *artifact {
	return &artifact{
		ModelType:    modelType,
		FeatureNames: FeatureNames[:],
		SchemaHash:   SchemaHash(),
		Coefficients: coef[:],
		Intercept:    intercept,
		Metadata:     meta,
	}
}

// writeArtifact writes to a temp file beside path and renames it into place,
// so a failed write leaves any previous artifact intact.
func writeArtifact(path string, art *artifact) error {
	payload, err := json.MarshalIndent(art, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

func readArtifact(path string) (*artifact, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var art artifact
	if err := json.Unmarshal(payload, &art); err != nil {
		return nil, fmt.Errorf("decode artifact %s: %w", path, err)
	}
	if !slices.Equal(art.FeatureNames, FeatureNames[:]) || art.SchemaHash != SchemaHash() {
		return nil, fmt.Errorf("%w: artifact %s has features %v", ErrSchemaMismatch, path, art.FeatureNames)
	}
	return &art, nil
}
