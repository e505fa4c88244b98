package ml

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// Training stages reported to the progress hook.
const (
	StageLoad     = "load"
	StageSplit    = "split"
	StageFit      = "fit"
	StageEvaluate = "evaluate"
	StagePersist  = "persist"
)

// Stages lists the training stages in the order they run.
var Stages = []string{StageLoad, StageSplit, StageFit, StageEvaluate, StagePersist}

// TrainerConfig configures one training run.
type TrainerConfig struct {
	Source       DatasetSource
	ArtifactPath string
	TestRatio    float64
	Seed         int64
}

// TrainingReport summarises one training run.
type TrainingReport struct {
	ModelType     string
	DatasetSource string
	Rows          int
	Dropped       int
	TrainRows     int
	TestRows      int
	MSE           float64
	Coefficients  [NumFeatures]float64
	Intercept     float64
	FeatureStats  map[string][2]float64
	ArtifactPath  string
	ArtifactSize  int64
	TrainedAt     time.Time
}

// RunRecorder stores training reports. Recording is advisory.
type RunRecorder interface {
	RecordTrainingRun(ctx context.Context, report *TrainingReport) error
}

// Trainer fits a model from a dataset source and writes its artifact.
type Trainer struct {
	config   TrainerConfig
	logger   *zap.Logger
	recorder RunRecorder
	progress func(stage string)
	now      func() time.Time
}

// TrainerOption customises a Trainer.
type TrainerOption func(*Trainer)

// WithRecorder stores each successful run with recorder.
func WithRecorder(recorder RunRecorder) TrainerOption {
	return func(t *Trainer) {
		t.recorder = recorder
	}
}

// WithProgress calls progress as each stage starts.
func WithProgress(progress func(stage string)) TrainerOption {
	return func(t *Trainer) {
		t.progress = progress
	}
}

// NewTrainer returns a Trainer for config.
func NewTrainer(config TrainerConfig, logger *zap.Logger, opts ...TrainerOption) *Trainer {
	if logger == nil {
		logger = zap.NewNop()
	}
	t := &Trainer{
		config: config,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Train runs load, split, fit, evaluate and persist. It either leaves a
// non-empty artifact at the configured path or returns an error.
func (t *Trainer) Train(ctx context.Context) (*TrainingReport, error) {
	if t.config.Source == nil {
		return nil, fmt.Errorf("%w: no dataset source configured", ErrDatasetUnavailable)
	}
	if t.config.ArtifactPath == "" {
		return nil, fmt.Errorf("%w: artifact path is required", ErrTrainingFailure)
	}

	t.stage(StageLoad)
	ds, err := t.config.Source.Load(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return nil, err
		}
		if !errors.Is(err, ErrDatasetUnavailable) {
			err = fmt.Errorf("%w: %v", ErrDatasetUnavailable, err)
		}
		return nil, err
	}
	t.logger.Info("dataset loaded",
		zap.String("source", t.config.Source.Name()),
		zap.Int("rows", ds.Len()),
		zap.Int("dropped", ds.Dropped),
	)

	preprocessor := &DataPreprocessor{}
	if err := preprocessor.ComputeStats(ds); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTrainingFailure, err)
	}

	t.stage(StageSplit)
	split, err := SplitDataset(ds, t.config.TestRatio, t.config.Seed)
	if err != nil {
		return nil, fmt.Errorf("%w: split: %v", ErrTrainingFailure, err)
	}

	t.stage(StageFit)
	model := &LinearRegression{}
	if err := model.Fit(split.TrainX, split.TrainY); err != nil {
		return nil, fmt.Errorf("%w: fit: %v", ErrTrainingFailure, err)
	}

	t.stage(StageEvaluate)
	mse, err := MeanSquaredError(model, split.TestX, split.TestY)
	if err != nil {
		t.logger.Warn("evaluation skipped", zap.Error(err))
		mse = 0
	} else {
		t.logger.Info("model evaluated", zap.Float64("mse", mse), zap.Int("test_rows", len(split.TestY)))
	}

	report := &TrainingReport{
		ModelType:     ModelTypeLinearRegression,
		DatasetSource: t.config.Source.Name(),
		Rows:          ds.Len(),
		Dropped:       ds.Dropped,
		TrainRows:     len(split.TrainY),
		TestRows:      len(split.TestY),
		MSE:           mse,
		Coefficients:  model.Coefficients(),
		Intercept:     model.Intercept(),
		FeatureStats:  preprocessor.FeatureStats(),
		ArtifactPath:  t.config.ArtifactPath,
		TrainedAt:     t.now().UTC(),
	}
	model.Metadata = ArtifactMetadata{
		TrainedAt:     report.TrainedAt,
		DatasetSource: report.DatasetSource,
		MSE:           report.MSE,
		TrainRows:     report.TrainRows,
		TestRows:      report.TestRows,
		FeatureRanges: report.FeatureStats,
	}

	t.stage(StagePersist)
	size, err := persist(model, t.config.ArtifactPath)
	if err != nil {
		return nil, fmt.Errorf("%w: persist %s: %v", ErrTrainingFailure, t.config.ArtifactPath, err)
	}
	report.ArtifactSize = size
	t.logger.Info("model saved",
		zap.String("path", t.config.ArtifactPath),
		zap.Int64("bytes", size),
	)

	if t.recorder != nil {
		if err := t.recorder.RecordTrainingRun(ctx, report); err != nil {
			t.logger.Warn("failed to record training run", zap.Error(err))
		}
	}
	return report, nil
}

func persist(model Regressor, path string) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, err
	}
	if err := model.Save(path); err != nil {
		return 0, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	if info.Size() == 0 {
		return 0, errors.New("artifact is empty")
	}
	return info.Size(), nil
}

func (t *Trainer) stage(name string) {
	t.logger.Debug("training stage", zap.String("stage", name))
	if t.progress != nil {
		t.progress(name)
	}
}
