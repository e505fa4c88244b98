package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v2"

	"housing/ml"
)

// FileName is the config file LoadFromDir looks for.
const FileName = "housing.yaml"

const (
	SourceFile      = "file"
	SourceSynthetic = "synthetic"
)

// Config holds all configuration for training and serving.
type Config struct {
	ArtifactPath string         `yaml:"artifact_path"`
	Dataset      DatasetConfig  `yaml:"dataset"`
	Training     TrainingConfig `yaml:"training"`
	Http         HttpConfig     `yaml:"http"`
	Serving      ServingConfig  `yaml:"serving"`
	Database     DatabaseConfig `yaml:"database"`
	Log          LogConfig      `yaml:"log"`
}

// DatasetConfig selects where training rows come from.
type DatasetConfig struct {
	Source        string `yaml:"source"` // "file" or "synthetic"
	Path          string `yaml:"path"`
	SyntheticRows int    `yaml:"synthetic_rows"`
	Seed          int64  `yaml:"seed"`
}

// TrainingConfig controls the train/test split.
type TrainingConfig struct {
	TestRatio float64 `yaml:"test_ratio"`
	Seed      int64   `yaml:"seed"`
}

// HttpConfig configures the prediction server.
type HttpConfig struct {
	Port           int           `yaml:"port"`
	Timeout        time.Duration `yaml:"timeout"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
}

// ServingConfig tunes request handling.
type ServingConfig struct {
	PredictionCacheSize int `yaml:"prediction_cache_size"`
}

// DatabaseConfig locates the training run log. An empty path disables it.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// LogConfig configures the process logger and its rotating file.
type LogConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"` // "console" or "json"
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		ArtifactPath: filepath.Join("artifacts", "housing_model.json"),
		Dataset: DatasetConfig{
			Source:        SourceFile,
			Path:          filepath.Join("data", "housing.csv"),
			SyntheticRows: ml.DefaultSyntheticRows,
			Seed:          ml.DefaultSeed,
		},
		Training: TrainingConfig{
			TestRatio: ml.DefaultTestRatio,
			Seed:      ml.DefaultSeed,
		},
		Http: HttpConfig{
			Port:           8000,
			Timeout:        30 * time.Second,
			AllowedOrigins: []string{"*"},
		},
		Serving: ServingConfig{
			PredictionCacheSize: 1024,
		},
		Database: DatabaseConfig{
			Path: filepath.Join("artifacts", "training.db"),
		},
		Log: LogConfig{
			Level:      "info",
			Format:     "console",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// Load reads a YAML file over the defaults. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadFromDir loads housing.yaml from dir, falling back to the defaults.
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, FileName)
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}
	return DefaultConfig(), nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	switch c.Dataset.Source {
	case SourceFile:
		if c.Dataset.Path == "" {
			errs = append(errs, errors.New("dataset.path is required for the file source"))
		}
	case SourceSynthetic:
		if c.Dataset.SyntheticRows <= 0 {
			errs = append(errs, fmt.Errorf("dataset.synthetic_rows must be positive, got %d", c.Dataset.SyntheticRows))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown dataset.source %q", c.Dataset.Source))
	}
	if c.Training.TestRatio <= 0 || c.Training.TestRatio >= 1 {
		errs = append(errs, fmt.Errorf("training.test_ratio must be in (0, 1), got %g", c.Training.TestRatio))
	}
	if c.Http.Port <= 0 || c.Http.Port > 65535 {
		errs = append(errs, fmt.Errorf("http.port out of range: %d", c.Http.Port))
	}
	if c.ArtifactPath == "" {
		errs = append(errs, errors.New("artifact_path is required"))
	}
	if c.Serving.PredictionCacheSize < 0 {
		errs = append(errs, errors.New("serving.prediction_cache_size must not be negative"))
	}
	return errors.Join(errs...)
}

// Resolve anchors p at root unless it is empty or already absolute.
func (c *Config) Resolve(root, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, p)
}

// DatasetSource builds the configured training data source.
func (c *Config) DatasetSource(root string) ml.DatasetSource {
	if c.Dataset.Source == SourceSynthetic {
		return ml.SyntheticSource{Rows: c.Dataset.SyntheticRows, Seed: c.Dataset.Seed}
	}
	return ml.FileSource{Path: c.Resolve(root, c.Dataset.Path)}
}
