// Package service answers prediction and health requests against the
// model held by an ml.ModelCache.
package service

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"housing/ml"
)

// Version is reported by Health.
const Version = "0.1.0"

// HealthStatus is the body of GET /health.
type HealthStatus struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// PredictionResult is the body of a successful prediction.
type PredictionResult struct {
	PredictedPrice float64 `json:"predicted_price"`
}

// Config tunes a Service.
type Config struct {
	// PredictionCacheSize bounds the memo of recent predictions; 0 disables it.
	PredictionCacheSize int
}

// Service answers prediction and health requests. It is safe for concurrent use.
type Service struct {
	cache  *ml.ModelCache
	memo   *lru.Cache[[ml.NumFeatures]float64, float64]
	logger *zap.Logger
}

// New returns a Service reading models from cache.
func New(cache *ml.ModelCache, config Config, logger *zap.Logger) (*Service, error) {
	if cache == nil {
		return nil, fmt.Errorf("model cache is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{cache: cache, logger: logger}
	if config.PredictionCacheSize > 0 {
		memo, err := lru.New[[ml.NumFeatures]float64, float64](config.PredictionCacheSize)
		if err != nil {
			return nil, fmt.Errorf("create prediction cache: %w", err)
		}
		s.memo = memo
	}
	return s, nil
}

// Predict validates in before looking at the model cache, so a bad request
// is reported as ErrInvalidInput even when no model is loaded.
func (s *Service) Predict(ctx context.Context, in HouseInput) (PredictionResult, error) {
	vector, err := in.FeatureVector()
	if err != nil {
		return PredictionResult{}, err
	}

	model, err := s.cache.Get()
	if err != nil {
		return PredictionResult{}, err
	}

	values := vector.Values()
	if s.memo != nil {
		if price, ok := s.memo.Get(values); ok {
			return PredictionResult{PredictedPrice: price}, nil
		}
	}

	price, err := model.Predict(values)
	if err != nil {
		return PredictionResult{}, fmt.Errorf("inference: %w", err)
	}
	if s.memo != nil {
		s.memo.Add(values, price)
	}
	return PredictionResult{PredictedPrice: price}, nil
}

// Health is static and does not reflect whether a model is loaded.
func (s *Service) Health() HealthStatus {
	return HealthStatus{Status: "ok", Version: Version}
}

// ModelState reports the state of the underlying model cache.
func (s *Service) ModelState() ml.CacheState {
	return s.cache.State()
}

// Close drops memoised predictions. The model cache is closed by its owner.
func (s *Service) Close() {
	if s.memo != nil {
		s.memo.Purge()
	}
}
