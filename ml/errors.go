package ml

import "errors"

var (
	// ErrDatasetUnavailable means no rows could be produced by the dataset source.
	ErrDatasetUnavailable = errors.New("dataset unavailable")
	// ErrTrainingFailure covers fit and persistence failures.
	ErrTrainingFailure = errors.New("training failed")
	// ErrModelNotReady is returned by ModelCache.Get when no model is loaded.
	ErrModelNotReady = errors.New("model not ready")
	// ErrCacheInitialized is returned by a second ModelCache.Init.
	ErrCacheInitialized = errors.New("model cache already initialized")
	// ErrSchemaMismatch means an artifact was built for different features.
	ErrSchemaMismatch = errors.New("artifact feature schema mismatch")
)
