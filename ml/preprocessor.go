package ml

import (
	"errors"
	"math"
	"math/rand"
)

// DefaultTestRatio is the share of rows held out for evaluation.
const DefaultTestRatio = 0.2

// Split is a disjoint train/test partition of a Dataset.
type Split struct {
	TrainX [][NumFeatures]float64
	TrainY []float64
	TestX  [][NumFeatures]float64
	TestY  []float64
}

// SplitDataset shuffles row indexes with a seeded source and holds out
// ceil(testRatio*n) rows for evaluation.
func SplitDataset(ds *Dataset, testRatio float64, seed int64) (*Split, error) {
	if ds == nil || ds.Len() == 0 {
		return nil, errors.New("dataset is empty")
	}
	if len(ds.Features) != len(ds.Labels) {
		return nil, errors.New("features and labels size mismatch")
	}
	if testRatio <= 0 || testRatio >= 1 {
		testRatio = DefaultTestRatio
	}

	n := ds.Len()
	testSize := int(math.Ceil(float64(n) * testRatio))
	rnd := rand.New(rand.NewSource(seed))
	indices := rnd.Perm(n)

	split := &Split{
		TrainX: make([][NumFeatures]float64, 0, n-testSize),
		TrainY: make([]float64, 0, n-testSize),
		TestX:  make([][NumFeatures]float64, 0, testSize),
		TestY:  make([]float64, 0, testSize),
	}
	for i, idx := range indices {
		if i < testSize {
			split.TestX = append(split.TestX, ds.Features[idx])
			split.TestY = append(split.TestY, ds.Labels[idx])
		} else {
			split.TrainX = append(split.TrainX, ds.Features[idx])
			split.TrainY = append(split.TrainY, ds.Labels[idx])
		}
	}
	return split, nil
}

// DataPreprocessor collects per-feature min/max over a dataset.
type DataPreprocessor struct {
	featureStats map[string][2]float64
}

// ComputeStats records the min and max of every feature in ds.
func (p *DataPreprocessor) ComputeStats(ds *Dataset) error {
	if ds == nil || ds.Len() == 0 {
		return errors.New("dataset is empty")
	}
	stats := make(map[string][2]float64, NumFeatures)
	for j, name := range FeatureNames {
		lo, hi := ds.Features[0][j], ds.Features[0][j]
		for _, row := range ds.Features[1:] {
			lo = math.Min(lo, row[j])
			hi = math.Max(hi, row[j])
		}
		stats[name] = [2]float64{lo, hi}
	}
	p.featureStats = stats
	return nil
}

// FeatureStats returns a copy of the [min, max] per feature name.
func (p *DataPreprocessor) FeatureStats() map[string][2]float64 {
	if p.featureStats == nil {
		return nil
	}
	out := make(map[string][2]float64, len(p.featureStats))
	for key, value := range p.featureStats {
		out[key] = value
	}
	return out
}
