package ml

// Regressor is a fitted model over the housing feature layout.
type Regressor interface {
	Fit(features [][NumFeatures]float64, labels []float64) error
	Predict(features [NumFeatures]float64) (float64, error)
	Save(path string) error
	Load(path string) error
}
