package ml

import "errors"

// MeanSquaredError evaluates model over the given rows.
func MeanSquaredError(model Regressor, features [][NumFeatures]float64, labels []float64) (float64, error) {
	if len(features) == 0 {
		return 0, errors.New("no evaluation rows")
	}
	if len(features) != len(labels) {
		return 0, errors.New("features and labels size mismatch")
	}
	var sum float64
	for i, row := range features {
		pred, err := model.Predict(row)
		if err != nil {
			return 0, err
		}
		diff := pred - labels[i]
		sum += diff * diff
	}
	return sum / float64(len(features)), nil
}
