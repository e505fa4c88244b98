package ml

import "fmt"

// LoadModel reads the artifact at path and returns the model its
// model_type names.
func LoadModel(path string) (Regressor, error) {
	art, err := readArtifact(path)
	if err != nil {
		return nil, err
	}
	switch art.ModelType {
	case ModelTypeLinearRegression:
		model := &LinearRegression{}
		if err := model.fromArtifact(art); err != nil {
			return nil, err
		}
		return model, nil
	default:
		return nil, fmt.Errorf("unsupported model type %q", art.ModelType)
	}
}
