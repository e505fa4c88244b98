package ml

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// ModelTypeLinearRegression is the artifact model_type of LinearRegression.
const ModelTypeLinearRegression = "linear_regression"

const machineEpsilon = 0x1p-52

// LinearRegression is an ordinary least squares model with intercept.
type LinearRegression struct {
	coefficients [NumFeatures]float64
	intercept    float64
	fitted       bool

	// Metadata travels with the artifact. It is filled by the trainer
	// before Save and by Load.
	Metadata ArtifactMetadata
}

// Fit centres features and labels, solves the centred system by SVD least
// squares and recovers the intercept from the means.
func (lr *LinearRegression) Fit(features [][NumFeatures]float64, labels []float64) error {
	n := len(features)
	if n == 0 || len(labels) == 0 {
		return errors.New("features or labels empty")
	}
	if n != len(labels) {
		return errors.New("features and labels size mismatch")
	}
	if n < NumFeatures+1 {
		return fmt.Errorf("need at least %d rows to fit, got %d", NumFeatures+1, n)
	}

	var xMean [NumFeatures]float64
	for _, row := range features {
		floats.Add(xMean[:], row[:])
	}
	floats.Scale(1/float64(n), xMean[:])
	yMean := floats.Sum(labels) / float64(n)

	data := make([]float64, 0, n*NumFeatures)
	centredY := make([]float64, n)
	for i, row := range features {
		for j := range row {
			data = append(data, row[j]-xMean[j])
		}
		centredY[i] = labels[i] - yMean
	}
	x := mat.NewDense(n, NumFeatures, data)
	y := mat.NewVecDense(n, centredY)

	var coef [NumFeatures]float64
	var svd mat.SVD
	if !svd.Factorize(x, mat.SVDThin) {
		return errors.New("singular value decomposition failed")
	}
	// Singular values below the cutoff are treated as zero, giving the
	// minimum-norm solution when columns are constant or collinear.
	if rank := svd.Rank(float64(n) * machineEpsilon); rank > 0 {
		var beta mat.VecDense
		svd.SolveVecTo(&beta, y, rank)
		for j := range coef {
			coef[j] = beta.AtVec(j)
		}
	}
	if floats.HasNaN(coef[:]) {
		return errors.New("least squares produced NaN coefficients")
	}
	for _, c := range coef {
		if math.IsInf(c, 0) {
			return errors.New("least squares produced infinite coefficients")
		}
	}

	lr.coefficients = coef
	lr.intercept = yMean - floats.Dot(coef[:], xMean[:])
	lr.fitted = true
	return nil
}

// Predict returns the intercept plus the weighted feature sum.
func (lr *LinearRegression) Predict(features [NumFeatures]float64) (float64, error) {
	if !lr.fitted {
		return 0, errors.New("model not trained")
	}
	return lr.intercept + floats.Dot(lr.coefficients[:], features[:]), nil
}

func (lr *LinearRegression) Coefficients() [NumFeatures]float64 {
	return lr.coefficients
}

func (lr *LinearRegression) Intercept() float64 {
	return lr.intercept
}

// Save writes the model and its metadata as a JSON artifact.
func (lr *LinearRegression) Save(path string) error {
	if !lr.fitted {
		return errors.New("model not trained")
	}
	art := newArtifact(ModelTypeLinearRegression, lr.coefficients, lr.intercept, lr.Metadata)
	return writeArtifact(path, art)
}

// Load replaces the model with the one stored at path.
func (lr *LinearRegression) Load(path string) error {
	art, err := readArtifact(path)
	if err != nil {
		return err
	}
	return lr.fromArtifact(art)
}

func (lr *LinearRegression) fromArtifact(art *artifact) error {
	if art.ModelType != ModelTypeLinearRegression {
		return fmt.Errorf("unexpected model type %q", art.ModelType)
	}
	if len(art.Coefficients) != NumFeatures {
		return fmt.Errorf("%w: %d coefficients for %d features", ErrSchemaMismatch, len(art.Coefficients), NumFeatures)
	}
	copy(lr.coefficients[:], art.Coefficients)
	lr.intercept = art.Intercept
	lr.Metadata = art.Metadata
	lr.fitted = true
	return nil
}
