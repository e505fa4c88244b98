package ml

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Column indexes of the feature layout the model is fitted on.
const (
	MedInc = iota
	HouseAge
	AveRooms
	AveBedrms
	Population
	AveOccup
	Latitude
	Longitude

	NumFeatures
)

// LabelName is the target column of the dataset.
const LabelName = "MedHouseVal"

// FeatureNames are the request and CSV column names, in model column order.
var FeatureNames = [NumFeatures]string{
	MedInc:     "MedInc",
	HouseAge:   "HouseAge",
	AveRooms:   "AveRooms",
	AveBedrms:  "AveBedrms",
	Population: "Population",
	AveOccup:   "AveOccup",
	Latitude:   "Latitude",
	Longitude:  "Longitude",
}

var FeatureDescriptions = [NumFeatures]string{
	MedInc:     "median income in block group",
	HouseAge:   "median house age in block group",
	AveRooms:   "average number of rooms per household",
	AveBedrms:  "average number of bedrooms per household",
	Population: "block group population",
	AveOccup:   "average number of household members",
	Latitude:   "block group latitude",
	Longitude:  "block group longitude",
}

var FeatureExamples = [NumFeatures]float64{
	MedInc:     3.5,
	HouseAge:   25.0,
	AveRooms:   5.0,
	AveBedrms:  1.0,
	Population: 800.0,
	AveOccup:   3.0,
	Latitude:   34.0,
	Longitude:  -118.0,
}

// FeatureVector is one row of model input.
type FeatureVector struct {
	MedInc     float64 `json:"MedInc"`
	HouseAge   float64 `json:"HouseAge"`
	AveRooms   float64 `json:"AveRooms"`
	AveBedrms  float64 `json:"AveBedrms"`
	Population float64 `json:"Population"`
	AveOccup   float64 `json:"AveOccup"`
	Latitude   float64 `json:"Latitude"`
	Longitude  float64 `json:"Longitude"`
}

// Values lays the vector out in model column order.
func (v FeatureVector) Values() [NumFeatures]float64 {
	return [NumFeatures]float64{
		MedInc:     v.MedInc,
		HouseAge:   v.HouseAge,
		AveRooms:   v.AveRooms,
		AveBedrms:  v.AveBedrms,
		Population: v.Population,
		AveOccup:   v.AveOccup,
		Latitude:   v.Latitude,
		Longitude:  v.Longitude,
	}
}

// FeatureVectorFromValues is the inverse of FeatureVector.Values.
func FeatureVectorFromValues(values [NumFeatures]float64) FeatureVector {
	return FeatureVector{
		MedInc:     values[MedInc],
		HouseAge:   values[HouseAge],
		AveRooms:   values[AveRooms],
		AveBedrms:  values[AveBedrms],
		Population: values[Population],
		AveOccup:   values[AveOccup],
		Latitude:   values[Latitude],
		Longitude:  values[Longitude],
	}
}

// SchemaHash identifies the feature layout. It is stored in every artifact
// and compared on load.
func SchemaHash() string {
	sum := sha256.Sum256([]byte(strings.Join(FeatureNames[:], ",")))
	return hex.EncodeToString(sum[:])
}
