package service

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"housing/ml"
)

// ErrInvalidInput is matched by every request validation failure.
var ErrInvalidInput = errors.New("invalid input")

// Issue describes one rejected request field.
type Issue struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

// ValidationError is returned for requests that do not match HouseInput.
// errors.Is(err, ErrInvalidInput) holds for it.
type ValidationError struct {
	Issues []Issue
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		parts = append(parts, fmt.Sprintf("%s: %s", strings.Join(issue.Loc, "."), issue.Msg))
	}
	return "invalid input: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// Number accepts a JSON number or a decimal numeric string. Anything else,
// hex floats included, is kept as invalid and reported by Validate.
type Number struct {
	value   float64
	invalid bool
}

// NewNumber returns a valid Number holding v.
func NewNumber(v float64) *Number {
	return &Number{value: v}
}

// UnmarshalJSON never fails; unparseable input marks the Number invalid.
func (n *Number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	var text string
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &text); err != nil {
			n.invalid = true
			return nil
		}
		text = strings.TrimSpace(text)
	} else {
		text = string(data)
	}
	v, err := strconv.ParseFloat(text, 64)
	if err != nil || strings.Contains(strings.ToLower(text), "0x") {
		n.invalid = true
		return nil
	}
	n.value = v
	n.invalid = false
	return nil
}

// HouseInput is the body of a prediction request.
type HouseInput struct {
	MedInc     *Number `json:"MedInc"`
	HouseAge   *Number `json:"HouseAge"`
	AveRooms   *Number `json:"AveRooms"`
	AveBedrms  *Number `json:"AveBedrms"`
	Population *Number `json:"Population"`
	AveOccup   *Number `json:"AveOccup"`
	Latitude   *Number `json:"Latitude"`
	Longitude  *Number `json:"Longitude"`
}

// HouseInputFromVector builds a complete request from a feature vector.
func HouseInputFromVector(v ml.FeatureVector) HouseInput {
	return HouseInput{
		MedInc:     NewNumber(v.MedInc),
		HouseAge:   NewNumber(v.HouseAge),
		AveRooms:   NewNumber(v.AveRooms),
		AveBedrms:  NewNumber(v.AveBedrms),
		Population: NewNumber(v.Population),
		AveOccup:   NewNumber(v.AveOccup),
		Latitude:   NewNumber(v.Latitude),
		Longitude:  NewNumber(v.Longitude),
	}
}

func (in HouseInput) fields() [ml.NumFeatures]*Number {
	return [ml.NumFeatures]*Number{
		ml.MedInc:     in.MedInc,
		ml.HouseAge:   in.HouseAge,
		ml.AveRooms:   in.AveRooms,
		ml.AveBedrms:  in.AveBedrms,
		ml.Population: in.Population,
		ml.AveOccup:   in.AveOccup,
		ml.Latitude:   in.Latitude,
		ml.Longitude:  in.Longitude,
	}
}

// Validate returns a *ValidationError listing every missing or non-numeric field.
func (in HouseInput) Validate() error {
	var issues []Issue
	for i, field := range in.fields() {
		loc := []string{"body", ml.FeatureNames[i]}
		switch {
		case field == nil:
			issues = append(issues, Issue{Loc: loc, Msg: "Field required", Type: "missing"})
		case field.invalid:
			issues = append(issues, Issue{Loc: loc, Msg: "Input should be a valid number", Type: "float_parsing"})
		case math.IsNaN(field.value) || math.IsInf(field.value, 0):
			issues = append(issues, Issue{Loc: loc, Msg: "Input should be a finite number", Type: "finite_number"})
		}
	}
	if len(issues) > 0 {
		return &ValidationError{Issues: issues}
	}
	return nil
}

// FeatureVector validates the input and lays it out in model column order.
func (in HouseInput) FeatureVector() (ml.FeatureVector, error) {
	if err := in.Validate(); err != nil {
		return ml.FeatureVector{}, err
	}
	var values [ml.NumFeatures]float64
	for i, field := range in.fields() {
		values[i] = field.value
	}
	return ml.FeatureVectorFromValues(values), nil
}

// DecodeHouseInput reads one JSON object. Malformed JSON is a validation error.
func DecodeHouseInput(r io.Reader) (HouseInput, error) {
	var in HouseInput
	if err := json.NewDecoder(r).Decode(&in); err != nil {
		issue := Issue{Loc: []string{"body"}, Msg: "JSON decode error: " + err.Error(), Type: "json_invalid"}
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			issue.Msg = "Input should be a valid dictionary"
			issue.Type = "model_attributes_type"
		}
		return HouseInput{}, &ValidationError{Issues: []Issue{issue}}
	}
	return in, nil
}
