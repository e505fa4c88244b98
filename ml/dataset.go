package ml

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

const (
	DefaultSyntheticRows = 1000
	DefaultSeed          = 42
)

// Dataset holds training examples in model column order.
type Dataset struct {
	Features [][NumFeatures]float64
	Labels   []float64
	// Dropped counts rows skipped for missing values.
	Dropped int
}

func (d *Dataset) Len() int {
	return len(d.Labels)
}

// DatasetSource produces the training examples. The concrete source is
// chosen once from configuration.
type DatasetSource interface {
	Load(ctx context.Context) (*Dataset, error)
	Name() string
}

// FileSource reads a CSV file whose header names the feature and label columns.
type FileSource struct {
	Path string
}

func (s FileSource) Name() string {
	return "file:" + s.Path
}

// Load reads the CSV file. A missing file is ErrDatasetUnavailable.
func (s FileSource) Load(ctx context.Context) (*Dataset, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s not found", ErrDatasetUnavailable, s.Path)
		}
		return nil, fmt.Errorf("%w: %v", ErrDatasetUnavailable, err)
	}
	defer f.Close()
	return ReadCSV(ctx, f)
}

// ReadCSV parses a housing CSV. Rows with a missing cell are dropped.
func ReadCSV(ctx context.Context, r io.Reader) (*Dataset, error) {
	utf8Reader := transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
	reader := csv.NewReader(utf8Reader)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty file", ErrDatasetUnavailable)
		}
		return nil, fmt.Errorf("%w: read header: %v", ErrDatasetUnavailable, err)
	}
	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.TrimSpace(name)] = i
	}

	var featureCols [NumFeatures]int
	var missing []string
	for i, name := range FeatureNames {
		idx, ok := columns[name]
		if !ok {
			missing = append(missing, name)
		}
		featureCols[i] = idx
	}
	labelCol, ok := columns[LabelName]
	if !ok {
		missing = append(missing, LabelName)
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing columns %s", ErrDatasetUnavailable, strings.Join(missing, ", "))
	}

	ds := &Dataset{}
	line := 1
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrDatasetUnavailable, line, err)
		}

		var row [NumFeatures]float64
		complete := true
		for i, col := range featureCols {
			v, ok, err := parseCell(record, col)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d column %s: %v", ErrDatasetUnavailable, line, FeatureNames[i], err)
			}
			if !ok {
				complete = false
				break
			}
			row[i] = v
		}
		if !complete {
			ds.Dropped++
			continue
		}
		label, ok, err := parseCell(record, labelCol)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d column %s: %v", ErrDatasetUnavailable, line, LabelName, err)
		}
		if !ok {
			ds.Dropped++
			continue
		}
		ds.Features = append(ds.Features, row)
		ds.Labels = append(ds.Labels, label)
	}

	if ds.Len() == 0 {
		return nil, fmt.Errorf("%w: no complete rows", ErrDatasetUnavailable)
	}
	return ds, nil
}

// parseCell reports ok=false for a missing value.
func parseCell(record []string, col int) (float64, bool, error) {
	if col >= len(record) {
		return 0, false, nil
	}
	cell := strings.TrimSpace(record[col])
	switch strings.ToLower(cell) {
	case "", "na", "n/a", "nan", "null", "none":
		return 0, false, nil
	}
	v, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return 0, false, err
	}
	return v, true, nil
}

// SyntheticSource generates a deterministic dataset with the same schema as
// the real file.
type SyntheticSource struct {
	Rows int
	Seed int64
}

func (s SyntheticSource) Name() string {
	return fmt.Sprintf("synthetic:rows=%d,seed=%d", s.Rows, s.Seed)
}

type featureRange struct {
	min, max float64
}

var syntheticRanges = [NumFeatures]featureRange{
	MedInc:     {0.5, 15},
	HouseAge:   {1, 52},
	AveRooms:   {2, 10},
	AveBedrms:  {0.8, 1.5},
	Population: {100, 5000},
	AveOccup:   {1, 6},
	Latitude:   {32.5, 42},
	Longitude:  {-124.3, -114.3},
}

var syntheticWeights = [NumFeatures]float64{
	MedInc:     0.44,
	HouseAge:   0.01,
	AveRooms:   -0.1,
	AveBedrms:  0.65,
	Population: 0.00001,
	AveOccup:   -0.004,
	Latitude:   -0.42,
	Longitude:  -0.43,
}

const (
	syntheticLabelMin = 0.15
	syntheticLabelMax = 5.0
	syntheticNoise    = 0.3
)

// Load generates s.Rows rows from s.Seed with labels scaled into the real label range.
func (s SyntheticSource) Load(ctx context.Context) (*Dataset, error) {
	if s.Rows <= 0 {
		return nil, fmt.Errorf("%w: synthetic row count must be positive, got %d", ErrDatasetUnavailable, s.Rows)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rnd := rand.New(rand.NewSource(s.Seed))
	ds := &Dataset{
		Features: make([][NumFeatures]float64, s.Rows),
		Labels:   make([]float64, s.Rows),
	}
	for i := range ds.Features {
		var raw float64
		for j, fr := range syntheticRanges {
			v := fr.min + rnd.Float64()*(fr.max-fr.min)
			ds.Features[i][j] = v
			raw += syntheticWeights[j] * v
		}
		ds.Labels[i] = raw + rnd.NormFloat64()*syntheticNoise
	}

	lo, hi := ds.Labels[0], ds.Labels[0]
	for _, y := range ds.Labels {
		lo = min(lo, y)
		hi = max(hi, y)
	}
	for i, y := range ds.Labels {
		if hi == lo {
			ds.Labels[i] = (syntheticLabelMin + syntheticLabelMax) / 2
			continue
		}
		ds.Labels[i] = syntheticLabelMin + (y-lo)/(hi-lo)*(syntheticLabelMax-syntheticLabelMin)
	}
	return ds, nil
}
