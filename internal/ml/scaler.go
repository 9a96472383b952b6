package ml

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"slices"

	"ames-pricer/internal/features"
)

// Scaler kinds understood by the native loader. They mirror the fitted
// attributes of scikit-learn's StandardScaler and MinMaxScaler.
const (
	ScalerStandard = "standard"
	ScalerMinMax   = "minmax"
)

// ScalerParams is the JSON export of a fitted scaler.
//
//	standard: out = (x - mean) / scale
//	minmax:   out = x*scale + min
type ScalerParams struct {
	Kind           string    `json:"kind"`
	Mean           []float64 `json:"mean,omitempty"`
	Scale          []float64 `json:"scale"`
	Min            []float64 `json:"min,omitempty"`
	FeatureNamesIn []string  `json:"feature_names_in,omitempty"`
}

// LinearScaler applies an affine per-feature transform.
type LinearScaler struct {
	kind   string
	offset []float64
	scale  []float64
}

// LoadScalerJSON reads and validates a scaler export.
func LoadScalerJSON(path string) (*LinearScaler, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scaler file: %w", err)
	}

	var params ScalerParams
	if err := json.Unmarshal(data, &params); err != nil {
		return nil, fmt.Errorf("failed to parse scaler file: %w", err)
	}
	return NewLinearScaler(params)
}

// NewLinearScaler validates params against the feature contract.
func NewLinearScaler(params ScalerParams) (*LinearScaler, error) {
	if len(params.FeatureNamesIn) > 0 && !slices.Equal(params.FeatureNamesIn, features.FeatureOrder()) {
		return nil, fmt.Errorf("scaler fitted on features %v, expected %v", params.FeatureNamesIn, features.FeatureOrder())
	}
	if len(params.Scale) != features.Count {
		return nil, fmt.Errorf("scaler has %d scale values, expected %d", len(params.Scale), features.Count)
	}

	var offset []float64
	switch params.Kind {
	case ScalerStandard, "":
		offset = params.Mean
		if offset == nil {
			// with_mean=False exports no mean
			offset = make([]float64, features.Count)
		}
		for i, s := range params.Scale {
			if s == 0 {
				return nil, fmt.Errorf("scale for %s is zero", features.FeatureOrder()[i])
			}
		}
	case ScalerMinMax:
		offset = params.Min
	default:
		return nil, fmt.Errorf("unsupported scaler kind %q", params.Kind)
	}
	if len(offset) != features.Count {
		return nil, fmt.Errorf("scaler has %d offset values, expected %d", len(offset), features.Count)
	}
	for i := range offset {
		if !isFinite(offset[i]) || !isFinite(params.Scale[i]) {
			return nil, fmt.Errorf("scaler parameter for %s is not finite", features.FeatureOrder()[i])
		}
	}

	kind := params.Kind
	if kind == "" {
		kind = ScalerStandard
	}
	return &LinearScaler{kind: kind, offset: slices.Clone(offset), scale: slices.Clone(params.Scale)}, nil
}

// Kind returns the scaler kind.
func (s *LinearScaler) Kind() string { return s.kind }

// Transform implements Scaler.
func (s *LinearScaler) Transform(_ context.Context, row []float64) ([]float64, error) {
	if len(row) != len(s.scale) {
		return nil, &ShapeError{Want: len(s.scale), Got: len(row)}
	}
	out := make([]float64, len(row))
	for i, x := range row {
		if s.kind == ScalerMinMax {
			out[i] = x*s.scale[i] + s.offset[i]
		} else {
			out[i] = (x - s.offset[i]) / s.scale[i]
		}
	}
	return out, nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
