// Package features defines the fixed, ordered set of house attributes the
// price model was trained on, and turns submitted form values into the
// feature vector the scaler and model expect.
//
// The order of the table is part of the artifact contract: neither the scaler
// nor the booster matches columns by name, so every vector handed downstream
// is built by walking Features() from first to last.
package features

import (
	"fmt"
	"math"
)

// Feature keys, in training order.
const (
	GrLivArea   = "GrLivArea"
	FullBath    = "FullBath"
	TotalBsmtSF = "TotalBsmtSF"
	GarageCars  = "GarageCars"
	YearBuilt   = "YearBuilt"
	OverallQual = "OverallQual"
)

// FeatureSpec describes one bounded numeric input.
type FeatureSpec struct {
	Key   string  `json:"key"`
	Label string  `json:"label"`
	Unit  string  `json:"unit"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Step  float64 `json:"step"`
	Help  string  `json:"help"`
}

var table = [...]FeatureSpec{
	{Key: GrLivArea, Label: "Above Ground Living Area", Unit: "sq ft", Min: 300, Max: 6000, Step: 50, Help: "Finished living area above ground"},
	{Key: FullBath, Label: "Full Bathrooms", Unit: "count", Min: 0, Max: 5, Step: 1, Help: "Bathrooms with tub or shower"},
	{Key: TotalBsmtSF, Label: "Basement Area", Unit: "sq ft", Min: 0, Max: 4000, Step: 50, Help: "Total basement square footage"},
	{Key: GarageCars, Label: "Garage Capacity", Unit: "cars", Min: 0, Max: 5, Step: 1, Help: "Number of cars the garage can hold"},
	{Key: YearBuilt, Label: "Year Built", Unit: "year", Min: 1870, Max: 2025, Step: 1, Help: "Construction year"},
	{Key: OverallQual, Label: "Overall Quality", Unit: "rating (1–10)", Min: 1, Max: 10, Step: 1, Help: "Material and finish quality"},
}

// Count is the length of every feature vector.
const Count = len(table)

// Features returns a copy of the ordered feature table.
func Features() []FeatureSpec {
	out := make([]FeatureSpec, len(table))
	copy(out, table[:])
	return out
}

// FeatureOrder returns the feature keys in training order.
func FeatureOrder() []string {
	keys := make([]string, len(table))
	for i, spec := range table {
		keys[i] = spec.Key
	}
	return keys
}

// Lookup finds the feature for key.
func Lookup(key string) (FeatureSpec, bool) {
	for _, spec := range table {
		if spec.Key == key {
			return spec, true
		}
	}
	return FeatureSpec{}, false
}

// DisplayLabel is the label shown next to the input, e.g. "Year Built (year)".
func (s FeatureSpec) DisplayLabel() string {
	return fmt.Sprintf("%s (%s)", s.Label, s.Unit)
}

// Clamp snaps v onto the feature's step grid (anchored at Min) and bounds it to
// [Min, Max]. NaN maps to Min.
func (s FeatureSpec) Clamp(v float64) float64 {
	if math.IsNaN(v) {
		return s.Min
	}
	if s.Step > 0 && !math.IsInf(v, 0) {
		v = s.Min + math.Round((v-s.Min)/s.Step)*s.Step
	}
	if v < s.Min {
		return s.Min
	}
	if v > s.Max {
		return s.Max
	}
	return v
}

// Contains reports whether v lies inside the feature's bounds.
func (s FeatureSpec) Contains(v float64) bool {
	return v >= s.Min && v <= s.Max
}
