package features

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
)

// IncompleteInputError reports feature keys that have no value.
type IncompleteInputError struct {
	Missing []string
}

func (e *IncompleteInputError) Error() string {
	return fmt.Sprintf("incomplete input: missing %s", strings.Join(e.Missing, ", "))
}

// UserInput maps feature keys to values. It is rebuilt on every request.
type UserInput map[string]float64

// Defaults returns an input with every feature at its minimum.
func Defaults() UserInput {
	in := make(UserInput, len(table))
	for _, spec := range table {
		in[spec.Key] = spec.Min
	}
	return in
}

// Set stores v for key after clamping it to the feature's bounds and step.
// Unknown keys are rejected.
func (in UserInput) Set(key string, v float64) error {
	spec, ok := Lookup(key)
	if !ok {
		return fmt.Errorf("unknown feature %q", key)
	}
	in[key] = spec.Clamp(v)
	return nil
}

// Value returns the stored value for key and whether it is set.
func (in UserInput) Value(key string) (float64, bool) {
	v, ok := in[key]
	return v, ok
}

// Vector assembles the feature vector in training order. Every missing key is
// listed in the returned *IncompleteInputError. Values written to the map
// directly, bypassing Set, are clamped if they fall outside their bounds.
func (in UserInput) Vector() ([]float64, error) {
	row := make([]float64, 0, len(table))
	var missing []string
	for _, spec := range table {
		v, ok := in[spec.Key]
		if !ok {
			missing = append(missing, spec.Key)
			continue
		}
		if !spec.Contains(v) {
			v = spec.Clamp(v)
		}
		row = append(row, v)
	}
	if len(missing) > 0 {
		return nil, &IncompleteInputError{Missing: missing}
	}
	return row, nil
}

// Clone returns an independent copy.
func (in UserInput) Clone() UserInput {
	out := make(UserInput, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// ParseInput reads one value per feature from submitted form values. Values
// are clamped to their bounds; blank, unparseable or non-finite fields stay
// unset so that Vector reports them.
func ParseInput(values url.Values) UserInput {
	in := make(UserInput, len(table))
	for _, spec := range table {
		raw := strings.TrimSpace(values.Get(spec.Key))
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		in[spec.Key] = spec.Clamp(v)
	}
	return in
}

// FromMap builds an input from decoded JSON values, clamping each one.
// Unknown keys are an error; missing keys stay unset.
func FromMap(values map[string]float64) (UserInput, error) {
	in := make(UserInput, len(values))
	for key, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		if err := in.Set(key, v); err != nil {
			return nil, err
		}
	}
	return in, nil
}
