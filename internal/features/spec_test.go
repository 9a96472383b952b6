package features

import (
	"errors"
	"math"
	"net/url"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeatureOrder_MatchesTrainingOrder(t *testing.T) {
	want := []string{"GrLivArea", "FullBath", "TotalBsmtSF", "GarageCars", "YearBuilt", "OverallQual"}
	if diff := cmp.Diff(want, FeatureOrder()); diff != "" {
		t.Fatalf("feature order mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, len(want), Count)
}

func TestFeatures_Bounds(t *testing.T) {
	testCases := []struct {
		key            string
		min, max, step float64
		unit           string
	}{
		{GrLivArea, 300, 6000, 50, "sq ft"},
		{FullBath, 0, 5, 1, "count"},
		{TotalBsmtSF, 0, 4000, 50, "sq ft"},
		{GarageCars, 0, 5, 1, "cars"},
		{YearBuilt, 1870, 2025, 1, "year"},
		{OverallQual, 1, 10, 1, "rating (1–10)"},
	}

	for _, tc := range testCases {
		t.Run(tc.key, func(t *testing.T) {
			spec, ok := Lookup(tc.key)
			require.True(t, ok)
			assert.Equal(t, tc.min, spec.Min)
			assert.Equal(t, tc.max, spec.Max)
			assert.Equal(t, tc.step, spec.Step)
			assert.Equal(t, tc.unit, spec.Unit)
			assert.NotEmpty(t, spec.Help)
		})
	}
}

func TestFeatures_ReturnsCopy(t *testing.T) {
	specs := Features()
	specs[0].Min = -1

	spec, _ := Lookup(GrLivArea)
	assert.Equal(t, 300.0, spec.Min)
}

func TestFeatureSpec_Clamp(t *testing.T) {
	area, _ := Lookup(GrLivArea)
	year, _ := Lookup(YearBuilt)

	testCases := []struct {
		name string
		spec FeatureSpec
		in   float64
		want float64
	}{
		{"in range on grid", area, 1500, 1500},
		{"snaps down", area, 1520, 1500},
		{"snaps up", area, 1530, 1550},
		{"below min", area, 10, 300},
		{"above max", area, 99999, 6000},
		{"negative", area, -400, 300},
		{"NaN", area, math.NaN(), 300},
		{"positive infinity", area, math.Inf(1), 6000},
		{"negative infinity", area, math.Inf(-1), 300},
		{"year fractional", year, 2004.6, 2005},
		{"year max", year, 2025, 2025},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := tc.spec.Clamp(tc.in)
			assert.Equal(t, tc.want, got)
			assert.True(t, tc.spec.Contains(got))
		})
	}
}

func TestFeatureSpec_DisplayLabel(t *testing.T) {
	spec, _ := Lookup(GarageCars)
	assert.Equal(t, "Garage Capacity (cars)", spec.DisplayLabel())
}

func TestUserInput_VectorPreservesOrder(t *testing.T) {
	in := UserInput{
		OverallQual: 6,
		YearBuilt:   2005,
		GarageCars:  2,
		TotalBsmtSF: 800,
		FullBath:    2,
		GrLivArea:   1500,
	}

	row, err := in.Vector()
	require.NoError(t, err)
	assert.Equal(t, []float64{1500, 2, 800, 2, 2005, 6}, row)
}

func TestUserInput_VectorIncomplete(t *testing.T) {
	in := Defaults()
	delete(in, FullBath)
	delete(in, OverallQual)

	_, err := in.Vector()
	require.Error(t, err)

	var incomplete *IncompleteInputError
	require.True(t, errors.As(err, &incomplete))
	assert.Equal(t, []string{FullBath, OverallQual}, incomplete.Missing)
	assert.Contains(t, err.Error(), "FullBath, OverallQual")
}

func TestUserInput_VectorClampsOutOfRange(t *testing.T) {
	in := UserInput{
		GrLivArea:   99999,
		FullBath:    2,
		TotalBsmtSF: -5,
		GarageCars:  2,
		YearBuilt:   2004.5,
		OverallQual: math.NaN(),
	}

	row, err := in.Vector()
	require.NoError(t, err)
	// In-range values pass through untouched, even off the step grid.
	assert.Equal(t, []float64{6000, 2, 0, 2, 2004.5, 1}, row)
}

func TestFeatureSpec_Contains(t *testing.T) {
	qual, _ := Lookup(OverallQual)

	assert.True(t, qual.Contains(1))
	assert.True(t, qual.Contains(10))
	assert.True(t, qual.Contains(5.5))
	assert.False(t, qual.Contains(0))
	assert.False(t, qual.Contains(11))
	assert.False(t, qual.Contains(math.NaN()))
}

func TestDefaults_AllAtMinimum(t *testing.T) {
	row, err := Defaults().Vector()
	require.NoError(t, err)
	assert.Equal(t, []float64{300, 0, 0, 0, 1870, 1}, row)
}

func TestUserInput_Set(t *testing.T) {
	in := UserInput{}
	require.NoError(t, in.Set(GarageCars, 9))
	v, ok := in.Value(GarageCars)
	assert.True(t, ok)
	assert.Equal(t, 5.0, v)

	assert.Error(t, in.Set("LotArea", 1))
}

func TestParseInput(t *testing.T) {
	values := url.Values{
		GrLivArea:   {"1500"},
		FullBath:    {" 2 "},
		TotalBsmtSF: {"99999"},
		GarageCars:  {"two"},
		YearBuilt:   {""},
		OverallQual: {"NaN"},
	}

	in := ParseInput(values)
	want := UserInput{GrLivArea: 1500, FullBath: 2, TotalBsmtSF: 4000}
	if diff := cmp.Diff(want, in); diff != "" {
		t.Fatalf("parsed input mismatch (-want +got):\n%s", diff)
	}

	_, err := in.Vector()
	var incomplete *IncompleteInputError
	require.True(t, errors.As(err, &incomplete))
	assert.Equal(t, []string{GarageCars, YearBuilt, OverallQual}, incomplete.Missing)
}

func TestFromMap(t *testing.T) {
	in, err := FromMap(map[string]float64{GrLivArea: 100, YearBuilt: 1999})
	require.NoError(t, err)
	assert.Equal(t, UserInput{GrLivArea: 300, YearBuilt: 1999}, in)

	_, err = FromMap(map[string]float64{"PoolArea": 10})
	assert.Error(t, err)
}

func TestUserInput_Clone(t *testing.T) {
	in := Defaults()
	clone := in.Clone()
	clone[GrLivArea] = 6000
	assert.Equal(t, 300.0, in[GrLivArea])
}
