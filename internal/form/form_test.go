package form

import (
	"bytes"
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"ames-pricer/internal/features"
	"ames-pricer/internal/ml"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testPage = Page{
	Title:    "Ames Housing Price Prediction",
	Caption:  "XGBoost-based house price estimation",
	Footnote: "Prediction based on historical Ames Housing data",
}

func newEstimator(t *testing.T, rawLog float64, err error) *ml.Estimator {
	t.Helper()
	est, e := ml.NewEstimator(ml.IdentityScaler{}, ml.RegressorFunc(func([]float64) (float64, error) {
		return rawLog, err
	}), ml.DefaultBounds())
	require.NoError(t, e)
	return est
}

func newController(t *testing.T, est *ml.Estimator) *Controller {
	t.Helper()
	c, err := NewController(est, testPage)
	require.NoError(t, err)
	return c
}

func scenarioForm() url.Values {
	return url.Values{
		"GrLivArea":   {"1500"},
		"FullBath":    {"2"},
		"TotalBsmtSF": {"800"},
		"GarageCars":  {"2"},
		"YearBuilt":   {"2005"},
		"OverallQual": {"6"},
	}
}

func postForm(h http.Handler, values url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestController_Initial(t *testing.T) {
	c := newController(t, newEstimator(t, 12, nil))

	s := c.Initial()
	assert.False(t, s.Disabled)
	assert.Nil(t, s.Result)
	assert.NoError(t, s.Err)
	if diff := cmp.Diff(features.Defaults(), s.Input); diff != "" {
		t.Errorf("initial input mismatch (-want +got):\n%s", diff)
	}
}

func TestController_OnAction(t *testing.T) {
	c := newController(t, newEstimator(t, 12, nil))

	in := features.ParseInput(scenarioForm())
	before := NewState(in)
	after := c.OnAction(context.Background(), before)

	require.NoError(t, after.Err)
	want := &Result{
		Price:     math.Expm1(12),
		Formatted: ml.FormatUSD(math.Expm1(12)),
	}
	if diff := cmp.Diff(want, after.Result); diff != "" {
		t.Errorf("result mismatch (-want +got):\n%s", diff)
	}
	assert.Nil(t, before.Result, "OnAction must not modify its input state")
	assert.Equal(t, in, after.Input)
}

func TestController_OnActionClamped(t *testing.T) {
	testCases := []struct {
		name   string
		rawLog float64
		want   Result
	}{
		{"below range", 3, Result{Price: 50000, Formatted: "$ 50,000", LogClamped: true, PriceClamped: true}},
		{"above range", 20, Result{Price: 1000000, Formatted: "$ 1,000,000", LogClamped: true, PriceClamped: true}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := newController(t, newEstimator(t, tc.rawLog, nil))
			s := c.OnAction(context.Background(), NewState(features.ParseInput(scenarioForm())))
			require.NoError(t, s.Err)
			if diff := cmp.Diff(&tc.want, s.Result); diff != "" {
				t.Errorf("result mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestController_OnActionDisabled(t *testing.T) {
	c := newController(t, nil)

	s := c.OnAction(context.Background(), c.Initial())
	assert.True(t, s.Disabled)
	assert.ErrorIs(t, s.Err, ErrUnavailable)
	assert.Nil(t, s.Result)
}

func TestStatusFor(t *testing.T) {
	testCases := []struct {
		name string
		err  error
		want int
	}{
		{"success", nil, http.StatusOK},
		{"incomplete", &features.IncompleteInputError{Missing: []string{"FullBath"}}, http.StatusUnprocessableEntity},
		{"unavailable", ErrUnavailable, http.StatusServiceUnavailable},
		{"transform", &ml.TransformError{Err: errors.New("x")}, http.StatusInternalServerError},
		{"prediction", &ml.PredictionError{Err: errors.New("x")}, http.StatusInternalServerError},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, StatusFor(tc.err))
		})
	}
}

func TestUserMessage(t *testing.T) {
	assert.Empty(t, UserMessage(nil))
	assert.Equal(t,
		"Please provide a value for: Full Bathrooms (count), Year Built (year)",
		UserMessage(&features.IncompleteInputError{Missing: []string{"FullBath", "YearBuilt"}}))
	assert.NotContains(t, UserMessage(&ml.PredictionError{Err: errors.New("/srv/model.pkl: corrupt")}), "/srv")
}

func TestRender_Fields(t *testing.T) {
	c := newController(t, newEstimator(t, 12, nil))

	var buf bytes.Buffer
	require.NoError(t, c.Render(&buf, c.Initial()))
	page := buf.String()

	assert.Contains(t, page, "<title>Ames Housing Price Prediction</title>")
	assert.Contains(t, page, "XGBoost-based house price estimation")
	assert.Contains(t, page, "House Details")
	assert.Contains(t, page, "Predict Price")
	assert.Contains(t, page, `name="GrLivArea" min="300" max="6000" step="50" value="300"`)
	assert.Contains(t, page, `name="YearBuilt" min="1870" max="2025" step="1" value="1870"`)
	assert.Contains(t, page, "Above Ground Living Area (sq ft)")
	assert.Contains(t, page, "Overall Quality (rating (1–10))")
	assert.NotContains(t, page, "Estimated Sale Price")

	// Inputs appear in training order.
	last := -1
	for _, key := range features.FeatureOrder() {
		idx := strings.Index(page, `name="`+key+`"`)
		require.NotEqual(t, -1, idx, key)
		assert.Greater(t, idx, last, "field %s out of order", key)
		last = idx
	}
}

func TestRender_FootnoteSanitised(t *testing.T) {
	c, err := NewController(newEstimator(t, 12, nil), Page{
		Title:    "Ames",
		Footnote: `Based on <a href="https://example.com/ames">Ames data</a><script>alert(1)</script>`,
	})
	require.NoError(t, err)

	s := c.OnAction(context.Background(), NewState(features.ParseInput(scenarioForm())))
	var buf bytes.Buffer
	require.NoError(t, c.Render(&buf, s))
	page := buf.String()

	assert.Contains(t, page, `href="https://example.com/ames"`)
	assert.NotContains(t, page, "<script>alert(1)</script>")
}

func TestServeHTTP_Get(t *testing.T) {
	c := newController(t, newEstimator(t, 12, nil))

	rec := httptest.NewRecorder()
	c.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.NotContains(t, rec.Body.String(), `<button type="submit" disabled>`)
}

func TestServeHTTP_PostScenario(t *testing.T) {
	c := newController(t, newEstimator(t, 12, nil))

	rec := postForm(c, scenarioForm())
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "Estimated Sale Price")
	assert.Contains(t, body, ml.FormatUSD(math.Expm1(12)))
	assert.Contains(t, body, "Prediction based on historical Ames Housing data")
	assert.Contains(t, body, `name="GrLivArea" min="300" max="6000" step="50" value="1500"`)
}

func TestServeHTTP_PostClampsOutOfRange(t *testing.T) {
	var seen []float64
	est, err := ml.NewEstimator(ml.IdentityScaler{}, ml.RegressorFunc(func(row []float64) (float64, error) {
		seen = append([]float64(nil), row...)
		return 12, nil
	}), ml.DefaultBounds())
	require.NoError(t, err)
	c := newController(t, est)

	values := scenarioForm()
	values.Set("GrLivArea", "99999")
	values.Set("OverallQual", "0")
	rec := postForm(c, values)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []float64{6000, 2, 800, 2, 2005, 1}, seen)
}

func TestServeHTTP_PostErrors(t *testing.T) {
	incomplete := scenarioForm()
	incomplete.Del("YearBuilt")
	incomplete.Set("FullBath", "")

	testCases := []struct {
		name       string
		est        *ml.Estimator
		values     url.Values
		wantStatus int
		wantText   string
	}{
		{"incomplete input", nil, incomplete, http.StatusUnprocessableEntity, "Please provide a value for: Full Bathrooms (count), Year Built (year)"},
		{"artifacts not loaded", nil, scenarioForm(), http.StatusServiceUnavailable, "Predictions are unavailable"},
		{"model failure", newEstimator(t, 0, errors.New("boom")), scenarioForm(), http.StatusInternalServerError, "Model prediction failed"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			est := tc.est
			if est == nil && tc.wantStatus != http.StatusServiceUnavailable {
				est = newEstimator(t, 12, nil)
			}
			c := newController(t, est)

			rec := postForm(c, tc.values)
			assert.Equal(t, tc.wantStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tc.wantText)
			assert.NotContains(t, rec.Body.String(), "Estimated Sale Price")
		})
	}
}

func TestServeHTTP_DisabledPage(t *testing.T) {
	c := newController(t, nil)

	rec := httptest.NewRecorder()
	c.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Predictions are unavailable: the model artifacts could not be loaded")
	assert.Contains(t, body, `<button type="submit" disabled>`)
}

func TestServeHTTP_Routing(t *testing.T) {
	c := newController(t, newEstimator(t, 12, nil))

	rec := httptest.NewRecorder()
	c.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	c.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
