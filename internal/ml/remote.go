package ml

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"ames-pricer/internal/features"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
)

// RemoteRegressor calls a model server that already holds the fitted
// regressor. The request carries the scaled row in training order.
type RemoteRegressor struct {
	url  string
	rest *resty.Client
}

type remotePredictRequest struct {
	Features []float64 `json:"features"`
	Names    []string  `json:"names"`
}

type remotePredictResponse struct {
	Prediction *float64 `json:"prediction"`
	Error      string   `json:"error,omitempty"`
}

// NewRemoteRegressor builds a client for url and checks it answers a probe
// prediction.
func NewRemoteRegressor(url string, timeout time.Duration) (*RemoteRegressor, error) {
	if url == "" {
		return nil, errors.New("model URL is empty")
	}
	r := resty.New()
	if timeout > 0 {
		r.SetTimeout(timeout)
	} else {
		r.SetTimeout(5 * time.Second)
	}
	r.SetHeader("Content-Type", "application/json")

	m := &RemoteRegressor{url: url, rest: r}
	if _, err := m.Predict(context.Background(), make([]float64, features.Count)); err != nil {
		return nil, fmt.Errorf("model server probe failed: %w", err)
	}

	log.Info().Str("model_url", url).Msg("Remote model server reachable")
	return m, nil
}

// Predict implements Regressor.
func (m *RemoteRegressor) Predict(ctx context.Context, row []float64) (float64, error) {
	if len(row) != features.Count {
		return 0, &ShapeError{Want: features.Count, Got: len(row)}
	}

	result := &remotePredictResponse{}
	resp, err := m.rest.R().
		SetContext(ctx).
		SetBody(remotePredictRequest{Features: row, Names: features.FeatureOrder()}).
		SetResult(result).
		SetError(result).
		Post(m.url)
	if err != nil {
		return 0, fmt.Errorf("request failed: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		if result.Error != "" {
			return 0, fmt.Errorf("model server error: status %d, %s", resp.StatusCode(), result.Error)
		}
		return 0, fmt.Errorf("model server error: status %d, body: %s", resp.StatusCode(), resp.String())
	}
	if result.Error != "" {
		return 0, fmt.Errorf("model server error: %s", result.Error)
	}
	if result.Prediction == nil {
		return 0, errors.New("model server response has no prediction")
	}
	return *result.Prediction, nil
}
