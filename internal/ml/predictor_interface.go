// Package ml wraps the two fitted artifacts behind the price estimate, a
// feature scaler and a gradient-boosted regressor, and runs the prediction
// pipeline over them: transform, predict, clamp the log-price, invert the
// log1p target transform, clamp the price.
//
// Artifacts can be evaluated in-process from their JSON exports, through a
// Python interpreter for the original joblib pickles, or through a remote
// model server. Whatever the backend, they are loaded once at startup and
// treated as read-only for the rest of the process lifetime.
package ml

import "context"

// Scaler is a fitted feature-scaling transform.
type Scaler interface {
	// Transform scales one row. The output has the same length as the input.
	Transform(ctx context.Context, row []float64) ([]float64, error)
}

// Regressor is a fitted regression model.
type Regressor interface {
	// Predict returns the model output for one scaled row.
	Predict(ctx context.Context, row []float64) (float64, error)
}

// Backend names accepted by the artifact loaders.
const (
	BackendNative = "native"
	BackendPython = "python"
	BackendRemote = "remote"
)
