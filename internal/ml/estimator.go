package ml

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"ames-pricer/internal/features"

	"github.com/rs/zerolog/log"
)

// MetricsInterface defines the metrics the estimator reports.
type MetricsInterface interface {
	PredictionsInc()
	FailuresInc(stage string)
	LatencyObserve(float64)
	LogClampsInc()
	PriceClampsInc()
	PriceObserve(float64)
}

// Failure stages reported to MetricsInterface.FailuresInc.
const (
	StageInput     = "input"
	StageTransform = "transform"
	StagePredict   = "predict"
)

// Estimator holds the loaded artifacts and the output bounds. It is built
// once at startup, never mutated afterwards and safe for concurrent use.
type Estimator struct {
	scaler  Scaler
	model   Regressor
	bounds  Bounds
	metrics MetricsInterface
	info    ArtifactInfo
}

// EstimatorOption configures an Estimator.
type EstimatorOption func(*Estimator)

// WithMetrics reports predictions and failures to m.
func WithMetrics(m MetricsInterface) EstimatorOption {
	return func(e *Estimator) { e.metrics = m }
}

// WithInfo attaches artifact descriptions served by the info endpoint.
func WithInfo(info ArtifactInfo) EstimatorOption {
	return func(e *Estimator) { e.info = info }
}

// NewEstimator validates bounds and wires the artifacts together.
func NewEstimator(scaler Scaler, model Regressor, bounds Bounds, opts ...EstimatorOption) (*Estimator, error) {
	if scaler == nil {
		return nil, errors.New("scaler is nil")
	}
	if model == nil {
		return nil, errors.New("model is nil")
	}
	if err := bounds.Validate(); err != nil {
		return nil, fmt.Errorf("invalid bounds: %w", err)
	}

	e := &Estimator{scaler: scaler, model: model, bounds: bounds}
	for _, opt := range opts {
		opt(e)
	}
	if e.info.LoadedAt.IsZero() {
		e.info.LoadedAt = time.Now()
	}
	e.info.Bounds = bounds
	e.info.Features = features.FeatureOrder()
	return e, nil
}

// Info describes the loaded artifacts.
func (e *Estimator) Info() ArtifactInfo { return e.info }

// PredictInput assembles the feature vector from in and estimates its price.
func (e *Estimator) PredictInput(ctx context.Context, in features.UserInput) (Estimate, error) {
	if e == nil {
		return Estimate{}, errors.New("estimator is nil")
	}
	row, err := in.Vector()
	if err != nil {
		e.failed(StageInput)
		return Estimate{}, err
	}
	return e.Estimate(ctx, row)
}

// Estimate runs one feature vector, in training order, through the scaler and
// the model and post-processes the log-price output.
func (e *Estimator) Estimate(ctx context.Context, row []float64) (Estimate, error) {
	if e == nil {
		return Estimate{}, errors.New("estimator is nil")
	}

	start := time.Now()
	defer func() {
		if e.metrics != nil {
			e.metrics.LatencyObserve(time.Since(start).Seconds())
		}
	}()

	if len(row) != features.Count {
		e.failed(StageTransform)
		return Estimate{}, &TransformError{Err: &ShapeError{Want: features.Count, Got: len(row)}}
	}

	scaled, err := e.scaler.Transform(ctx, row)
	if err != nil {
		e.failed(StageTransform)
		log.Error().Err(err).Floats64("features", row).Msg("Scaler transform failed")
		return Estimate{}, &TransformError{Err: err}
	}
	if len(scaled) != features.Count {
		e.failed(StageTransform)
		return Estimate{}, &TransformError{Err: &ShapeError{Want: features.Count, Got: len(scaled)}}
	}

	raw, err := e.model.Predict(ctx, scaled)
	if err != nil {
		e.failed(StagePredict)
		log.Error().Err(err).Floats64("scaled", scaled).Msg("Model prediction failed")
		return Estimate{}, &PredictionError{Err: err}
	}
	// ±Inf is clamped by Apply like any other out-of-range value. NaN has no
	// nearest bound.
	if math.IsNaN(raw) {
		e.failed(StagePredict)
		return Estimate{}, &PredictionError{Err: errors.New("model output is NaN")}
	}

	est := e.bounds.Apply(raw)

	if e.metrics != nil {
		e.metrics.PredictionsInc()
		e.metrics.PriceObserve(est.Price)
		if est.LogClamped {
			e.metrics.LogClampsInc()
		}
		if est.PriceClamped {
			e.metrics.PriceClampsInc()
		}
	}

	log.Debug().
		Floats64("features", row).
		Floats64("scaled", scaled).
		Float64("raw_log", raw).
		Float64("price", est.Price).
		Bool("log_clamped", est.LogClamped).
		Bool("price_clamped", est.PriceClamped).
		Msg("Prediction successful")

	return est, nil
}

func (e *Estimator) failed(stage string) {
	if e.metrics != nil {
		e.metrics.FailuresInc(stage)
	}
}
