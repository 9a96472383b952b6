package ml

import (
	"context"
	"sync"
)

// MockMetrics implements MetricsInterface for testing
type MockMetrics struct {
	mu          sync.Mutex
	predictions int
	failures    map[string]int
	latencySum  float64
	logClamps   int
	priceClamps int
	prices      []float64
}

func (m *MockMetrics) PredictionsInc() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.predictions++
}

func (m *MockMetrics) FailuresInc(stage string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failures == nil {
		m.failures = make(map[string]int)
	}
	m.failures[stage]++
}

func (m *MockMetrics) LatencyObserve(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latencySum += v
}

func (m *MockMetrics) LogClampsInc() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logClamps++
}

func (m *MockMetrics) PriceClampsInc() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.priceClamps++
}

func (m *MockMetrics) PriceObserve(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prices = append(m.prices, v)
}

// Predictions returns the number of successful predictions recorded.
func (m *MockMetrics) Predictions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.predictions
}

// Failures returns the failure count for stage.
func (m *MockMetrics) Failures(stage string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.failures[stage]
}

// IdentityScaler returns rows unchanged. Useful as a stand-in scaler.
type IdentityScaler struct{}

func (IdentityScaler) Transform(_ context.Context, row []float64) ([]float64, error) {
	out := make([]float64, len(row))
	copy(out, row)
	return out, nil
}

// ScalerFunc adapts a function to Scaler.
type ScalerFunc func(row []float64) ([]float64, error)

func (f ScalerFunc) Transform(_ context.Context, row []float64) ([]float64, error) {
	return f(row)
}

// RegressorFunc adapts a function to Regressor.
type RegressorFunc func(row []float64) (float64, error)

func (f RegressorFunc) Predict(_ context.Context, row []float64) (float64, error) {
	return f(row)
}

// LinearRegressor is a fixed linear model: intercept + sum(w[i]*x[i]).
type LinearRegressor struct {
	Intercept float64
	Weights   []float64
}

func (m LinearRegressor) Predict(_ context.Context, row []float64) (float64, error) {
	if len(row) != len(m.Weights) {
		return 0, &ShapeError{Want: len(m.Weights), Got: len(row)}
	}
	sum := m.Intercept
	for i, w := range m.Weights {
		sum += w * row[i]
	}
	return sum, nil
}
