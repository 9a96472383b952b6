// Package metrics provides Prometheus metrics collection for the price
// estimator. It defines the prediction, clamp and HTTP metrics that are
// exposed via the Prometheus metrics endpoint for monitoring and alerting.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the estimator.
type Metrics struct {
	// Prediction metrics
	Predictions     prometheus.Counter     // Successful predictions
	Failures        *prometheus.CounterVec // Failed predictions by pipeline stage
	LogClamps       prometheus.Counter     // Raw log outputs clamped to the log bounds
	PriceClamps     prometheus.Counter     // Prices clamped to the price bounds
	Latency         prometheus.Histogram   // Transform plus predict latency in seconds
	EstimatedPrices prometheus.Histogram   // Distribution of returned prices

	// System metrics
	ArtifactsLoaded prometheus.Gauge       // 1 when scaler and model are loaded
	HTTPRequests    *prometheus.CounterVec // Requests by route and status code
}

// New creates and registers all Prometheus metrics using the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates metrics with a custom registry (useful for testing).
func NewWithRegistry(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		Predictions: factory.NewCounter(prometheus.CounterOpts{
			Name: "pricer_predictions_total",
			Help: "Total number of successful price predictions",
		}),
		Failures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pricer_prediction_failures_total",
			Help: "Total number of failed price predictions by stage",
		}, []string{"stage"}),
		LogClamps: factory.NewCounter(prometheus.CounterOpts{
			Name: "pricer_log_clamps_total",
			Help: "Total number of model outputs clamped to the log-price bounds",
		}),
		PriceClamps: factory.NewCounter(prometheus.CounterOpts{
			Name: "pricer_price_clamps_total",
			Help: "Total number of prices clamped to the price bounds",
		}),
		Latency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "pricer_prediction_latency_seconds",
			Help:    "Scaler plus model latency in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
		}),
		EstimatedPrices: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "pricer_estimated_price_dollars",
			Help:    "Distribution of estimated sale prices",
			Buckets: prometheus.LinearBuckets(50000, 50000, 20),
		}),
		ArtifactsLoaded: factory.NewGauge(prometheus.GaugeOpts{
			Name: "pricer_artifacts_loaded",
			Help: "1 when the scaler and model artifacts are loaded, 0 otherwise",
		}),
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pricer_http_requests_total",
			Help: "Total number of HTTP requests by route and status code",
		}, []string{"path", "code"}),
	}
}

// SetArtifactsLoaded records whether predictions can be served.
func (m *Metrics) SetArtifactsLoaded(loaded bool) {
	if loaded {
		m.ArtifactsLoaded.Set(1)
	} else {
		m.ArtifactsLoaded.Set(0)
	}
}

// Instrument counts requests to h under the route label path.
func (m *Metrics) Instrument(path string, h http.Handler) http.Handler {
	return promhttp.InstrumentHandlerCounter(
		m.HTTPRequests.MustCurryWith(prometheus.Labels{"path": path}),
		h,
	)
}
