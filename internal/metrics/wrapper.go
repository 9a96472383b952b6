package metrics

// MetricsWrapper adapts Metrics to the estimator's metrics interface
type MetricsWrapper struct {
	m *Metrics
}

func NewWrapper(m *Metrics) *MetricsWrapper {
	return &MetricsWrapper{m: m}
}

func (w *MetricsWrapper) PredictionsInc() {
	w.m.Predictions.Inc()
}

func (w *MetricsWrapper) FailuresInc(stage string) {
	w.m.Failures.WithLabelValues(stage).Inc()
}

func (w *MetricsWrapper) LatencyObserve(seconds float64) {
	w.m.Latency.Observe(seconds)
}

func (w *MetricsWrapper) LogClampsInc() {
	w.m.LogClamps.Inc()
}

func (w *MetricsWrapper) PriceClampsInc() {
	w.m.PriceClamps.Inc()
}

func (w *MetricsWrapper) PriceObserve(price float64) {
	w.m.EstimatedPrices.Observe(price)
}
