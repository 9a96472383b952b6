package ml

import (
	"fmt"
	"math"
)

// Bounds are the sanity limits applied to the model output. They reflect the
// observed range of the training data for this particular fitted model and
// should not be reused for other datasets.
type Bounds struct {
	LogMin   float64 `json:"log_min" yaml:"logMin"`
	LogMax   float64 `json:"log_max" yaml:"logMax"`
	PriceMin float64 `json:"price_min" yaml:"priceMin"`
	PriceMax float64 `json:"price_max" yaml:"priceMax"`
}

// DefaultBounds returns the limits the Ames model was shipped with.
func DefaultBounds() Bounds {
	return Bounds{LogMin: 8, LogMax: 14, PriceMin: 50000, PriceMax: 1000000}
}

// Validate checks that both intervals are non-empty and finite.
func (b Bounds) Validate() error {
	for name, v := range map[string]float64{
		"log min": b.LogMin, "log max": b.LogMax,
		"price min": b.PriceMin, "price max": b.PriceMax,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%s must be finite, got %v", name, v)
		}
	}
	if b.LogMin >= b.LogMax {
		return fmt.Errorf("log min (%v) must be below log max (%v)", b.LogMin, b.LogMax)
	}
	if b.PriceMin < 0 || b.PriceMin >= b.PriceMax {
		return fmt.Errorf("price bounds must satisfy 0 <= min < max, got [%v, %v]", b.PriceMin, b.PriceMax)
	}
	return nil
}

// Estimate is the post-processed model output for one request.
type Estimate struct {
	RawLog       float64 `json:"raw_log"`
	ClampedLog   float64 `json:"clamped_log"`
	Unclamped    float64 `json:"unclamped_price"`
	Price        float64 `json:"price"`
	LogClamped   bool    `json:"log_clamped"`
	PriceClamped bool    `json:"price_clamped"`
}

// Apply clamps the raw log prediction, inverts log1p and clamps the price.
func (b Bounds) Apply(rawLog float64) Estimate {
	est := Estimate{RawLog: rawLog}

	est.ClampedLog = clamp(rawLog, b.LogMin, b.LogMax)
	est.LogClamped = est.ClampedLog != rawLog

	est.Unclamped = math.Expm1(est.ClampedLog)
	est.Price = clamp(est.Unclamped, b.PriceMin, b.PriceMax)
	est.PriceClamped = est.Price != est.Unclamped

	return est
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}
