// Command check-artifacts loads the configured scaler and model and prints the
// estimate for a few reference houses. Run it after exporting new artifacts.
package main

import (
	"context"
	"fmt"
	"os"

	"ames-pricer/internal/cfg"
	"ames-pricer/internal/features"
	"ames-pricer/internal/ml"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	fmt.Println("🧪 Checking price model artifacts")
	fmt.Println("=================================")

	c, err := cfg.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}
	fmt.Printf("📁 Scaler: %s (%s)\n", c.Scaler.Path, c.Scaler.Backend)
	fmt.Printf("📁 Model:  %s (%s)\n", modelLocation(c), c.Model.Backend)

	est, err := ml.LoadEstimator(c.LoaderConfig(), nil)
	if err != nil {
		log.Fatal().Err(err).Msg("❌ artifacts could not be loaded")
	}
	info := est.Info()
	fmt.Printf("✅ Loaded: %s / %s\n", info.Scaler.Detail, info.Model.Detail)

	failures := 0
	for _, house := range referenceHouses() {
		fmt.Printf("\n  %s\n", house.name)
		e, err := est.PredictInput(context.Background(), house.input)
		if err != nil {
			failures++
			fmt.Printf("    ❌ %v\n", err)
			continue
		}
		fmt.Printf("    📊 raw log %.4f, price %s\n", e.RawLog, ml.FormatUSD(e.Price))
		if e.LogClamped || e.PriceClamped {
			fmt.Println("    ⚠️  estimate was clamped")
		}
	}

	if failures > 0 {
		os.Exit(1)
	}
	fmt.Println("\n✅ All reference houses priced")
}

func modelLocation(c cfg.Settings) string {
	if c.Model.Backend == cfg.BackendRemote {
		return c.Model.URL
	}
	return c.Model.Path
}

type referenceHouse struct {
	name  string
	input features.UserInput
}

func referenceHouses() []referenceHouse {
	typical := features.UserInput{}
	for key, v := range map[string]float64{
		features.GrLivArea:   1500,
		features.FullBath:    2,
		features.TotalBsmtSF: 800,
		features.GarageCars:  2,
		features.YearBuilt:   2005,
		features.OverallQual: 6,
	} {
		if err := typical.Set(key, v); err != nil {
			log.Fatal().Err(err).Str("feature", key).Msg("invalid reference value")
		}
	}

	largest := features.UserInput{}
	for _, spec := range features.Features() {
		if err := largest.Set(spec.Key, spec.Max); err != nil {
			log.Fatal().Err(err).Str("feature", spec.Key).Msg("invalid reference value")
		}
	}

	return []referenceHouse{
		{"Every field at its minimum", features.Defaults()},
		{"Typical family house", typical},
		{"Every field at its maximum", largest},
	}
}
