package cfg

import (
	"fmt"

	"ames-pricer/internal/ml"
)

// Artifact backends accepted in configuration.
const (
	BackendNative = ml.BackendNative
	BackendPython = ml.BackendPython
	BackendRemote = ml.BackendRemote
)

// ArtifactSettings locates the scaler or the model.
type ArtifactSettings struct {
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`
	URL     string `yaml:"url"`
}

// PageSettings holds the operator-editable page texts. Footnote may contain
// HTML; it is sanitised before rendering.
type PageSettings struct {
	Title    string `yaml:"title"`
	Caption  string `yaml:"caption"`
	Footnote string `yaml:"footnote"`
}

// Addr returns the listen address.
func (s Settings) Addr() string {
	return fmt.Sprintf(":%d", s.Port)
}

// Bounds returns the output clamps for the estimator.
func (s Settings) Bounds() ml.Bounds {
	return ml.Bounds{
		LogMin:   s.LogMin,
		LogMax:   s.LogMax,
		PriceMin: s.PriceMin,
		PriceMax: s.PriceMax,
	}
}

// LoaderConfig returns what ml.LoadEstimator needs.
func (s Settings) LoaderConfig() ml.LoaderConfig {
	return ml.LoaderConfig{
		Scaler:     ml.ArtifactConfig{Backend: s.Scaler.Backend, Path: s.Scaler.Path},
		Model:      ml.ArtifactConfig{Backend: s.Model.Backend, Path: s.Model.Path, URL: s.Model.URL},
		PythonPath: s.PythonPath,
		Timeout:    s.InferenceTimeout,
		Bounds:     s.Bounds(),
	}
}
