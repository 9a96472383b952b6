package ml

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"
)

// ArtifactConfig locates one artifact.
type ArtifactConfig struct {
	Backend string
	Path    string
	URL     string
}

// LoaderConfig describes both artifacts and how to reach them.
type LoaderConfig struct {
	Scaler     ArtifactConfig
	Model      ArtifactConfig
	PythonPath string
	Timeout    time.Duration
	Bounds     Bounds
}

// ArtifactDescriptor is the public description of a loaded artifact.
type ArtifactDescriptor struct {
	Backend    string    `json:"backend"`
	Path       string    `json:"path,omitempty"`
	URL        string    `json:"url,omitempty"`
	ModifiedAt time.Time `json:"modified_at,omitempty"`
	Detail     string    `json:"detail,omitempty"`
}

// ArtifactInfo describes the artifacts behind an Estimator.
type ArtifactInfo struct {
	Scaler   ArtifactDescriptor `json:"scaler"`
	Model    ArtifactDescriptor `json:"model"`
	Features []string           `json:"features"`
	Bounds   Bounds             `json:"bounds"`
	LoadedAt time.Time          `json:"loaded_at"`
}

// LoadEstimator loads both artifacts and builds the Estimator. Failures to
// load either artifact are returned as *ArtifactLoadError.
func LoadEstimator(cfg LoaderConfig, metrics MetricsInterface) (*Estimator, error) {
	pyOpts := PythonOptions{PythonPath: cfg.PythonPath, Timeout: cfg.Timeout}

	scaler, scalerDesc, err := loadScaler(cfg.Scaler, pyOpts)
	if err != nil {
		return nil, &ArtifactLoadError{Artifact: "scaler", Path: cfg.Scaler.Path, Err: err}
	}

	model, modelDesc, err := loadModel(cfg.Model, pyOpts, cfg.Timeout)
	if err != nil {
		path := cfg.Model.Path
		if cfg.Model.Backend == BackendRemote {
			path = cfg.Model.URL
		}
		return nil, &ArtifactLoadError{Artifact: "model", Path: path, Err: err}
	}

	est, err := NewEstimator(scaler, model, cfg.Bounds,
		WithMetrics(metrics),
		WithInfo(ArtifactInfo{Scaler: scalerDesc, Model: modelDesc}),
	)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("scaler_backend", scalerDesc.Backend).
		Str("scaler", scalerDesc.Detail).
		Str("model_backend", modelDesc.Backend).
		Str("model", modelDesc.Detail).
		Msg("Artifacts loaded")

	return est, nil
}

func loadScaler(cfg ArtifactConfig, pyOpts PythonOptions) (Scaler, ArtifactDescriptor, error) {
	desc := ArtifactDescriptor{Backend: backendOrDefault(cfg.Backend), Path: cfg.Path}
	desc.ModifiedAt = modTime(cfg.Path)

	switch desc.Backend {
	case BackendNative:
		s, err := LoadScalerJSON(cfg.Path)
		if err != nil {
			return nil, desc, err
		}
		desc.Detail = s.Kind() + " scaler"
		return s, desc, nil
	case BackendPython:
		s, err := NewPythonScaler(cfg.Path, pyOpts)
		if err != nil {
			return nil, desc, err
		}
		desc.Detail = "joblib scaler"
		return s, desc, nil
	default:
		return nil, desc, fmt.Errorf("unsupported scaler backend %q", cfg.Backend)
	}
}

func loadModel(cfg ArtifactConfig, pyOpts PythonOptions, timeout time.Duration) (Regressor, ArtifactDescriptor, error) {
	desc := ArtifactDescriptor{Backend: backendOrDefault(cfg.Backend), Path: cfg.Path}

	switch desc.Backend {
	case BackendNative:
		desc.ModifiedAt = modTime(cfg.Path)
		m, err := LoadXGBoostJSON(cfg.Path)
		if err != nil {
			return nil, desc, err
		}
		desc.Detail = fmt.Sprintf("xgboost %s, %d trees, %s", m.Version(), m.NumTrees(), m.Objective())
		return m, desc, nil
	case BackendPython:
		desc.ModifiedAt = modTime(cfg.Path)
		m, err := NewPythonRegressor(cfg.Path, pyOpts)
		if err != nil {
			return nil, desc, err
		}
		desc.Detail = "joblib regressor"
		return m, desc, nil
	case BackendRemote:
		desc.Path = ""
		desc.URL = cfg.URL
		m, err := NewRemoteRegressor(cfg.URL, timeout)
		if err != nil {
			return nil, desc, err
		}
		desc.Detail = "remote model server"
		return m, desc, nil
	default:
		return nil, desc, fmt.Errorf("unsupported model backend %q", cfg.Backend)
	}
}

func backendOrDefault(b string) string {
	if b == "" {
		return BackendNative
	}
	return b
}

func modTime(path string) time.Time {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}
	}
	return info.ModTime()
}
