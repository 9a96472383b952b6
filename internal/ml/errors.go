package ml

import "fmt"

// ArtifactLoadError means a scaler or model artifact could not be loaded at
// startup. The process cannot serve predictions without both artifacts.
type ArtifactLoadError struct {
	Artifact string // "scaler" or "model"
	Path     string
	Err      error
}

func (e *ArtifactLoadError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("load %s artifact: %v", e.Artifact, e.Err)
	}
	return fmt.Sprintf("load %s artifact %s: %v", e.Artifact, e.Path, e.Err)
}

func (e *ArtifactLoadError) Unwrap() error { return e.Err }

// TransformError wraps a scaler failure, including shape mismatches.
type TransformError struct {
	Err error
}

func (e *TransformError) Error() string { return "scaler transform failed: " + e.Err.Error() }

func (e *TransformError) Unwrap() error { return e.Err }

// PredictionError wraps a model failure or an unusable model output.
type PredictionError struct {
	Err error
}

func (e *PredictionError) Error() string { return "model prediction failed: " + e.Err.Error() }

func (e *PredictionError) Unwrap() error { return e.Err }

// ShapeError reports a row whose length does not match the artifact.
type ShapeError struct {
	Want, Got int
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("expected %d features, got %d", e.Want, e.Got)
}
