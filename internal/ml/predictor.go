package ml

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"ames-pricer/internal/features"

	"github.com/rs/zerolog/log"
)

// PythonArtifact evaluates a joblib-pickled scikit-learn or XGBoost artifact
// by running an embedded inference script under a Python interpreter. Each
// call starts a fresh interpreter, so the artifact file is never shared
// between requests.
type PythonArtifact struct {
	mode         string // "transform" or "predict"
	artifactPath string
	pythonPath   string
	scriptPath   string
	timeout      time.Duration
}

type pythonRequest struct {
	Features []float64 `json:"features"`
	Names    []string  `json:"names"`
}

type pythonResponse struct {
	Values []float64 `json:"values"`
	Error  string    `json:"error,omitempty"`
}

// PythonOptions configures the Python backend.
type PythonOptions struct {
	// PythonPath overrides interpreter discovery.
	PythonPath string
	// ScriptDir is where the embedded inference script is written. Defaults
	// to a fixed directory under os.TempDir shared by every artifact.
	ScriptDir string
	Timeout   time.Duration
}

// NewPythonScaler loads a pickled scaler.
func NewPythonScaler(path string, opts PythonOptions) (*PythonArtifact, error) {
	return newPythonArtifact("transform", path, opts)
}

// NewPythonRegressor loads a pickled regressor.
func NewPythonRegressor(path string, opts PythonOptions) (*PythonArtifact, error) {
	return newPythonArtifact("predict", path, opts)
}

func newPythonArtifact(mode, path string, opts PythonOptions) (*PythonArtifact, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("artifact not accessible: %w", err)
	}

	pythonPath := opts.PythonPath
	if pythonPath == "" {
		found, err := findPython()
		if err != nil {
			return nil, err
		}
		pythonPath = found
	}

	scriptDir := opts.ScriptDir
	if scriptDir == "" {
		scriptDir = defaultScriptDir()
	}
	if err := os.MkdirAll(scriptDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create script directory: %w", err)
	}
	scriptPath := filepath.Join(scriptDir, "artifact_inference.py")
	if err := createInferenceScript(scriptPath); err != nil {
		return nil, fmt.Errorf("failed to create inference script: %w", err)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	a := &PythonArtifact{
		mode:         mode,
		artifactPath: path,
		pythonPath:   pythonPath,
		scriptPath:   scriptPath,
		timeout:      timeout,
	}

	// Load the pickle once up front so a broken artifact fails startup
	// instead of the first request.
	if _, err := a.run(context.Background(), make([]float64, features.Count)); err != nil {
		return nil, fmt.Errorf("artifact health check failed: %w", err)
	}

	log.Info().
		Str("artifact_path", path).
		Str("python_path", pythonPath).
		Str("mode", mode).
		Msg("Python artifact loaded successfully")

	return a, nil
}

// Transform implements Scaler.
func (a *PythonArtifact) Transform(ctx context.Context, row []float64) ([]float64, error) {
	if a.mode != "transform" {
		return nil, errors.New("artifact is not a scaler")
	}
	values, err := a.run(ctx, row)
	if err != nil {
		return nil, err
	}
	if len(values) != len(row) {
		return nil, &ShapeError{Want: len(row), Got: len(values)}
	}
	return values, nil
}

// Predict implements Regressor.
func (a *PythonArtifact) Predict(ctx context.Context, row []float64) (float64, error) {
	if a.mode != "predict" {
		return 0, errors.New("artifact is not a regressor")
	}
	values, err := a.run(ctx, row)
	if err != nil {
		return 0, err
	}
	if len(values) != 1 {
		return 0, fmt.Errorf("expected 1 prediction, got %d", len(values))
	}
	return values[0], nil
}

func (a *PythonArtifact) run(ctx context.Context, row []float64) ([]float64, error) {
	if len(row) != features.Count {
		return nil, &ShapeError{Want: features.Count, Got: len(row)}
	}

	reqJSON, err := json.Marshal(pythonRequest{Features: row, Names: features.FeatureOrder()})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, a.pythonPath, a.scriptPath, a.mode, a.artifactPath)
	cmd.Stdin = bytes.NewReader(reqJSON)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		log.Error().
			Err(err).
			Str("python_path", a.pythonPath).
			Str("artifact_path", a.artifactPath).
			Str("mode", a.mode).
			Str("stderr", stderr.String()).
			Str("stdout", stdout.String()).
			Dur("timeout", a.timeout).
			Msg("Python inference execution failed")

		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("inference timeout after %v", a.timeout)
		}
		var resp pythonResponse
		if json.Unmarshal(stdout.Bytes(), &resp) == nil && resp.Error != "" {
			return nil, fmt.Errorf("python inference error: %s", resp.Error)
		}
		return nil, fmt.Errorf("python inference failed: %w, stderr: %s", err, strings.TrimSpace(stderr.String()))
	}

	var resp pythonResponse
	if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w, stdout: %s", err, stdout.String())
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("python inference error: %s", resp.Error)
	}
	for i, v := range resp.Values {
		if !isFinite(v) {
			return nil, fmt.Errorf("output %d is not finite: %v", i, v)
		}
	}
	return resp.Values, nil
}

// findPython looks for a Python 3 interpreter that can import joblib,
// preferring an active virtual environment.
func findPython() (string, error) {
	var candidates []string
	if venv := os.Getenv("VIRTUAL_ENV"); venv != "" {
		candidates = append(candidates,
			filepath.Join(venv, "bin", "python3"),
			filepath.Join(venv, "bin", "python"),
			filepath.Join(venv, "Scripts", "python.exe"),
		)
	}
	if execPath, err := os.Executable(); err == nil {
		dir := filepath.Dir(execPath)
		for _, root := range []string{dir, filepath.Dir(dir)} {
			candidates = append(candidates,
				filepath.Join(root, ".venv", "bin", "python3"),
				filepath.Join(root, "venv", "bin", "python3"),
			)
		}
	}
	for _, name := range []string{"python3", "python"} {
		if path, err := exec.LookPath(name); err == nil {
			candidates = append(candidates, path)
		}
	}

	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err != nil {
			continue
		}
		cmd := exec.Command(candidate, "-c", "import sys, joblib; print('Python', sys.version)")
		if output, err := cmd.Output(); err == nil && strings.Contains(string(output), "Python 3") {
			log.Info().Str("python_path", candidate).Msg("Using Python interpreter")
			return candidate, nil
		}
	}

	return "", errors.New("no Python 3 interpreter with joblib found; set PYTHON_PATH")
}

// defaultScriptDir is reused across artifacts and process restarts, so the
// script never accumulates in the temp directory.
func defaultScriptDir() string {
	return filepath.Join(os.TempDir(), "pricer-inference")
}

// createInferenceScript writes the script through a temporary file and a
// rename, so a concurrently starting process never runs a partial script.
func createInferenceScript(scriptPath string) error {
	script := `#!/usr/bin/env python3
"""Runs one row through a joblib artifact. Request and response are JSON."""
import sys
import json

try:
    import joblib
    import numpy as np
except ImportError as e:
    print(json.dumps({"error": "missing dependency: %s" % e}))
    sys.exit(1)


def main():
    if len(sys.argv) != 3:
        print(json.dumps({"error": "usage: artifact_inference.py <transform|predict> <artifact>"}))
        sys.exit(1)

    mode, path = sys.argv[1], sys.argv[2]
    try:
        request = json.load(sys.stdin)
        artifact = joblib.load(path)
        row = np.array([request["features"]], dtype=np.float64)
        if getattr(artifact, "feature_names_in_", None) is not None:
            import pandas as pd
            row = pd.DataFrame(row, columns=request["names"])

        if mode == "transform":
            values = np.asarray(artifact.transform(row))[0].tolist()
        elif mode == "predict":
            values = [float(np.asarray(artifact.predict(row)).ravel()[0])]
        else:
            raise ValueError("unknown mode %s" % mode)

        print(json.dumps({"values": values}))
    except Exception as e:
        print(json.dumps({"error": str(e)}))
        sys.exit(1)


if __name__ == "__main__":
    main()
`

	tmp, err := os.CreateTemp(filepath.Dir(scriptPath), ".artifact_inference-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(script); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o755); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), scriptPath)
}
