package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"ames-pricer/internal/features"

	"github.com/rs/zerolog/log"
)

// ModelServer exposes the estimator as a JSON API next to the form page.
// When artifacts failed to load, est is nil and every prediction is refused.
type ModelServer struct {
	est     *Estimator
	loadErr error
	started time.Time
}

// PredictionRequest is one set of house attributes keyed by feature name.
type PredictionRequest struct {
	Inputs    map[string]float64 `json:"inputs"`
	RequestID string             `json:"request_id,omitempty"`
}

// PredictionResponse is the estimate for one request.
type PredictionResponse struct {
	Price        float64   `json:"price"`
	Formatted    string    `json:"formatted"`
	RawLog       float64   `json:"raw_log"`
	ClampedLog   float64   `json:"clamped_log"`
	LogClamped   bool      `json:"log_clamped"`
	PriceClamped bool      `json:"price_clamped"`
	Features     []float64 `json:"features"`
	RequestID    string    `json:"request_id,omitempty"`
	Latency      float64   `json:"latency_ms"`
	Timestamp    time.Time `json:"timestamp"`
}

// ErrorResponse is the body of every failed API call.
type ErrorResponse struct {
	Error   string   `json:"error"`
	Kind    string   `json:"kind"`
	Missing []string `json:"missing,omitempty"`
}

// HealthStatus reports whether predictions can be served.
type HealthStatus struct {
	Healthy       bool    `json:"healthy"`
	ModelLoaded   bool    `json:"model_loaded"`
	ScalerBackend string  `json:"scaler_backend,omitempty"`
	ModelBackend  string  `json:"model_backend,omitempty"`
	LastError     string  `json:"last_error,omitempty"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

// NewModelServer wraps est. loadErr is reported by the health endpoint when
// est is nil.
func NewModelServer(est *Estimator, loadErr error) *ModelServer {
	return &ModelServer{est: est, loadErr: loadErr, started: time.Now()}
}

// API routes mounted by Register.
const (
	RoutePredict   = "/api/predict"
	RouteHealth    = "/health"
	RouteModelInfo = "/model/info"
)

// Routes lists the paths mounted by Register.
func (ms *ModelServer) Routes() []string {
	return []string{RoutePredict, RouteHealth, RouteModelInfo}
}

// Register mounts the API routes on mux.
func (ms *ModelServer) Register(mux *http.ServeMux) {
	mux.HandleFunc(RoutePredict, ms.handlePredict)
	mux.HandleFunc(RouteHealth, ms.handleHealth)
	mux.HandleFunc(RouteModelInfo, ms.handleModelInfo)
}

func (ms *ModelServer) handlePredict(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if ms.est == nil {
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{Error: "model artifacts are not loaded", Kind: "artifact_load"})
		return
	}

	start := time.Now()

	var req PredictionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: fmt.Sprintf("invalid request: %v", err), Kind: "bad_request"})
		return
	}

	in, err := features.FromMap(req.Inputs)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error(), Kind: "bad_request"})
		return
	}

	est, err := ms.est.PredictInput(r.Context(), in)
	if err != nil {
		status, body := errorBody(err)
		log.Error().Err(err).Str("request_id", req.RequestID).Msg("API prediction failed")
		writeJSON(w, status, body)
		return
	}

	row, _ := in.Vector()
	writeJSON(w, http.StatusOK, PredictionResponse{
		Price:        est.Price,
		Formatted:    FormatUSD(est.Price),
		RawLog:       est.RawLog,
		ClampedLog:   est.ClampedLog,
		LogClamped:   est.LogClamped,
		PriceClamped: est.PriceClamped,
		Features:     row,
		RequestID:    req.RequestID,
		Latency:      float64(time.Since(start).Microseconds()) / 1000,
		Timestamp:    time.Now(),
	})
}

func (ms *ModelServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	health := HealthStatus{
		Healthy:       ms.est != nil,
		ModelLoaded:   ms.est != nil,
		UptimeSeconds: time.Since(ms.started).Seconds(),
	}
	if ms.est != nil {
		health.ScalerBackend = ms.est.info.Scaler.Backend
		health.ModelBackend = ms.est.info.Model.Backend
	} else if ms.loadErr != nil {
		health.LastError = ms.loadErr.Error()
	}

	status := http.StatusOK
	if !health.Healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, health)
}

func (ms *ModelServer) handleModelInfo(w http.ResponseWriter, _ *http.Request) {
	if ms.est == nil {
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{Error: "model artifacts are not loaded", Kind: "artifact_load"})
		return
	}
	writeJSON(w, http.StatusOK, ms.est.Info())
}

// errorBody maps prediction errors to a status code and a client-safe body.
func errorBody(err error) (int, ErrorResponse) {
	var incomplete *features.IncompleteInputError
	var transformErr *TransformError
	var predictionErr *PredictionError

	switch {
	case errors.As(err, &incomplete):
		return http.StatusUnprocessableEntity, ErrorResponse{Error: err.Error(), Kind: "incomplete_input", Missing: incomplete.Missing}
	case errors.As(err, &transformErr):
		return http.StatusInternalServerError, ErrorResponse{Error: "feature scaling failed", Kind: "transform"}
	case errors.As(err, &predictionErr):
		return http.StatusInternalServerError, ErrorResponse{Error: "model prediction failed", Kind: "prediction"}
	default:
		return http.StatusInternalServerError, ErrorResponse{Error: "prediction failed", Kind: "internal"}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("failed to write response")
	}
}
