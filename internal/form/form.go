// Package form renders the price estimation page and runs the predict action.
//
// The page is modelled explicitly: Render draws a State, and OnAction turns a
// State holding user input into a State holding a result or an error. The
// HTTP handler only parses requests into States and picks status codes.
package form

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"strconv"
	"strings"

	"ames-pricer/internal/features"
	"ames-pricer/internal/ml"

	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog/log"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// ErrUnavailable is returned by OnAction when the artifacts are not loaded.
var ErrUnavailable = errors.New("prediction unavailable: model artifacts are not loaded")

// Page holds the configurable page texts.
type Page struct {
	Title    string
	Caption  string
	Footnote string // may contain HTML, sanitised before rendering
}

// Result is a rendered prediction.
type Result struct {
	Price        float64
	Formatted    string
	LogClamped   bool
	PriceClamped bool
}

// State is everything the page shows for one interaction.
type State struct {
	Input          features.UserInput
	Result         *Result
	Err            error
	Disabled       bool
	DisabledReason string
}

// NewState returns a state holding a copy of in.
func NewState(in features.UserInput) State {
	if in == nil {
		in = features.UserInput{}
	}
	return State{Input: in.Clone()}
}

// Controller owns the page template and the estimator. It holds no
// per-request data.
type Controller struct {
	est            *ml.Estimator
	page           Page
	footnote       template.HTML
	tmpl           *template.Template
	disabledReason string
}

// NewController builds the controller. est may be nil when loading the
// artifacts failed; the page is then served with the predict action disabled.
func NewController(est *ml.Estimator, page Page) (*Controller, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/page.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to parse page template: %w", err)
	}

	c := &Controller{
		est:      est,
		page:     page,
		footnote: sanitizeFootnote(page.Footnote),
		tmpl:     tmpl,
	}
	if est == nil {
		c.disabledReason = "the model artifacts could not be loaded"
	}
	return c, nil
}

// sanitizeFootnote keeps basic formatting and links and drops everything else.
func sanitizeFootnote(raw string) template.HTML {
	policy := bluemonday.UGCPolicy()
	policy.RequireNoFollowOnLinks(true)
	return template.HTML(policy.Sanitize(raw)) // #nosec G203 -- sanitised above
}

// Initial returns the state for a fresh page: every field at its minimum.
func (c *Controller) Initial() State {
	return c.withAvailability(NewState(features.Defaults()))
}

func (c *Controller) withAvailability(s State) State {
	if c.est == nil {
		s.Disabled = true
		s.DisabledReason = c.disabledReason
	}
	return s
}

// OnAction runs the predict action for s and returns the resulting state.
// s is not modified.
func (c *Controller) OnAction(ctx context.Context, s State) State {
	next := c.withAvailability(NewState(s.Input))
	if next.Disabled {
		next.Err = ErrUnavailable
		return next
	}

	est, err := c.est.PredictInput(ctx, next.Input)
	if err != nil {
		next.Err = err
		return next
	}

	next.Result = &Result{
		Price:        est.Price,
		Formatted:    ml.FormatUSD(est.Price),
		LogClamped:   est.LogClamped,
		PriceClamped: est.PriceClamped,
	}
	return next
}

type fieldView struct {
	Key, Label, Help string
	Min, Max, Step   string
	Value            string
	Missing          bool
}

type pageView struct {
	Title          string
	Caption        string
	Footnote       template.HTML
	Fields         []fieldView
	Result         *Result
	Error          string
	Disabled       bool
	DisabledReason string
}

// Render writes the full page for s.
func (c *Controller) Render(w io.Writer, s State) error {
	var missing map[string]bool
	var incomplete *features.IncompleteInputError
	if errors.As(s.Err, &incomplete) {
		missing = make(map[string]bool, len(incomplete.Missing))
		for _, key := range incomplete.Missing {
			missing[key] = true
		}
	}

	specs := features.Features()
	view := pageView{
		Title:          c.page.Title,
		Caption:        c.page.Caption,
		Footnote:       c.footnote,
		Fields:         make([]fieldView, 0, len(specs)),
		Result:         s.Result,
		Error:          UserMessage(s.Err),
		Disabled:       s.Disabled,
		DisabledReason: s.DisabledReason,
	}
	for _, spec := range specs {
		field := fieldView{
			Key:     spec.Key,
			Label:   spec.DisplayLabel(),
			Help:    spec.Help,
			Min:     formatNumber(spec.Min),
			Max:     formatNumber(spec.Max),
			Step:    formatNumber(spec.Step),
			Missing: missing[spec.Key],
		}
		if v, ok := s.Input.Value(spec.Key); ok {
			field.Value = formatNumber(v)
		}
		view.Fields = append(view.Fields, field)
	}

	return c.tmpl.Execute(w, view)
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// UserMessage is the banner text for err. Internal details stay in the logs.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var incomplete *features.IncompleteInputError
	var transformErr *ml.TransformError
	var predictionErr *ml.PredictionError

	switch {
	case errors.As(err, &incomplete):
		labels := make([]string, 0, len(incomplete.Missing))
		for _, key := range incomplete.Missing {
			if spec, ok := features.Lookup(key); ok {
				labels = append(labels, spec.DisplayLabel())
			} else {
				labels = append(labels, key)
			}
		}
		return "Please provide a value for: " + strings.Join(labels, ", ")
	case errors.Is(err, ErrUnavailable):
		return "Predictions are unavailable because the model artifacts could not be loaded."
	case errors.As(err, &transformErr):
		return "Feature scaling failed. The price could not be estimated."
	case errors.As(err, &predictionErr):
		return "Model prediction failed. The price could not be estimated."
	default:
		return "The price could not be estimated."
	}
}

// StatusFor maps the outcome of OnAction to an HTTP status code.
func StatusFor(err error) int {
	if err == nil {
		return http.StatusOK
	}

	var incomplete *features.IncompleteInputError
	switch {
	case errors.As(err, &incomplete):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// ServeHTTP serves GET / with the initial page and POST / with the outcome of
// the predict action.
func (c *Controller) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	var state State
	switch r.Method {
	case http.MethodGet, http.MethodHead:
		state = c.Initial()
	case http.MethodPost:
		if err := r.ParseForm(); err != nil {
			http.Error(w, "invalid form submission", http.StatusBadRequest)
			return
		}
		state = c.OnAction(r.Context(), NewState(features.ParseInput(r.PostForm)))
		if state.Err != nil && !errors.Is(state.Err, ErrUnavailable) {
			log.Warn().Err(state.Err).Msg("Form prediction failed")
		}
	default:
		w.Header().Set("Allow", "GET, HEAD, POST")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var buf bytes.Buffer
	if err := c.Render(&buf, state); err != nil {
		log.Error().Err(err).Msg("Failed to render page")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(StatusFor(state.Err))
	if _, err := buf.WriteTo(w); err != nil {
		log.Warn().Err(err).Msg("failed to write page")
	}
}
