package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ames-pricer/internal/cfg"
	"ames-pricer/internal/common"
	"ames-pricer/internal/form"
	"ames-pricer/internal/metrics"
	"ames-pricer/internal/ml"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	c, err := cfg.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}
	setupLogging(c)

	m := metrics.New()
	est, loadErr := loadEstimator(c, m)

	handler, err := newRouter(c, est, loadErr, m, prometheus.DefaultGatherer)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build HTTP routes")
	}

	server := &http.Server{
		Addr:              c.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: c.ReadTimeout,
		ReadTimeout:       c.ReadTimeout,
		WriteTimeout:      c.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		log.Info().
			Str("addr", server.Addr).
			Bool("predictions_enabled", est != nil).
			Msg("Price estimator listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("HTTP server failed")
			cancel()
		}
	}()

	waitForShutdown(ctx, server)
}

// setupLogging applies the configured level and output format.
func setupLogging(c cfg.Settings) {
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if c.LogFormat == common.LogFormatConsole {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}

// loadEstimator loads both artifacts. An artifact that cannot be loaded does
// not stop the process: the page is served with predictions disabled.
func loadEstimator(c cfg.Settings, m *metrics.Metrics) (*ml.Estimator, error) {
	est, err := ml.LoadEstimator(c.LoaderConfig(), metrics.NewWrapper(m))
	if err != nil {
		var artifactErr *ml.ArtifactLoadError
		if !errors.As(err, &artifactErr) {
			log.Fatal().Err(err).Msg("estimator setup failed")
		}
		log.Error().
			Err(err).
			Str("artifact", artifactErr.Artifact).
			Str("path", artifactErr.Path).
			Msg("Artifact load failed, predictions disabled")
		m.SetArtifactsLoaded(false)
		return nil, err
	}
	m.SetArtifactsLoaded(true)
	return est, nil
}

// newRouter mounts the page, the JSON API and the metrics endpoint.
func newRouter(c cfg.Settings, est *ml.Estimator, loadErr error, m *metrics.Metrics, gatherer prometheus.Gatherer) (http.Handler, error) {
	controller, err := form.NewController(est, form.Page{
		Title:    c.Page.Title,
		Caption:  c.Page.Caption,
		Footnote: c.Page.Footnote,
	})
	if err != nil {
		return nil, err
	}

	api := http.NewServeMux()
	modelServer := ml.NewModelServer(est, loadErr)
	modelServer.Register(api)

	mux := http.NewServeMux()
	mux.Handle("/", m.Instrument("/", controller))
	for _, route := range modelServer.Routes() {
		mux.Handle(route, m.Instrument(route, api))
	}
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	return accessLog(mux), nil
}

// waitForShutdown waits for shutdown signals and handles graceful shutdown
func waitForShutdown(ctx context.Context, server *http.Server) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		log.Info().Msg("shutdown signal received")
	case <-ctx.Done():
		log.Info().Msg("context canceled")
	}

	log.Info().Msg("shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("shutdown timeout, forcing exit")
		return
	}
	log.Info().Msg("server stopped")
}
