package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"parley/internal/analysis"
	"parley/internal/api"
	"parley/internal/logging"
	"parley/internal/room"
	"parley/internal/store"
	"parley/internal/summarize"
	"parley/internal/temporal"
	temporalworker "parley/internal/temporal/worker"
	"parley/internal/version"
)

const httpServerShutdownTimeout = 10 * time.Second

func runServer(args []string) int {
	cfg, err := loadConfig(args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if cfg.ShowVersion {
		return runVersion(os.Stdout)
	}

	logBuffer := logging.NewLogBuffer(logging.DefaultBufferSize)
	logLevel := logging.LevelInfo
	if cfg.Verbose {
		logLevel = logging.LevelDebug
	} else if cfg.Quiet {
		logLevel = logging.LevelWarning
	}
	logger := logging.NewLogger(logBuffer, logLevel)
	if cfg.Verbose {
		logStartupConfig(logger, cfg)
	}
	logger.Info("parley starting", map[string]string{
		"version": version.GetVersionInfo().Version,
	})

	meetingStore, err := buildStore(cfg)
	if err != nil {
		logger.Error("store unavailable", map[string]string{
			"engine": cfg.StoreEngine,
			"error":  err.Error(),
		})
		return 1
	}
	defer func() {
		if closeError := meetingStore.Close(); closeError != nil {
			logger.Warn("store close failed", map[string]string{
				"error": closeError.Error(),
			})
		}
	}()

	summarizer := buildSummarizer(cfg, logger)

	enqueuer, cleanup, err := buildEnqueuer(cfg, meetingStore, summarizer, logger)
	if err != nil {
		logger.Error("analysis pipeline unavailable", map[string]string{
			"error": err.Error(),
		})
		return 1
	}
	defer cleanup()

	registry := room.NewRegistry(room.RegistryOptions{
		Store:    meetingStore,
		Enqueuer: enqueuer,
		Logger:   logger,
		IdleTTL:  cfg.RoomIdleTTL,
	})
	defer registry.Close()

	routesConfig := api.RoutesConfig{
		AuthToken:      cfg.AuthToken,
		AllowedOrigins: cfg.AllowedOrigins,
	}
	// The ledger runner has no live status to query; only the workflow
	// engine exposes one.
	if querier, ok := enqueuer.(api.AnalysisStatusQuerier); ok {
		routesConfig.StatusQuerier = querier
	}

	mux := http.NewServeMux()
	api.RegisterRoutes(mux, registry, meetingStore, routesConfig, logger)

	server := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	stopSignals := make(chan os.Signal, 1)
	signal.Notify(stopSignals, os.Interrupt, syscall.SIGTERM)

	serveErrors := make(chan error, 1)
	go func() {
		serveErrors <- server.ListenAndServe()
	}()
	logger.Info("parley listening", map[string]string{
		"addr": server.Addr,
	})

	select {
	case sig := <-stopSignals:
		logger.Info("shutting down", map[string]string{
			"signal": sig.String(),
		})
		shutdownContext, cancel := context.WithTimeout(context.Background(), httpServerShutdownTimeout)
		defer cancel()
		if shutdownError := server.Shutdown(shutdownContext); shutdownError != nil {
			logger.Warn("http shutdown failed", map[string]string{
				"error": shutdownError.Error(),
			})
		}
		<-serveErrors
	case serveError := <-serveErrors:
		if serveError != nil && !errors.Is(serveError, http.ErrServerClosed) {
			logger.Error("http server stopped", map[string]string{
				"error": serveError.Error(),
			})
			return 1
		}
	}

	return 0
}

func buildStore(cfg Config) (store.Store, error) {
	switch cfg.StoreEngine {
	case StoreEnginePostgres:
		connectContext, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return store.NewPostgresStore(connectContext, cfg.PostgresURL)
	default:
		return store.NewFileStore(cfg.StateDir)
	}
}

// buildSummarizer returns nil when no remote endpoint is configured; the
// analysis pipeline then runs the local heuristic directly.
func buildSummarizer(cfg Config, logger *logging.Logger) summarize.Summarizer {
	if cfg.SummarizerBaseURL == "" || cfg.SummarizerAPIKey == "" {
		logger.Info("remote summarizer not configured, using local heuristic", nil)
		return nil
	}
	return &summarize.Remote{
		BaseURL: cfg.SummarizerBaseURL,
		APIKey:  cfg.SummarizerAPIKey,
		Model:   cfg.SummarizerModel,
		Logger:  logger,
	}
}

// buildEnqueuer wires the analysis pipeline: a Temporal workflow when
// configured, the in-process ledger runner otherwise. Both give the same
// durability contract; Temporal adds cross-process resumption.
func buildEnqueuer(cfg Config, meetingStore store.Store, summarizer summarize.Summarizer, logger *logging.Logger) (room.Enqueuer, func(), error) {
	if !cfg.TemporalEnabled {
		runner := analysis.NewLedgerRunner(meetingStore, summarizer, logger)
		return runner, runner.Wait, nil
	}

	temporalClient, err := temporal.NewClient(temporal.ClientConfig{
		HostPort:  cfg.TemporalHost,
		Namespace: cfg.TemporalNamespace,
		Logger:    logger,
	})
	if err != nil {
		logger.Warn("temporal client unavailable, falling back to ledger runner", map[string]string{
			"host":      cfg.TemporalHost,
			"namespace": cfg.TemporalNamespace,
			"error":     err.Error(),
		})
		runner := analysis.NewLedgerRunner(meetingStore, summarizer, logger)
		return runner, runner.Wait, nil
	}
	logger.Info("temporal client connected", map[string]string{
		"host":      cfg.TemporalHost,
		"namespace": cfg.TemporalNamespace,
	})

	if workerError := temporalworker.StartWorker(temporalClient, meetingStore, summarizer, logger); workerError != nil {
		logger.Warn("temporal worker start failed", map[string]string{
			"error": workerError.Error(),
		})
	}

	cleanup := func() {
		temporalworker.StopWorker()
		temporalClient.Close()
	}
	return temporal.NewStarter(temporalClient, logger), cleanup, nil
}

func logStartupConfig(logger *logging.Logger, cfg Config) {
	for key, source := range cfg.Sources {
		logger.Debug("config value resolved", map[string]string{
			"key":    key,
			"source": string(source),
		})
	}
}
