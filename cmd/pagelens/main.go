package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/pagelens/pagelens/internal/api"
	"github.com/pagelens/pagelens/internal/config"
	"github.com/pagelens/pagelens/internal/credentials"
	"github.com/pagelens/pagelens/internal/extract"
	"github.com/pagelens/pagelens/internal/pipeline"
	"github.com/pagelens/pagelens/internal/playbook"
	"github.com/pagelens/pagelens/internal/server"
	"github.com/pagelens/pagelens/internal/storage/sqlite"
	"github.com/pagelens/pagelens/internal/telemetry"
	"github.com/pagelens/pagelens/internal/vertex"
)

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	shutdownTracer, err := telemetry.InitTracer("pagelens", logger)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			logger.Error("failed to shutdown tracer", slog.String("error", err.Error()))
		}
	}()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Storage.Path), 0o755); err != nil {
		log.Fatalf("Failed to create storage directory: %v", err)
	}
	store, err := sqlite.New(cfg.Storage.Path)
	if err != nil {
		log.Fatalf("Failed to open storage: %v", err)
	}
	defer store.Close()

	extractor, err := extract.Named(cfg.Extract.Strategy)
	if err != nil {
		log.Fatalf("Failed to configure extractor: %v", err)
	}

	var rules playbook.RuleExtractor = playbook.Noop{}
	if cfg.Playbook.ProblemSelector != "" && cfg.Playbook.SolutionSelector != "" {
		rules = playbook.Selectors{
			Problem:  cfg.Playbook.ProblemSelector,
			Solution: cfg.Playbook.SolutionSelector,
		}
	}

	var creds credentials.Provider
	if cfg.Auth.StaticToken != "" {
		logger.Warn("using static credential; Google auth disabled")
		creds = credentials.NewStaticProvider(cfg.Auth.StaticToken)
	} else {
		creds = credentials.NewGoogleProvider()
	}

	client := vertex.NewClient(cfg.Vertex.Region, vertex.WithModel(cfg.Vertex.Model))

	p := pipeline.New(pipeline.Options{
		Settings:       store,
		Creds:          creds,
		Generator:      client,
		Extractor:      extractor,
		Rules:          rules,
		Analyses:       store,
		Logger:         logger,
		AnalyzeLimit:   cfg.Vertex.AnalyzeMaxChars,
		SummarizeLimit: cfg.Vertex.SummarizeMaxChars,
	})

	srv := server.New(cfg.Server.Port, logger)
	api.NewHandler(p, store, store, logger).Register(srv.Router)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	logger.Info("pagelens started",
		slog.Int("port", cfg.Server.Port),
		slog.String("region", cfg.Vertex.Region),
		slog.String("model", cfg.Vertex.Model),
		slog.String("extract_strategy", cfg.Extract.Strategy),
		slog.String("storage", cfg.Storage.Path),
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	case <-sigChan:
		logger.Info("shutdown signal received")
	}
}
