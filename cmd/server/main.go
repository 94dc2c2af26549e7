package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/boris-gans/note-gen/internal/bus"
	"github.com/boris-gans/note-gen/internal/config"
	"github.com/boris-gans/note-gen/internal/llm"
	"github.com/boris-gans/note-gen/internal/metrics"
	"github.com/boris-gans/note-gen/internal/outline"
	"github.com/boris-gans/note-gen/internal/server"
	"github.com/boris-gans/note-gen/internal/session"
	"github.com/boris-gans/note-gen/internal/store"
	"github.com/boris-gans/note-gen/internal/study"
	"github.com/boris-gans/note-gen/internal/transcription"
)

const (
	defaultConfigPath = "configs/config.yaml"
	serviceName       = "note-gen"
	serviceVersion    = "1.0.0"
)

func main() {
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := initLogger(cfg.Logging)

	logger.Info("Service starting",
		slog.String("service", serviceName),
		slog.String("version", serviceVersion),
		slog.String("config_path", *configPath),
	)

	logger.Info("Configuration loaded",
		slog.Int("http_port", cfg.HTTP.Port),
		slog.String("http_address", cfg.HTTP.Address),
		slog.Int("sample_rate", cfg.Audio.SampleRate),
		slog.Float64("chunk_duration", cfg.Audio.ChunkDurationSeconds),
		slog.String("transcription_endpoint", cfg.Transcription.Endpoint),
		slog.String("llm_model", cfg.LLM.Model),
		slog.String("db_path", cfg.Storage.DBPath),
		slog.String("log_level", cfg.Logging.Level),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	appMetrics := metrics.NewMetrics()
	logger.Info("Prometheus metrics initialized")

	if err := os.MkdirAll(cfg.Storage.DataDir, 0o755); err != nil {
		logger.Error("Failed to create data directory", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Storage.DBPath), 0o755); err != nil {
		logger.Error("Failed to create database directory", slog.String("error", err.Error()))
		os.Exit(1)
	}
	db, err := store.Open(cfg.Storage.DBPath)
	if err != nil {
		logger.Error("Failed to open database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer db.Close()
	logger.Info("Database opened", slog.String("path", cfg.Storage.DBPath))

	transcriber, err := transcription.NewClient(transcription.Config{
		Endpoint:      cfg.Transcription.Endpoint,
		APIKey:        cfg.Transcription.APIKey,
		Timeout:       cfg.Transcription.GetTimeoutDuration(),
		MaxRetries:    cfg.Transcription.MaxRetries,
		MaxConcurrent: cfg.Transcription.MaxConcurrent,
		Language:      cfg.Transcription.Language,
		Model:         cfg.Transcription.Model,
	})
	if err != nil {
		logger.Error("Failed to create transcription client", slog.String("error", err.Error()))
		os.Exit(1)
	}

	llmClient, err := llm.NewClient(llm.Config{
		APIKeys: cfg.LLM.APIKeys,
		Model:   cfg.LLM.Model,
		Timeout: cfg.LLM.GetTimeoutDuration(),
	}, logger)
	if err != nil {
		logger.Error("Failed to create LLM client", slog.String("error", err.Error()))
		os.Exit(1)
	}

	eventBus := bus.New()

	manager, err := session.NewManager(cfg, logger, eventBus, appMetrics, db,
		transcriber, llmClient, llmClient)
	if err != nil {
		logger.Error("Failed to create session manager", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("Session manager initialized",
		slog.Duration("session_timeout", cfg.Audio.GetSessionTimeout()),
	)

	studySvc, err := study.NewService(llmClient, db, appMetrics, logger)
	if err != nil {
		logger.Error("Failed to create study service", slog.String("error", err.Error()))
		os.Exit(1)
	}

	provider := outline.NewTextProvider()

	// Slides inbox: files dropped into the inbox named <session-id>.<ext>
	// attach automatically to that session.
	var watcher *outline.Watcher
	if cfg.Slides.WatchEnabled {
		if err := os.MkdirAll(cfg.Slides.InboxDir, 0o755); err != nil {
			logger.Error("Failed to create slides inbox", slog.String("error", err.Error()))
			os.Exit(1)
		}
		handler := func(ctx context.Context, path string) error {
			base := filepath.Base(path)
			sessionID := strings.TrimSuffix(base, filepath.Ext(base))
			parsed, err := provider.Parse(ctx, path)
			if err != nil {
				return err
			}
			return manager.AttachOutline(sessionID, parsed)
		}
		watcher, err = outline.NewWatcher(cfg.Slides.InboxDir, provider, handler, logger, 4)
		if err != nil {
			logger.Error("Failed to create slides watcher", slog.String("error", err.Error()))
			os.Exit(1)
		}
		go func() {
			if err := watcher.Start(ctx); err != nil && err != context.Canceled {
				logger.Error("Slides watcher exited", slog.String("error", err.Error()))
			}
		}()
	}

	httpServer := server.NewHTTPServer(cfg, logger, manager, studySvc, provider,
		db, eventBus, appMetrics)
	if err := httpServer.Start(); err != nil {
		logger.Error("Failed to start HTTP server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	logger.Info("Service started successfully, waiting for signals...",
		slog.String("http_address", fmt.Sprintf("%s:%d", cfg.HTTP.Address, cfg.HTTP.Port)),
	)

	select {
	case sig := <-sigChan:
		logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
	case <-ctx.Done():
		logger.Info("Context cancelled, shutting down")
	}

	logger.Info("Starting graceful shutdown...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Stop(shutdownCtx); err != nil {
		logger.Error("Error stopping HTTP server", slog.String("error", err.Error()))
	}

	if watcher != nil {
		watcher.Stop()
	}

	manager.Stop()

	logger.Info("Service stopped")
}

// initLogger creates and configures the structured logger based on configuration
func initLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	var output *os.File
	switch cfg.Output {
	case "stderr":
		output = os.Stderr
	case "stdout", "":
		output = os.Stdout
	default:
		file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file %s: %v, falling back to stdout\n", cfg.Output, err)
			output = os.Stdout
		} else {
			output = file
		}
	}

	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(output, opts)
	default:
		handler = slog.NewTextHandler(output, opts)
	}

	return slog.New(handler)
}
