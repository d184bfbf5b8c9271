package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/afroash/hydro-monitor/internal/config"
	"github.com/afroash/hydro-monitor/internal/dashboard"
	"github.com/afroash/hydro-monitor/internal/edenic"
	"github.com/afroash/hydro-monitor/internal/history"
	"github.com/afroash/hydro-monitor/internal/poller"
	"github.com/afroash/hydro-monitor/internal/sink"
)

const version = "v0.3.0"

func main() {
	configPath := flag.String("config", "configs/monitor.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := newLogger(cfg.Logging)
	logger.Info().
		Str("version", version).
		Str("device", cfg.Device.ID).
		Dur("poll_interval", cfg.Device.PollInterval).
		Msg("Starting hydro monitor")

	loc, err := cfg.Location()
	if err != nil {
		log.Fatalf("Failed to resolve timezone: %v", err)
	}

	store := history.NewStore()

	// Sinks are optional; with none configured the forwarding step is
	// skipped and the pipeline is local-only.
	var sinks []sink.Sink
	if cfg.Sheets.Enabled {
		sheetsSink, err := sink.NewSheetsSink(context.Background(), sink.SheetsConfig{
			CredentialsFile: cfg.Sheets.CredentialsFile,
			SpreadsheetID:   cfg.Sheets.SpreadsheetID,
			Worksheet:       cfg.Sheets.Worksheet,
			Timezone:        loc,
		}, logger)
		if err != nil {
			log.Fatalf("Failed to create sheets sink: %v", err)
		}
		sinks = append(sinks, sheetsSink)
	}
	if cfg.Mirror.Enabled {
		dataDir := filepath.Dir(cfg.Mirror.DBPath)
		if err := os.MkdirAll(dataDir, 0755); err != nil {
			log.Fatalf("Failed to create data directory: %v", err)
		}
		sqliteSink, err := sink.NewSQLiteSink(cfg.Mirror.DBPath, loc, logger)
		if err != nil {
			log.Fatalf("Failed to create sqlite sink: %v", err)
		}
		sinks = append(sinks, sqliteSink)
	}

	forwarder := sink.NewForwarder(sinks, sink.ForwarderConfig{
		QueueSize: cfg.Mirror.QueueSize,
	}, logger)

	client := edenic.NewClient(edenic.ClientConfig{
		BaseURL:  cfg.Device.BaseURL,
		APIKey:   cfg.Device.APIKey,
		DeviceID: cfg.Device.ID,
		Timeout:  cfg.Device.RequestTimeout,
	}, logger)

	hub := dashboard.NewHub(logger, cfg.Server.AllowedOrigins...)

	p := poller.New(client, store, forwarder, hub, poller.Config{
		Interval: cfg.Device.PollInterval,
		Lookback: cfg.Display.Lookback,
	}, logger)

	apiHandler := dashboard.NewAPIHandler(store, p, forwarder, hub, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" && r.URL.Path != "/index.html" {
			http.NotFound(w, r)
			return
		}
		http.ServeFile(w, r, "web/templates/dashboard.html")
	})
	mux.HandleFunc("/api/current", apiHandler.HandleCurrent)
	mux.HandleFunc("/api/window", apiHandler.HandleWindow)
	mux.HandleFunc("/api/stats", apiHandler.HandleStats)
	mux.HandleFunc("/ws", hub.ServeHTTP)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"status":"ok","version":"%s"}`, version)
	})

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      mux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	pollCtx, stopPolling := context.WithCancel(context.Background())
	go func() {
		if err := p.Run(pollCtx); err != nil && err != context.Canceled {
			logger.Error().Err(err).Msg("Poller exited")
		}
	}()

	go func() {
		logger.Info().Str("addr", server.Addr).Msg("Dashboard listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info().Msg("Shutting down...")

	stopPolling()
	forwarder.Stop()
	logger.Info().Msg("Forwarder stopped")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("Server shutdown error")
	}

	logger.Info().Msg("Monitor stopped")
}

// newLogger builds the process logger from the logging config
func newLogger(cfg config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var logger zerolog.Logger
	if cfg.Format == "console" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout})
	} else {
		logger = zerolog.New(os.Stdout)
	}
	return logger.Level(level).With().Timestamp().Logger()
}
