package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"a9admin/internal/amqp"
	"a9admin/internal/config"
	"a9admin/internal/export/sheets"
	apphttp "a9admin/internal/http"
	applog "a9admin/internal/log"
	"a9admin/internal/platform"
	"a9admin/internal/platform/memory"
	"a9admin/internal/platform/rest"
	"a9admin/internal/session"
	"a9admin/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	// Setup structured logging
	logger := applog.New(applog.DefaultConfig())
	applog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	// Sessions, saved accounts, and the audit trail live in SQLite
	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	sessions := session.NewManager(repo, cfg.SessionTTL, cfg.SecureCookies)

	// Choose platform backend (default: memory with seeded fixtures)
	var backend platform.Backend
	switch cfg.DataBackend {
	case "rest":
		backend = rest.New(cfg.PlatformAPIURL)
		logger.Info("Initialized rest platform backend", "url", cfg.PlatformAPIURL)
	default:
		backend = memory.NewSeeded()
		logger.Info("Initialized memory platform backend")
	}

	// AMQP publisher for moderation decisions (optional; without it the
	// audit trail is written synchronously)
	var publisher apphttp.StatusPublisher
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, audit entries will be written directly", "error", err)
		} else {
			publisher = amqp.NewNotifier(amqpClient)
			defer amqpClient.Close()
			logger.Info("AMQP publisher initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}

	// Google Sheets export (optional)
	var exporter apphttp.ReportExporter
	if sheets.Enabled() {
		cli, err := sheets.NewFromEnv(context.Background())
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", "error", err)
			os.Exit(1)
		}
		exporter = cli
		logger.Info("Google Sheets export enabled", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		logger.Info("Google Sheets export disabled - no GOOGLE_SPREADSHEET_ID provided")
	}

	srv := apphttp.NewServer(apphttp.Options{
		Addr:      ":" + cfg.Port,
		Backend:   backend,
		Sessions:  sessions,
		Store:     repo,
		Publisher: publisher,
		Exporter:  exporter,
		Logger:    logger.WithComponent(applog.ComponentHTTP),
		CacheTTL:  cfg.CacheTTL,
		Theme:     cfg.Theme,
		Layout:    cfg.Layout,
	})

	// Configure server timeouts and limits
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	// Graceful shutdown handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cancel()
	}()

	logger.Info("Starting a9admin server", "port", cfg.Port, "backend", cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
