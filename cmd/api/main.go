// Command api is the DRVN appointment reminder service.
//
// It serves the health/trigger/test HTTP API and runs the hourly
// reminder scan and daily retention sweep on an in-process cron.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"

	"github.com/76ahmad/DRVN/internal/api"
	"github.com/76ahmad/DRVN/internal/api/handler"
	"github.com/76ahmad/DRVN/internal/config"
	"github.com/76ahmad/DRVN/internal/db"
	"github.com/76ahmad/DRVN/internal/notify"
	"github.com/76ahmad/DRVN/internal/reminder"
	"github.com/76ahmad/DRVN/internal/schedule"
	"github.com/76ahmad/DRVN/internal/store"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	// Load .env if present
	_ = godotenv.Load(".env")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logger.Error("Invalid REMINDER_TIMEZONE", "timezone", cfg.Timezone, "error", err)
		os.Exit(1)
	}

	// Context with signal handling
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	// Connect to database
	logger.Info("Connecting to database...")
	pool, err := db.New(ctx, cfg)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("Database connected",
		"min_conns", cfg.DBPoolMinConns,
		"max_conns", cfg.DBPoolMaxConns)

	st := store.New(pool.Pool)

	// Push transport (optional; scan stays disabled without it)
	sender, err := notify.NewFCMSender(ctx, cfg.FCMCredentialsFile, logger)
	if err != nil {
		logger.Error("Failed to initialize FCM", "error", err)
		os.Exit(1)
	}

	var engine *reminder.Engine
	if sender != nil {
		engine = reminder.NewEngine(st, st, sender, loc, logger)
	}
	retention := time.Duration(cfg.RetentionDays) * 24 * time.Hour
	sweeper := reminder.NewSweeper(st, retention, logger)

	// Cron trigger: hourly scan, daily sweep
	trigger := schedule.NewTrigger(logger)
	if engine != nil {
		if err := trigger.AddScan(cfg.ScanCron, engine); err != nil {
			logger.Error("Invalid REMINDER_SCAN_CRON", "expr", cfg.ScanCron, "error", err)
			os.Exit(1)
		}
		logger.Info("Reminder scan scheduled", "cron", cfg.ScanCron, "timezone", cfg.Timezone)
	} else {
		logger.Info("Reminder scan disabled (no FIREBASE_CREDENTIALS_FILE)")
	}
	if err := trigger.AddSweep(cfg.SweepCron, sweeper); err != nil {
		logger.Error("Invalid REMINDER_SWEEP_CRON", "expr", cfg.SweepCron, "error", err)
		os.Exit(1)
	}
	logger.Info("Retention sweep scheduled", "cron", cfg.SweepCron, "retention_days", cfg.RetentionDays)
	trigger.Start()
	defer trigger.Stop()

	// Create router
	var senderIface reminder.Sender
	if sender != nil {
		senderIface = sender
	}
	h := handler.New(pool, engine, sweeper, st, senderIface, cfg, logger)
	router := api.NewRouter(h, cfg)

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.APIHost, cfg.APIPort)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in background
	go func() {
		logger.Info("Starting DRVN Reminder API",
			"addr", addr,
			"environment", cfg.Environment,
			"docs", fmt.Sprintf("http://localhost:%d/docs/", cfg.APIPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt
	<-ctx.Done()
	logger.Info("Shutting down...")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown error", "error", err)
	}
	logger.Info("Server stopped")
}
