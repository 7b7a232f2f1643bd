package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"activitytrack/internal/config"
	"activitytrack/internal/database"
	"activitytrack/internal/flush"
	"activitytrack/internal/logger"
	"activitytrack/internal/platform"
	"activitytrack/internal/reminder"
	"activitytrack/internal/repository"
	"activitytrack/internal/service"
	"activitytrack/internal/stats"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "config/local.yaml", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting activity tracker",
		zap.String("env", cfg.Env),
		zap.String("config_path", *configPath),
	)

	// Initialize database
	db, err := database.New(cfg.StoragePath, log.Logger)
	if err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Failed to close database", zap.Error(err))
		}
	}()

	// Initialize platform
	platformInstance, err := platform.NewPlatform()
	if err != nil {
		log.Fatal("Failed to initialize platform", zap.Error(err))
	}

	hostname := "unknown"
	if info, err := platformInstance.GetSystemInfo(); err == nil {
		hostname = info.Hostname
		log.Info("Host information",
			zap.String("os", info.OS),
			zap.String("arch", info.Arch),
			zap.String("hostname", info.Hostname),
		)
	}

	// Register this run as a new session
	repo := repository.NewStatsRepository(db.DB)
	sessionID := uuid.NewString()
	if err := repo.CreateSession(sessionID, hostname, time.Now()); err != nil {
		log.Fatal("Failed to create session", zap.Error(err))
	}

	// Initialize activity state
	state := stats.New(stats.Options{
		IdleThreshold: time.Duration(cfg.Tracking.IdleThreshold) * time.Second,
		SuspendGap:    time.Duration(cfg.Tracking.SuspendGapThreshold) * time.Second,
	}, log.Logger)

	// Initialize flusher
	flusher := flush.NewFlusher(
		state,
		repo,
		time.Duration(cfg.Tracking.FlushInterval)*time.Second,
		log.Logger,
	)

	// Initialize break reminder
	breakReminder := reminder.NewBreakReminder(state, reminder.Config{
		Enabled:       cfg.Reminder.Enabled,
		Interval:      time.Duration(cfg.Reminder.IntervalMinutes) * time.Minute,
		BreakDuration: time.Duration(cfg.Reminder.BreakDurationMinutes) * time.Minute,
	}, log.Logger)

	// Default notification sink; a desktop frontend can replace this via
	// SetNotifyFunc.
	breakReminder.SetNotifyFunc(func(title, message string) {
		log.Info("Break reminder",
			zap.String("title", title),
			zap.String("message", message),
		)
	})

	// Initialize tracking service
	trackingService := service.NewTrackingService(
		platformInstance,
		state,
		flusher,
		breakReminder,
		time.Duration(cfg.Tracking.TickInterval)*time.Second,
		sessionID,
		log.Logger,
	)

	// Start tracking service
	if err := trackingService.Start(); err != nil {
		log.Fatal("Failed to start tracking service", zap.Error(err))
	}

	log.Info("Activity tracker started successfully",
		zap.String("session_id", sessionID),
	)

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quit
	log.Info("Received shutdown signal", zap.String("signal", sig.String()))

	log.Info("Shutting down activity tracker...")

	// Stop tracking service (synchronous, with timeout)
	done := make(chan struct{})
	go func() {
		trackingService.Stop()
		close(done)
	}()

	select {
	case <-done:
		log.Info("Tracking service stopped successfully")
	case <-time.After(3 * time.Second):
		log.Warn("Shutdown timeout reached, forcing immediate exit")
		os.Exit(1)
	}

	// Prune rows past the retention window before exiting
	if cfg.Tracking.DataRetentionDays >= 0 {
		if err := repo.CleanupOlderThan(cfg.Tracking.DataRetentionDays, time.Now()); err != nil {
			log.Error("Failed to clean up old data", zap.Error(err))
		}
	}

	log.Info("Activity tracker stopped")

	// Force exit immediately to ensure process terminates
	// Windows hooks can prevent normal exit, so we must force it
	os.Exit(0)
}
