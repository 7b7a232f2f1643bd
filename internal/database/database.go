package database

import (
	"database/sql"
	"fmt"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

type DB struct {
	*sql.DB
	logger *zap.Logger
}

func New(storagePath string, logger *zap.Logger) (*DB, error) {
	db, err := sql.Open("sqlite", storagePath+"?_foreign_keys=1&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	database := &DB{
		DB:     db,
		logger: logger,
	}

	if err := database.migrate(); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	logger.Info("Database connection established", zap.String("path", storagePath))
	return database, nil
}

func (db *DB) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		// Per-day aggregate counters
		`CREATE TABLE IF NOT EXISTS daily_stats (
			date TEXT PRIMARY KEY,
			key_count INTEGER NOT NULL DEFAULT 0,
			mouse_click_count INTEGER NOT NULL DEFAULT 0,
			mouse_distance REAL NOT NULL DEFAULT 0.0,
			scroll_distance REAL NOT NULL DEFAULT 0.0
		)`,
		// Per-day, per-application key counts
		`CREATE TABLE IF NOT EXISTS app_stats (
			date TEXT NOT NULL,
			app_name TEXT NOT NULL,
			key_count INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (date, app_name)
		)`,
		// Per-day, per-key-code heatmap counts
		`CREATE TABLE IF NOT EXISTS heatmap_data (
			date TEXT NOT NULL,
			key_code INTEGER NOT NULL,
			count INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (date, key_code)
		)`,
		// Foreground screen time bucketed by local hour
		`CREATE TABLE IF NOT EXISTS app_foreground_time (
			date TEXT NOT NULL,
			hour INTEGER NOT NULL,
			app_name TEXT NOT NULL,
			duration_seconds REAL NOT NULL DEFAULT 0.0,
			PRIMARY KEY (date, hour, app_name)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_app_foreground_date ON app_foreground_time(date)`,
		// One row per agent run, for diagnostics
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			hostname TEXT,
			started_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
	}

	for _, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	db.logger.Info("Database migrations completed")
	return nil
}

func (db *DB) Close() error {
	if err := db.DB.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	db.logger.Info("Database connection closed")
	return nil
}
