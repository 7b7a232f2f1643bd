package repository

import (
	"database/sql"
	"fmt"
	"time"

	"activitytrack/internal/bucket"
	"activitytrack/internal/models"
	"activitytrack/internal/stats"
)

// StatsRepository persists aggregated activity counters. All writes are
// additive upserts, so applying the same logical delta through separate
// flush cycles accumulates rather than overwrites.
type StatsRepository struct {
	db *sql.DB
}

func NewStatsRepository(db *sql.DB) *StatsRepository {
	return &StatsRepository{db: db}
}

// ApplyFlush merges one flush delta into storage in a single
// transaction. The flat counters are attributed to date; the foreground
// buffer carries its own bucket keys.
func (r *StatsRepository) ApplyFlush(date string, delta stats.FlushDelta) error {
	if delta.Empty() {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if delta.Keys > 0 || delta.Clicks > 0 || delta.MouseDistance > 0 || delta.ScrollDistance > 0 {
		_, err = tx.Exec(`
			INSERT INTO daily_stats (date, key_count, mouse_click_count, mouse_distance, scroll_distance)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(date) DO UPDATE SET
				key_count = key_count + excluded.key_count,
				mouse_click_count = mouse_click_count + excluded.mouse_click_count,
				mouse_distance = mouse_distance + excluded.mouse_distance,
				scroll_distance = scroll_distance + excluded.scroll_distance
		`, date, delta.Keys, delta.Clicks, delta.MouseDistance, delta.ScrollDistance)
		if err != nil {
			return fmt.Errorf("failed to upsert daily stats: %w", err)
		}
	}

	if len(delta.KeyHeatmap) > 0 {
		stmt, err := tx.Prepare(`
			INSERT INTO heatmap_data (date, key_code, count)
			VALUES (?, ?, ?)
			ON CONFLICT(date, key_code) DO UPDATE SET
				count = count + excluded.count
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare heatmap statement: %w", err)
		}
		defer stmt.Close()

		for keyCode, count := range delta.KeyHeatmap {
			if _, err := stmt.Exec(date, keyCode, count); err != nil {
				return fmt.Errorf("failed to upsert heatmap row: %w", err)
			}
		}
	}

	if len(delta.AppKeyCounts) > 0 {
		stmt, err := tx.Prepare(`
			INSERT INTO app_stats (date, app_name, key_count)
			VALUES (?, ?, ?)
			ON CONFLICT(date, app_name) DO UPDATE SET
				key_count = key_count + excluded.key_count
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare app stats statement: %w", err)
		}
		defer stmt.Close()

		for app, count := range delta.AppKeyCounts {
			if _, err := stmt.Exec(date, app, count); err != nil {
				return fmt.Errorf("failed to upsert app stats row: %w", err)
			}
		}
	}

	if len(delta.Foreground) > 0 {
		stmt, err := tx.Prepare(`
			INSERT INTO app_foreground_time (date, hour, app_name, duration_seconds)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(date, hour, app_name) DO UPDATE SET
				duration_seconds = duration_seconds + excluded.duration_seconds
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare foreground statement: %w", err)
		}
		defer stmt.Close()

		for key, seconds := range delta.Foreground {
			if _, err := stmt.Exec(key.Date, key.Hour, key.App, seconds); err != nil {
				return fmt.Errorf("failed to upsert foreground row: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit flush: %w", err)
	}
	return nil
}

// CreateSession records one agent run.
func (r *StatsRepository) CreateSession(id, hostname string, startedAt time.Time) error {
	_, err := r.db.Exec(`
		INSERT INTO sessions (id, hostname, started_at) VALUES (?, ?, ?)
	`, id, hostname, startedAt)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// DailyStats returns the stored aggregates for one date, or zeroes if
// nothing was recorded.
func (r *StatsRepository) DailyStats(date string) (*models.DailyStats, error) {
	row := r.db.QueryRow(`
		SELECT key_count, mouse_click_count, mouse_distance, scroll_distance
		FROM daily_stats WHERE date = ?
	`, date)

	result := &models.DailyStats{Date: date}
	err := row.Scan(&result.KeyCount, &result.ClickCount, &result.MouseDistance, &result.ScrollDistance)
	if err == sql.ErrNoRows {
		return result, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query daily stats: %w", err)
	}
	return result, nil
}

// StatsRange returns summed aggregates over [from, to] inclusive.
func (r *StatsRepository) StatsRange(from, to string) (*models.DailyStats, error) {
	row := r.db.QueryRow(`
		SELECT
			COALESCE(SUM(key_count), 0),
			COALESCE(SUM(mouse_click_count), 0),
			COALESCE(SUM(mouse_distance), 0),
			COALESCE(SUM(scroll_distance), 0)
		FROM daily_stats WHERE date BETWEEN ? AND ?
	`, from, to)

	result := &models.DailyStats{Date: from}
	if err := row.Scan(&result.KeyCount, &result.ClickCount, &result.MouseDistance, &result.ScrollDistance); err != nil {
		return nil, fmt.Errorf("failed to query stats range: %w", err)
	}
	return result, nil
}

// DailyKeyCounts returns per-day key counts over [from, to], ordered by
// date, for the history chart.
func (r *StatsRepository) DailyKeyCounts(from, to string) ([]models.DailyKeyCount, error) {
	rows, err := r.db.Query(`
		SELECT date, key_count FROM daily_stats
		WHERE date BETWEEN ? AND ? ORDER BY date
	`, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily key counts: %w", err)
	}
	defer rows.Close()

	var results []models.DailyKeyCount
	for rows.Next() {
		var row models.DailyKeyCount
		if err := rows.Scan(&row.Date, &row.KeyCount); err != nil {
			return nil, fmt.Errorf("failed to scan daily key count: %w", err)
		}
		results = append(results, row)
	}
	return results, rows.Err()
}

// HeatmapRange returns summed per-key-code counts over [from, to].
func (r *StatsRepository) HeatmapRange(from, to string) (map[uint32]uint64, error) {
	rows, err := r.db.Query(`
		SELECT key_code, SUM(count) FROM heatmap_data
		WHERE date BETWEEN ? AND ? GROUP BY key_code
	`, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query heatmap range: %w", err)
	}
	defer rows.Close()

	result := make(map[uint32]uint64)
	for rows.Next() {
		var keyCode uint32
		var count uint64
		if err := rows.Scan(&keyCode, &count); err != nil {
			return nil, fmt.Errorf("failed to scan heatmap row: %w", err)
		}
		result[keyCode] = count
	}
	return result, rows.Err()
}

// AppStatsRange returns per-application key counts over [from, to],
// most active first.
func (r *StatsRepository) AppStatsRange(from, to string) ([]models.AppKeyCount, error) {
	rows, err := r.db.Query(`
		SELECT app_name, SUM(key_count) AS total FROM app_stats
		WHERE date BETWEEN ? AND ? GROUP BY app_name ORDER BY total DESC
	`, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query app stats: %w", err)
	}
	defer rows.Close()

	var results []models.AppKeyCount
	for rows.Next() {
		var row models.AppKeyCount
		if err := rows.Scan(&row.AppName, &row.KeyCount); err != nil {
			return nil, fmt.Errorf("failed to scan app stats row: %w", err)
		}
		results = append(results, row)
	}
	return results, rows.Err()
}

// ForegroundByHour returns the per-app, per-hour screen time for one
// date, ordered by hour.
func (r *StatsRepository) ForegroundByHour(date string) ([]models.HourlyForeground, error) {
	rows, err := r.db.Query(`
		SELECT date, hour, app_name, duration_seconds FROM app_foreground_time
		WHERE date = ? ORDER BY hour, app_name
	`, date)
	if err != nil {
		return nil, fmt.Errorf("failed to query foreground time: %w", err)
	}
	defer rows.Close()

	var results []models.HourlyForeground
	for rows.Next() {
		var row models.HourlyForeground
		if err := rows.Scan(&row.Date, &row.Hour, &row.AppName, &row.DurationSeconds); err != nil {
			return nil, fmt.Errorf("failed to scan foreground row: %w", err)
		}
		results = append(results, row)
	}
	return results, rows.Err()
}

// CleanupOlderThan deletes rows older than the given number of days.
// A negative retention keeps everything.
func (r *StatsRepository) CleanupOlderThan(days int, now time.Time) error {
	if days < 0 {
		return nil
	}
	cutoff := now.AddDate(0, 0, -days).Format(bucket.DateFormat)

	for _, table := range []string{"daily_stats", "app_stats", "heatmap_data", "app_foreground_time"} {
		if _, err := r.db.Exec("DELETE FROM "+table+" WHERE date < ?", cutoff); err != nil {
			return fmt.Errorf("failed to cleanup %s: %w", table, err)
		}
	}
	return nil
}
