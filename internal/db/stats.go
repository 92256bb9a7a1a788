package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/j-veylop/comment-archive/internal/logger"
	"github.com/j-veylop/comment-archive/internal/models"
)

// DailyCounts returns the number of comments per UTC day on or after since,
// oldest first. Days without comments are omitted.
func (db *DB) DailyCounts(ctx context.Context, since time.Time) ([]models.DateCount, error) {
	query := `
		SELECT SUBSTR(created_at, 1, 10) AS day, COUNT(*)
		FROM comments
		WHERE created_at >= ?
		GROUP BY day
		ORDER BY day ASC
	`

	rows, err := db.QueryContext(ctx, query, formatTime(models.DayOf(since)))
	if err != nil {
		return nil, fmt.Errorf("failed to query daily counts: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logger.Error("failed to close rows", "error", err)
		}
	}()

	var counts []models.DateCount
	for rows.Next() {
		var dayStr string
		var dc models.DateCount
		if err := rows.Scan(&dayStr, &dc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan daily count: %w", err)
		}
		day, err := time.Parse(dayPrefixLayout, dayStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse day %q: %w", dayStr, err)
		}
		dc.Date = day
		counts = append(counts, dc)
	}

	return counts, rows.Err()
}

// InsertBuildRun records the outcome of a build.
func (db *DB) InsertBuildRun(ctx context.Context, run *models.BuildRun) error {
	query := `
		INSERT INTO build_runs (started_at, duration_ms, days, total, fetched, forced, error)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	startedAt := run.StartedAt
	if startedAt.IsZero() {
		startedAt = time.Now()
	}

	result, err := db.ExecContext(ctx, query,
		formatTime(startedAt),
		run.Duration.Milliseconds(),
		run.Days,
		run.Total,
		run.Fetched,
		run.Forced,
		nullString(run.Error),
	)
	if err != nil {
		return fmt.Errorf("failed to insert build run: %w", err)
	}

	id, err := result.LastInsertId()
	if err == nil {
		run.ID = id
	}

	return nil
}

// RecentBuildRuns returns the most recent build runs, newest first.
func (db *DB) RecentBuildRuns(ctx context.Context, limit int) ([]models.BuildRun, error) {
	query := `
		SELECT id, started_at, duration_ms, days, total, fetched, forced, error
		FROM build_runs
		ORDER BY started_at DESC, id DESC
		LIMIT ?
	`

	rows, err := db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query build runs: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logger.Error("failed to close rows", "error", err)
		}
	}()

	var runs []models.BuildRun
	for rows.Next() {
		var run models.BuildRun
		var startedAt string
		var durationMs int64
		var errStr sql.NullString
		if err := rows.Scan(&run.ID, &startedAt, &durationMs, &run.Days, &run.Total,
			&run.Fetched, &run.Forced, &errStr); err != nil {
			return nil, fmt.Errorf("failed to scan build run: %w", err)
		}
		if t, ok := parseTimeString(startedAt); ok {
			run.StartedAt = t
		}
		run.Duration = time.Duration(durationMs) * time.Millisecond
		run.Error = errStr.String
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// nullString returns a sql.NullString from a string.
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
