package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// StartRun records the start of a run
func (db *DB) StartRun(id, mode, profile string, startedAt time.Time) error {
	_, err := db.conn.Exec(`
		INSERT INTO runs (id, mode, profile, started_at)
		VALUES (?, ?, ?, ?)
	`, id, mode, profile, startedAt)
	if err != nil {
		return fmt.Errorf("failed to start run: %w", err)
	}
	return nil
}

// FinishRun marks a run as finished. runErr may be empty.
func (db *DB) FinishRun(id string, attempts int, runErr string, finishedAt time.Time) error {
	var errMsg *string
	if runErr != "" {
		errMsg = &runErr
	}

	result, err := db.conn.Exec(`
		UPDATE runs
		SET finished_at = ?, attempts = ?, error_message = ?
		WHERE id = ?
	`, finishedAt, attempts, errMsg, id)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}

	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	return nil
}

// GetRun retrieves a run by ID
func (db *DB) GetRun(id string) (*Run, error) {
	run := &Run{}
	err := db.conn.QueryRow(`
		SELECT id, mode, profile, started_at, finished_at, attempts, error_message
		FROM runs
		WHERE id = ?
	`, id).Scan(&run.ID, &run.Mode, &run.Profile, &run.StartedAt, &run.FinishedAt, &run.Attempts, &run.ErrorMessage)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// ListRuns returns the most recent runs first
func (db *DB) ListRuns(limit int) ([]*Run, error) {
	rows, err := db.conn.Query(`
		SELECT id, mode, profile, started_at, finished_at, attempts, error_message
		FROM runs
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run := &Run{}
		if err := rows.Scan(&run.ID, &run.Mode, &run.Profile, &run.StartedAt, &run.FinishedAt, &run.Attempts, &run.ErrorMessage); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
