package database

import (
	"fmt"
	"strings"
	"time"
)

// StartAttempt inserts an attempt row, or resets it if the run already
// recorded that attempt number
func (db *DB) StartAttempt(runID string, attempt int, startedAt time.Time) error {
	_, err := db.conn.Exec(`
		INSERT INTO attempts (run_id, attempt, started_at)
		VALUES (?, ?, ?)
		ON CONFLICT(run_id, attempt) DO UPDATE SET started_at = excluded.started_at
	`, runID, attempt, startedAt)
	if err != nil {
		return fmt.Errorf("failed to start attempt: %w", err)
	}
	return nil
}

// RecordState stores the most recent state classified for an attempt
func (db *DB) RecordState(runID string, attempt int, state string) error {
	return db.updateAttempt(runID, attempt, "last_state = ?", state)
}

// RecordVerdict stores the evaluator verdict for an attempt
func (db *DB) RecordVerdict(runID string, attempt int, state, verdict, reason string) error {
	return db.updateAttempt(runID, attempt, "last_state = ?, verdict = ?, reason = ?", state, verdict, reason)
}

// RecordPause marks an attempt as paused with the states it covered
func (db *DB) RecordPause(runID string, attempt int, checked []string) error {
	return db.updateAttempt(runID, attempt, "paused = 1, checked = ?", strings.Join(checked, ","))
}

// RecordResult stores the ledger row logged for an attempt
func (db *DB) RecordResult(runID string, attempt int, result string) error {
	return db.updateAttempt(runID, attempt, "result = ?", result)
}

func (db *DB) updateAttempt(runID string, attempt int, set string, args ...interface{}) error {
	args = append(args, runID, attempt)
	result, err := db.conn.Exec(
		fmt.Sprintf("UPDATE attempts SET %s WHERE run_id = ? AND attempt = ?", set),
		args...,
	)
	if err != nil {
		return fmt.Errorf("failed to update attempt %d: %w", attempt, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("attempt %d of run %s: %w", attempt, runID, ErrNotFound)
	}
	return nil
}

// ListAttempts returns the attempts of a run in order
func (db *DB) ListAttempts(runID string) ([]*Attempt, error) {
	rows, err := db.conn.Query(`
		SELECT id, run_id, attempt, started_at, last_state, verdict, reason, checked, paused, result
		FROM attempts
		WHERE run_id = ?
		ORDER BY attempt
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}
	defer rows.Close()

	var attempts []*Attempt
	for rows.Next() {
		a := &Attempt{}
		var checked string
		if err := rows.Scan(&a.ID, &a.RunID, &a.Attempt, &a.StartedAt, &a.LastState,
			&a.Verdict, &a.Reason, &checked, &a.Paused, &a.Result); err != nil {
			return nil, fmt.Errorf("failed to scan attempt: %w", err)
		}
		if checked != "" {
			a.Checked = strings.Split(checked, ",")
		}
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}
