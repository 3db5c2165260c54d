package database

import (
	"fmt"
	"time"
)

// RecordCatalogEntry stores a newly catalogued screen
func (db *DB) RecordCatalogEntry(runID string, attempt int, area string, index int, path string, addedAt time.Time) (int64, error) {
	result, err := db.conn.Exec(`
		INSERT INTO catalog_entries (run_id, attempt, area, entry_index, path, added_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, runID, attempt, area, index, path, addedAt)
	if err != nil {
		return 0, fmt.Errorf("failed to record catalog entry: %w", err)
	}
	return result.LastInsertId()
}

// ListCatalogEntries returns entries for an area, or all areas when area is empty
func (db *DB) ListCatalogEntries(area string) ([]*CatalogEntry, error) {
	rows, err := db.conn.Query(`
		SELECT id, run_id, attempt, area, entry_index, path, added_at
		FROM catalog_entries
		WHERE ? = '' OR area = ?
		ORDER BY area, entry_index
	`, area, area)
	if err != nil {
		return nil, fmt.Errorf("failed to list catalog entries: %w", err)
	}
	defer rows.Close()

	var entries []*CatalogEntry
	for rows.Next() {
		e := &CatalogEntry{}
		if err := rows.Scan(&e.ID, &e.RunID, &e.Attempt, &e.Area, &e.Index, &e.Path, &e.AddedAt); err != nil {
			return nil, fmt.Errorf("failed to scan catalog entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// CountByArea returns how many entries were catalogued per area
func (db *DB) CountByArea() (map[string]int, error) {
	rows, err := db.conn.Query(`
		SELECT area, COUNT(*)
		FROM catalog_entries
		GROUP BY area
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to count catalog entries: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var area string
		var n int
		if err := rows.Scan(&area, &n); err != nil {
			return nil, err
		}
		counts[area] = n
	}
	return counts, rows.Err()
}
