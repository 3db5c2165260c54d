package database

import "time"

// Run is one invocation of a bot mode
type Run struct {
	ID           string     `db:"id"`
	Mode         string     `db:"mode"`
	Profile      string     `db:"profile"`
	StartedAt    time.Time  `db:"started_at"`
	FinishedAt   *time.Time `db:"finished_at"`
	Attempts     int        `db:"attempts"`
	ErrorMessage *string    `db:"error_message"`
}

// Attempt is one seed attempt within a run
type Attempt struct {
	ID        int64     `db:"id"`
	RunID     string    `db:"run_id"`
	Attempt   int       `db:"attempt"`
	StartedAt time.Time `db:"started_at"`
	LastState string    `db:"last_state"`
	Verdict   string    `db:"verdict"`
	Reason    string    `db:"reason"`
	Checked   []string  `db:"checked"`
	Paused    bool      `db:"paused"`
	Result    string    `db:"result"`
}

// CatalogEntry records a newly catalogued screen
type CatalogEntry struct {
	ID      int64     `db:"id"`
	RunID   string    `db:"run_id"`
	Attempt int       `db:"attempt"`
	Area    string    `db:"area"`
	Index   int       `db:"entry_index"`
	Path    string    `db:"path"`
	AddedAt time.Time `db:"added_at"`
}
