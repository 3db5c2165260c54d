package ledger

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strconv"
	"syscall"
)

// LockPrompt blocks until the operator has released the results file
type LockPrompt interface {
	TableLocked(ctx context.Context, path string) error
}

// ResultsTable appends one row per completed attempt to a CSV file whose
// header is the tracked area keys.
type ResultsTable struct {
	path    string
	columns []string
	prompt  LockPrompt
	pending [][]string
	written int

	openFile func(name string, flag int, perm os.FileMode) (*os.File, error)
}

// NewResultsTable creates a table at path
func NewResultsTable(path string, columns []string, prompt LockPrompt) *ResultsTable {
	return &ResultsTable{
		path:     path,
		columns:  append([]string(nil), columns...),
		prompt:   prompt,
		openFile: os.OpenFile,
	}
}

// Path returns the CSV file path
func (r *ResultsTable) Path() string {
	return r.path
}

// Written returns how many rows this table has written
func (r *ResultsTable) Written() int {
	return r.written
}

// Append writes row. Areas missing from row are left blank. When the file
// is locked by another program the row stays buffered and the operator is
// asked to release it before retrying.
func (r *ResultsTable) Append(ctx context.Context, row map[string]int) error {
	record := make([]string, len(r.columns))
	for i, col := range r.columns {
		if v, ok := row[col]; ok {
			record[i] = strconv.Itoa(v)
		}
	}
	r.pending = append(r.pending, record)

	for {
		err := r.flush()
		if err == nil {
			return nil
		}
		if !isLocked(err) || r.prompt == nil {
			return err
		}
		if err := r.prompt.TableLocked(ctx, r.path); err != nil {
			return fmt.Errorf("results table still locked: %w", err)
		}
	}
}

// isLocked reports whether err means another process holds the file
func isLocked(err error) bool {
	if errors.Is(err, fs.ErrPermission) {
		return true
	}
	var errno syscall.Errno
	return errors.As(err, &errno) && slices.Contains(lockErrnos, errno)
}

func (r *ResultsTable) flush() error {
	header := true
	f, err := r.openFile(r.path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if errors.Is(err, fs.ErrExist) {
		header = false
		f, err = r.openFile(r.path, os.O_WRONLY|os.O_APPEND, 0644)
	}
	if err != nil {
		return fmt.Errorf("failed to open results table: %w", err)
	}

	w := csv.NewWriter(f)
	if header {
		if err := w.Write(r.columns); err != nil {
			f.Close()
			return fmt.Errorf("failed to write header: %w", err)
		}
	}
	if err := w.WriteAll(r.pending); err != nil {
		f.Close()
		return fmt.Errorf("failed to write results: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close results table: %w", err)
	}

	r.written += len(r.pending)
	r.pending = nil
	return nil
}
