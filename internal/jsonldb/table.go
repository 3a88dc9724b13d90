// Package jsonldb provides an in-memory table of grid rows backed by a JSONL
// file, one JSON object per line.
//
// Tables are safe for concurrent use. Reload rereads the file, so a table
// can follow a file edited by another process.
package jsonldb

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"sync"

	"github.com/maruel/rowgrid/internal/rows"
)

// maxLineSize bounds the size of a single JSONL line.
const maxLineSize = 16 << 20

// Table handles storage and in-memory caching of the rows of a JSONL file.
type Table struct {
	path string
	mu   sync.RWMutex

	rows []rows.Row
}

// NewTable creates a new Table and loads all data from the file. A missing
// file is an empty table.
func NewTable(path string) (*Table, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil { //nolint:gosec // G301: 0o755 is intentional for data directories
		return nil, fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	table := &Table{path: path}
	if err := table.Reload(); err != nil {
		return nil, err
	}
	return table, nil
}

// Path returns the file backing the table.
func (t *Table) Path() string {
	return t.path
}

// Reload rereads the file. On error the previous rows are kept.
func (t *Table) Reload() error {
	loaded, err := readRows(t.path)
	if err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rows = loaded
	return nil
}

func readRows(path string) ([]rows.Row, error) {
	f, err := os.Open(path) //nolint:gosec // G304: path is provided by the operator
	if err != nil {
		if os.IsNotExist(err) {
			return []rows.Row{}, nil
		}
		return nil, fmt.Errorf("failed to open table file %s: %w", path, err)
	}
	defer func() {
		_ = f.Close()
	}()

	out := []rows.Row{}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	line := 0
	for scanner.Scan() {
		line++
		b := bytes.TrimSpace(scanner.Bytes())
		if len(b) == 0 {
			continue
		}
		var row rows.Row
		if err := json.Unmarshal(b, &row); err != nil {
			return nil, fmt.Errorf("failed to unmarshal row at %s:%d: %w", path, line, err)
		}
		out = append(out, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read table file %s: %w", path, err)
	}
	return out, nil
}

// Len returns the number of rows.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.rows)
}

// All returns an iterator over all rows.
//
// Rows are shared with the table; callers must not modify them.
func (t *Table) All() iter.Seq[rows.Row] {
	return func(yield func(rows.Row) bool) {
		t.mu.RLock()
		defer t.mu.RUnlock()
		for _, row := range t.rows {
			if !yield(row) {
				return
			}
		}
	}
}

// Append adds a new row to the table and persists it.
func (t *Table) Append(row rows.Row) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	data, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("failed to marshal row: %w", err)
	}
	f, err := os.OpenFile(t.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644) //nolint:gosec // G302: rows are not secret
	if err != nil {
		return fmt.Errorf("failed to open table file for append: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()
	data = append(data, '\n')
	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("failed to write row: %w", err)
	}
	t.rows = append(t.rows, row)
	return nil
}

// Replace replaces all rows with the provided slice and persists it.
func (t *Table) Replace(all []rows.Row) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	f, err := os.Create(t.path) //nolint:gosec // G304: path is provided by the operator
	if err != nil {
		return fmt.Errorf("failed to create table file: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	writer := bufio.NewWriter(f)
	for _, row := range all {
		data, err := json.Marshal(row)
		if err != nil {
			return fmt.Errorf("failed to marshal row: %w", err)
		}
		if _, err := writer.Write(data); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
		if err := writer.WriteByte('\n'); err != nil {
			return fmt.Errorf("failed to write newline: %w", err)
		}
	}
	if err := writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush writer: %w", err)
	}
	t.rows = all
	return nil
}
