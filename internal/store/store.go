// Package store implements the file store (spec §4.3): loading, appending,
// and atomically overwriting the EDNL task files. Every mutation here is
// expected to run while the caller holds an internal/lock.Lock; this
// package itself is not concurrency-safe across processes on its own.
package store

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/hugoduncan/mcp-tasks/internal/ednl"
	"github.com/hugoduncan/mcp-tasks/internal/tasks"
)

const (
	ActiveFileName   = "tasks.ednl"
	ArchiveFileName  = "complete.ednl"
	filePermissions  = 0644
	dirPermissions   = 0750
	tempFilePatternX = ".tmp-*"
)

// Load reads path and returns its tasks in file order. A missing file is
// treated as empty, not an error, so a fresh tasks directory need not be
// pre-seeded.
func Load(path string) ([]*tasks.Task, error) {
	f, err := os.Open(path) // #nosec G304 - path resolved from config, not user input at call site
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	defer f.Close()

	ts, err := ednl.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("store: load %s: %w", path, err)
	}
	return ts, nil
}

// Save rewrites path to contain exactly ts, one EDNL line per task, via a
// temp-file-plus-atomic-rename so no partial write is ever observable
// (spec §4.3, P3). On failure the previous file on disk is left intact.
func Save(path string, ts []*tasks.Task) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, dirPermissions); err != nil {
		return fmt.Errorf("store: mkdir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+tempFilePatternX+"-"+uuid.NewString())
	if err != nil {
		return fmt.Errorf("store: create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	// Best-effort cleanup if we exit before the rename below succeeds.
	succeeded := false
	defer func() {
		if !succeeded {
			_ = os.Remove(tmpPath)
		}
	}()

	if err := ednl.WriteAll(tmp, ts); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("store: write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("store: sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("store: close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, filePermissions); err != nil {
		return fmt.Errorf("store: chmod temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("store: rename into place: %w", err)
	}
	succeeded = true
	return nil
}

// Append adds a single task to the end of path without rewriting the rest
// of the file, matching spec §4.2's "adding a task ≡ appending one line".
func Append(path string, t *tasks.Task) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, dirPermissions); err != nil {
		return fmt.Errorf("store: mkdir %s: %w", dir, err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, filePermissions) // #nosec G304
	if err != nil {
		return fmt.Errorf("store: open %s for append: %w", path, err)
	}
	defer f.Close()

	if _, err := f.WriteString(ednl.Encode(t) + "\n"); err != nil {
		return fmt.Errorf("store: append write: %w", err)
	}
	return f.Sync()
}

// Paths bundles the two EDNL file paths for a resolved tasks directory.
type Paths struct {
	Active  string
	Archive string
}

// NewPaths returns the standard tasks.ednl/complete.ednl paths under dir.
func NewPaths(dir string) Paths {
	return Paths{
		Active:  filepath.Join(dir, ActiveFileName),
		Archive: filepath.Join(dir, ArchiveFileName),
	}
}
