// Package lock implements the cross-process advisory lock scoped to a
// tasks directory (spec §4.3). It polls for an OS-level file lock rather
// than using a naive lock-file-exists convention, so a dead holder never
// leaves a stale lock behind (spec §9 "Cross-process locking").
package lock

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

// ErrTimeout is returned when the lock could not be acquired within the
// configured timeout.
var ErrTimeout = errors.New("lock: acquisition timed out")

// FileName is the sentinel file the lock is taken on, inside the tasks
// directory.
const FileName = ".mcp-tasks.lock"

// Lock is a held advisory lock on a tasks directory. The zero value is not
// usable; obtain one via Acquire.
type Lock struct {
	fl *flock.Flock
}

// Acquire polls for an exclusive OS-level lock on tasksDir's sentinel file
// every pollInterval, failing with ErrTimeout once timeout elapses. The
// returned Lock must be released with Release on every exit path.
func Acquire(ctx context.Context, tasksDir string, timeout, pollInterval time.Duration) (*Lock, error) {
	if err := os.MkdirAll(tasksDir, 0o755); err != nil {
		return nil, fmt.Errorf("lock: create %s: %w", tasksDir, err)
	}
	fl := flock.New(filepath.Join(tasksDir, FileName))

	deadline := time.Now().Add(timeout)
	for {
		locked, err := fl.TryLock()
		if err != nil {
			return nil, fmt.Errorf("lock: try-lock: %w", err)
		}
		if locked {
			return &Lock{fl: fl}, nil
		}
		if time.Now().After(deadline) {
			return nil, ErrTimeout
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

// Release unlocks the lock. Safe to call on a nil receiver or multiple
// times; always call it from a deferred statement immediately after a
// successful Acquire so the lock is released on every exit path, including
// panics (spec §4.3, §5).
func (l *Lock) Release() error {
	if l == nil || l.fl == nil {
		return nil
	}
	return l.fl.Unlock()
}
