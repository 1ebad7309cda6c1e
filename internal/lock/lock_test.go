package lock

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAcquireCreatesMissingTasksDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "tasks-dir-not-yet-created")

	l, err := Acquire(context.Background(), dir, 200*time.Millisecond, 10*time.Millisecond)
	require.NoError(t, err)
	require.NoError(t, l.Release())

	info, err := os.Stat(dir)
	require.NoError(t, err)
	require.True(t, info.IsDir())
}

func TestAcquireTimesOutWhenAlreadyHeld(t *testing.T) {
	dir := t.TempDir()

	first, err := Acquire(context.Background(), dir, 200*time.Millisecond, 10*time.Millisecond)
	require.NoError(t, err)
	defer func() { _ = first.Release() }()

	_, err = Acquire(context.Background(), dir, 50*time.Millisecond, 10*time.Millisecond)
	require.ErrorIs(t, err, ErrTimeout)
}
