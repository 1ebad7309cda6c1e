package syncengine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hugoduncan/mcp-tasks/internal/lock"
	"github.com/hugoduncan/mcp-tasks/internal/store"
	"github.com/hugoduncan/mcp-tasks/internal/tasks"
)

func testOpts(dir string) Options {
	return Options{
		TasksDir:         dir,
		LockTimeout:      200 * time.Millisecond,
		LockPollInterval: 10 * time.Millisecond,
	}
}

func TestMutateAddsTaskAndPersists(t *testing.T) {
	dir := t.TempDir()

	result, status, err := Mutate(context.Background(), testOpts(dir), func(r *tasks.Repo) (*tasks.Task, bool, error) {
		task, err := r.Add(tasks.Spec{Title: "A", Category: "simple"})
		if err != nil {
			return nil, false, err
		}
		return task, true, nil
	})
	require.NoError(t, err)
	require.Equal(t, int64(1), result.ID)
	require.False(t, status.Attempted)

	paths := store.NewPaths(dir)
	active, err := store.Load(paths.Active)
	require.NoError(t, err)
	require.Len(t, active, 1)
	require.Equal(t, "A", active[0].Title)
}

func TestMutateSkipsSaveWhenNotMutated(t *testing.T) {
	dir := t.TempDir()

	_, _, err := Mutate(context.Background(), testOpts(dir), func(r *tasks.Repo) (int, bool, error) {
		return 0, false, nil
	})
	require.NoError(t, err)

	paths := store.NewPaths(dir)
	active, err := store.Load(paths.Active)
	require.NoError(t, err)
	require.Empty(t, active)
}

func TestMutatePropagatesFnError(t *testing.T) {
	dir := t.TempDir()

	_, _, err := Mutate(context.Background(), testOpts(dir), func(r *tasks.Repo) (int, bool, error) {
		_, err := r.Add(tasks.Spec{Title: ""})
		return 0, false, err
	})
	require.Error(t, err)
}

func TestMutateFailsWhenLockAlreadyHeld(t *testing.T) {
	dir := t.TempDir()

	held, err := lock.Acquire(context.Background(), dir, time.Second, 10*time.Millisecond)
	require.NoError(t, err)
	defer held.Release()

	_, _, err = Mutate(context.Background(), testOpts(dir), func(r *tasks.Repo) (int, bool, error) {
		return 0, true, nil
	})
	require.Error(t, err)
}
