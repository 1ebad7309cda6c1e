package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hugoduncan/mcp-tasks/internal/tasks"
)

func mustTask(id int64, title string) *tasks.Task {
	return &tasks.Task{ID: id, Title: title, Status: tasks.StatusOpen, Category: "simple", Type: tasks.TypeTask}
}

func TestLoadMissingFileReturnsEmpty(t *testing.T) {
	dir := t.TempDir()
	got, err := Load(filepath.Join(dir, "tasks.ednl"))
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tasks.ednl")
	in := []*tasks.Task{mustTask(1, "A"), mustTask(2, "B")}

	require.NoError(t, Save(path, in))
	got, err := Load(path)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "A", got[0].Title)
	require.Equal(t, "B", got[1].Title)
}

func TestSaveLeavesNoTempFilesBehind(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tasks.ednl")
	require.NoError(t, Save(path, []*tasks.Task{mustTask(1, "A")}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "tasks.ednl", entries[0].Name())
}

func TestSaveOverwritesPreviousContentAtomically(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tasks.ednl")
	require.NoError(t, Save(path, []*tasks.Task{mustTask(1, "A"), mustTask(2, "B")}))
	require.NoError(t, Save(path, []*tasks.Task{mustTask(3, "C")}))

	got, err := Load(path)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, int64(3), got[0].ID)
}

func TestAppendAddsOneLineWithoutRewriting(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tasks.ednl")
	require.NoError(t, Save(path, []*tasks.Task{mustTask(1, "A")}))
	require.NoError(t, Append(path, mustTask(2, "B")))

	got, err := Load(path)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, int64(1), got[0].ID)
	require.Equal(t, int64(2), got[1].ID)
}

func TestNewPaths(t *testing.T) {
	p := NewPaths("/tmp/tasksdir")
	require.Equal(t, "/tmp/tasksdir/tasks.ednl", p.Active)
	require.Equal(t, "/tmp/tasksdir/complete.ednl", p.Archive)
}
