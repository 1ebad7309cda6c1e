// Package execstate implements the per-working-directory execution state
// file (C7): which task, and optional parent story, the current
// directory is executing (spec §4.7).
package execstate

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/hugoduncan/mcp-tasks/internal/ednconf"
)

// FileName is the state file's name, written in the current working
// directory (not the tasks directory).
const FileName = ".mcp-tasks-current.edn"

// State is the execution-state record (spec §3 ExecutionState). TaskID
// is absent between child tasks of a story that has just completed one
// child but not yet started the next.
type State struct {
	TaskID        *int64
	StoryID       *int64
	TaskStartTime string
}

// Path returns the state file path under dir.
func Path(dir string) string {
	return filepath.Join(dir, FileName)
}

// Write replaces dir's state file wholesale with s (spec §4.7 "write:
// whole-map replace").
func Write(dir string, s State) error {
	m := ednconf.NewMap()
	if s.TaskID != nil {
		m.Set("task-id", *s.TaskID)
	}
	if s.StoryID != nil {
		m.Set("story-id", *s.StoryID)
	}
	m.Set("task-start-time", s.TaskStartTime)

	path := Path(dir)
	if err := os.WriteFile(path, []byte(ednconf.Encode(m)+"\n"), 0644); err != nil { // #nosec G306 - execution state is not sensitive
		return fmt.Errorf("execstate: write %s: %w", path, err)
	}
	return nil
}

// Clear deletes dir's state file if present; a missing file is not an
// error (spec §4.7 "clear: delete file if present").
func Clear(dir string) error {
	path := Path(dir)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("execstate: clear %s: %w", path, err)
	}
	return nil
}

// Read returns dir's state, or nil if the file is missing or malformed
// (spec §4.7 "read: return map or nil if missing/malformed").
func Read(dir string) *State {
	path := Path(dir)
	raw, err := os.ReadFile(path) // #nosec G304 - path is the fixed per-directory sentinel file
	if err != nil {
		return nil
	}
	m, err := ednconf.DecodeMap(string(raw))
	if err != nil {
		return nil
	}

	s := &State{TaskStartTime: m.GetString("task-start-time")}
	if tid, ok := m.GetInt("task-id"); ok {
		s.TaskID = &tid
	}
	if sid, ok := m.GetInt("story-id"); ok {
		s.StoryID = &sid
	}
	return s
}

// RemoveTaskID transforms dir's state by clearing task-id while
// preserving story-id and task-start-time (spec §4.7 "Complete story
// child task: remove task-id, keep story-id and task-start-time"). If no
// story-id remains, the file is cleared entirely.
func RemoveTaskID(dir string) error {
	s := Read(dir)
	if s == nil || s.StoryID == nil {
		return Clear(dir)
	}
	return Write(dir, State{StoryID: s.StoryID, TaskStartTime: s.TaskStartTime})
}
