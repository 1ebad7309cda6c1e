package validation

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hugoduncan/mcp-tasks/internal/tasks"
)

func TestForCompleteRejectsStoryWithOpenChild(t *testing.T) {
	story := &tasks.Task{ID: 10, Type: tasks.TypeStory, Status: tasks.StatusOpen}
	child := &tasks.Task{ID: 11, Status: tasks.StatusOpen}

	err := ForComplete([]*tasks.Task{child})(story.ID, story)
	require.Error(t, err)
	require.Contains(t, err.Error(), "11")
}

func TestForCompleteAllowsStoryWithClosedChildren(t *testing.T) {
	story := &tasks.Task{ID: 10, Type: tasks.TypeStory, Status: tasks.StatusOpen}
	child := &tasks.Task{ID: 11, Status: tasks.StatusClosed}

	require.NoError(t, ForComplete([]*tasks.Task{child})(story.ID, story))
}

func TestForCompleteRejectsAlreadyClosed(t *testing.T) {
	task := &tasks.Task{ID: 1, Status: tasks.StatusClosed}
	err := ForComplete(nil)(task.ID, task)
	require.Error(t, err)
}

func TestForDeleteRejectsBlockingChild(t *testing.T) {
	parent := &tasks.Task{ID: 1, Status: tasks.StatusOpen}
	child := &tasks.Task{ID: 2, Status: tasks.StatusInProgress}

	err := ForDelete([]*tasks.Task{child})(parent.ID, parent)
	require.Error(t, err)
}

func TestForReopenRequiresClosed(t *testing.T) {
	open := &tasks.Task{ID: 1, Status: tasks.StatusOpen}
	require.Error(t, ForReopen()(open.ID, open))

	closed := &tasks.Task{ID: 1, Status: tasks.StatusClosed}
	require.NoError(t, ForReopen()(closed.ID, closed))
}

func TestChainStopsAtFirstError(t *testing.T) {
	calls := 0
	ok := func(id int64, t *tasks.Task) error { calls++; return nil }
	fail := func(id int64, t *tasks.Task) error { calls++; return require.AnError }

	err := Chain(ok, fail, ok)(1, nil)
	require.Error(t, err)
	require.Equal(t, 2, calls)
}
