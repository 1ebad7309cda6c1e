package ops

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hugoduncan/mcp-tasks/internal/config"
	"github.com/hugoduncan/mcp-tasks/internal/execstate"
	"github.com/hugoduncan/mcp-tasks/internal/tasks"
)

func testCfg(t *testing.T) (*config.Resolved, Context) {
	t.Helper()
	dir := t.TempDir()
	return &config.Resolved{
			ResolvedTasksDir:   dir,
			LockTimeoutMs:      200,
			LockPollIntervalMs: 10,
		}, Context{WorkingDir: dir}
}

func TestAddTaskThenSelectTasksFindsIt(t *testing.T) {
	cfg, c := testCfg(t)

	addResp := AddTask(c, cfg, AddTaskArgs{Category: "simple", Title: "write docs", Type: tasks.TypeTask})
	require.False(t, addResp.IsError)

	selResp := SelectTasks(cfg, SelectTasksArgs{TitlePattern: "write"})
	require.False(t, selResp.IsError)
	require.Len(t, selResp.Chunks, 2)

	result, ok := selResp.Chunks[1].JSON.(SelectTasksResult)
	require.True(t, ok)
	require.Equal(t, 1, result.TotalMatches)
	require.Equal(t, "write docs", result.Tasks[0].Title)
}

func TestUpdateTaskAppliesPatch(t *testing.T) {
	cfg, c := testCfg(t)

	addResp := AddTask(c, cfg, AddTaskArgs{Category: "simple", Title: "old title"})
	added := addResp.Chunks[1].JSON.(*tasks.Task)

	updResp := UpdateTask(c, cfg, UpdateTaskArgs{TaskID: added.ID, Patch: map[string]interface{}{"title": "new title"}})
	require.False(t, updResp.IsError)

	updated := updResp.Chunks[1].JSON.(*tasks.Task)
	require.Equal(t, "new title", updated.Title)
}

func TestUpdateTaskPrefixesSharedContextAppendFromExecutionState(t *testing.T) {
	cfg, c := testCfg(t)

	addResp := AddTask(c, cfg, AddTaskArgs{Category: "simple", Title: "task"})
	added := addResp.Chunks[1].JSON.(*tasks.Task)

	taskID := added.ID
	require.NoError(t, execstate.Write(c.WorkingDir, execstate.State{TaskID: &taskID, TaskStartTime: "2026-01-01T00:00:00Z"}))

	updResp := UpdateTask(c, cfg, UpdateTaskArgs{TaskID: added.ID, Patch: map[string]interface{}{"shared-context-append": "found the bug"}})
	require.False(t, updResp.IsError)
	updated := updResp.Chunks[1].JSON.(*tasks.Task)
	require.Equal(t, []string{fmt.Sprintf("Task %d: found the bug", taskID)}, updated.SharedContext)

	require.NoError(t, execstate.Clear(c.WorkingDir))
	updResp = UpdateTask(c, cfg, UpdateTaskArgs{TaskID: added.ID, Patch: map[string]interface{}{"shared-context-append": "direct note"}})
	require.False(t, updResp.IsError)
	updated = updResp.Chunks[1].JSON.(*tasks.Task)
	require.Equal(t, "direct note", updated.SharedContext[len(updated.SharedContext)-1])
}

func TestCompleteTaskOnStoryChildPreservesStoryExecutionState(t *testing.T) {
	cfg, c := testCfg(t)

	storyResp := AddTask(c, cfg, AddTaskArgs{Category: "simple", Title: "story", Type: tasks.TypeStory})
	story := storyResp.Chunks[1].JSON.(*tasks.Task)

	parentID := story.ID
	childResp := AddTask(c, cfg, AddTaskArgs{Category: "simple", Title: "child", ParentID: &parentID})
	child := childResp.Chunks[1].JSON.(*tasks.Task)

	childID := child.ID
	storyID := story.ID
	require.NoError(t, execstate.Write(c.WorkingDir, execstate.State{TaskID: &childID, StoryID: &storyID, TaskStartTime: "2026-01-01T00:00:00Z"}))

	completeChild := CompleteTask(c, cfg, CompleteTaskArgs{TaskID: child.ID})
	require.False(t, completeChild.IsError)

	state := execstate.Read(c.WorkingDir)
	require.NotNil(t, state)
	require.Nil(t, state.TaskID)
	require.NotNil(t, state.StoryID)
	require.Equal(t, story.ID, *state.StoryID)

	completeStory := CompleteTask(c, cfg, CompleteTaskArgs{TaskID: story.ID})
	require.False(t, completeStory.IsError)
	require.Nil(t, execstate.Read(c.WorkingDir))
}

func TestCompleteTaskRejectsStoryWithOpenChild(t *testing.T) {
	cfg, c := testCfg(t)

	storyResp := AddTask(c, cfg, AddTaskArgs{Category: "simple", Title: "story", Type: tasks.TypeStory})
	story := storyResp.Chunks[1].JSON.(*tasks.Task)

	parentID := story.ID
	AddTask(c, cfg, AddTaskArgs{Category: "simple", Title: "child", ParentID: &parentID})

	completeResp := CompleteTask(c, cfg, CompleteTaskArgs{TaskID: story.ID})
	require.True(t, completeResp.IsError)
}

func TestCompleteTaskResolvesStoryAndChildren(t *testing.T) {
	cfg, c := testCfg(t)

	storyResp := AddTask(c, cfg, AddTaskArgs{Category: "simple", Title: "story", Type: tasks.TypeStory})
	story := storyResp.Chunks[1].JSON.(*tasks.Task)

	parentID := story.ID
	childResp := AddTask(c, cfg, AddTaskArgs{Category: "simple", Title: "child", ParentID: &parentID})
	child := childResp.Chunks[1].JSON.(*tasks.Task)

	completeChild := CompleteTask(c, cfg, CompleteTaskArgs{TaskID: child.ID})
	require.False(t, completeChild.IsError)

	completeStory := CompleteTask(c, cfg, CompleteTaskArgs{TaskID: story.ID})
	require.False(t, completeStory.IsError)

	sel := SelectTasks(cfg, SelectTasksArgs{Status: "any"})
	result := sel.Chunks[1].JSON.(SelectTasksResult)
	require.Equal(t, 0, result.OpenTaskCount)
}

func TestDeleteTaskRejectsParentWithBlockingChild(t *testing.T) {
	cfg, c := testCfg(t)

	parentResp := AddTask(c, cfg, AddTaskArgs{Category: "simple", Title: "parent"})
	parent := parentResp.Chunks[1].JSON.(*tasks.Task)

	parentID := parent.ID
	AddTask(c, cfg, AddTaskArgs{Category: "simple", Title: "child", ParentID: &parentID})

	delResp := DeleteTask(c, cfg, DeleteTaskArgs{TaskID: parent.ID})
	require.True(t, delResp.IsError)
}

func TestReopenTaskRequiresClosed(t *testing.T) {
	cfg, c := testCfg(t)

	addResp := AddTask(c, cfg, AddTaskArgs{Category: "simple", Title: "task"})
	added := addResp.Chunks[1].JSON.(*tasks.Task)

	reopenResp := ReopenTask(c, cfg, ReopenTaskArgs{TaskID: added.ID})
	require.True(t, reopenResp.IsError)

	CompleteTask(c, cfg, CompleteTaskArgs{TaskID: added.ID})
	reopenResp = ReopenTask(c, cfg, ReopenTaskArgs{TaskID: added.ID})
	require.False(t, reopenResp.IsError)
}

func TestExecutionStateWriteThenClear(t *testing.T) {
	cfg, c := testCfg(t)
	_ = cfg

	taskID := int64(5)
	writeResp := ExecutionState(c, ExecutionStateArgs{Action: "write", TaskID: &taskID})
	require.False(t, writeResp.IsError)

	clearResp := ExecutionState(c, ExecutionStateArgs{Action: "clear"})
	require.False(t, clearResp.IsError)
}

func TestExecutionStateRejectsUnknownAction(t *testing.T) {
	_, c := testCfg(t)

	resp := ExecutionState(c, ExecutionStateArgs{Action: "bogus"})
	require.True(t, resp.IsError)
}
