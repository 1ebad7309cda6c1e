package ops

import (
	"context"
	"fmt"
	"time"

	"github.com/hugoduncan/mcp-tasks/internal/config"
	"github.com/hugoduncan/mcp-tasks/internal/execstate"
	"github.com/hugoduncan/mcp-tasks/internal/store"
	"github.com/hugoduncan/mcp-tasks/internal/syncengine"
	"github.com/hugoduncan/mcp-tasks/internal/tasks"
	"github.com/hugoduncan/mcp-tasks/internal/validation"
	"github.com/hugoduncan/mcp-tasks/internal/workon"
)

// Context carries the per-invocation, adapter-supplied environment an
// operation needs beyond its own arguments: the working directory
// execution state lives in, and a cancellation signal for blocking steps
// (spec §5 "suspension/blocking points").
type Context struct {
	WorkingDir string
	Ctx        context.Context
}

func (c Context) context() context.Context {
	if c.Ctx != nil {
		return c.Ctx
	}
	return context.Background()
}

func syncOpts(cfg *config.Resolved, message string) syncengine.Options {
	return syncengine.Options{
		TasksDir:         cfg.ResolvedTasksDir,
		LockTimeout:      time.Duration(cfg.LockTimeoutMs) * time.Millisecond,
		LockPollInterval: time.Duration(cfg.LockPollIntervalMs) * time.Millisecond,
		GitEnabled:       cfg.UseGit,
		GitSyncEnabled:   cfg.EnableGitSync,
		CommitMessage:    message,
		TasksRepoDir:     cfg.MainRepoDir,
	}
}

func gitChunk(status syncengine.GitStatus) Chunk {
	payload := map[string]interface{}{}
	switch {
	case !status.Attempted:
		return Chunk{}
	case status.Success:
		payload["git-status"] = "success"
		if status.Commit != "" {
			payload["git-commit"] = status.Commit
		}
		if status.Error != "" {
			payload["git-error"] = status.Error
		}
	default:
		payload["git-status"] = "error"
		payload["git-error"] = status.Error
	}
	return JSONChunk(payload)
}

func withGitChunk(r Response, status syncengine.GitStatus) Response {
	if !status.Attempted {
		return r
	}
	r.Chunks = append(r.Chunks, gitChunk(status))
	return r
}

// AddTaskArgs is add-task's argument set (spec §6).
type AddTaskArgs struct {
	Category    string
	Title       string
	Description string
	Type        tasks.Type
	ParentID    *int64
	Prepend     bool
	Relations   []tasks.Relation
}

// AddTask creates a task (spec §6 "add-task").
func AddTask(c Context, cfg *config.Resolved, args AddTaskArgs) Response {
	const op = "add-task"
	result, status, err := syncengine.Mutate(c.context(), syncOpts(cfg, fmt.Sprintf("mcp-tasks: add task %q", args.Title)),
		func(r *tasks.Repo) (*tasks.Task, bool, error) {
			t, err := r.Add(tasks.Spec{
				Category:    args.Category,
				Title:       args.Title,
				Description: args.Description,
				Type:        args.Type,
				ParentID:    args.ParentID,
				Prepend:     args.Prepend,
				Relations:   args.Relations,
			})
			return t, err == nil, err
		})
	if err != nil {
		return ErrorResponse(wrap(op, err))
	}

	resp := Text("created task %d: %s", result.ID, result.Title).WithJSON(result)
	return withGitChunk(resp, status)
}

// UpdateTaskArgs is update-task's argument set (spec §6).
type UpdateTaskArgs struct {
	TaskID int64
	Patch  map[string]interface{}
}

// UpdateTask merges a patch onto an existing task (spec §6 "update-task").
func UpdateTask(c Context, cfg *config.Resolved, args UpdateTaskArgs) Response {
	const op = "update-task"
	patch := applySharedContextPrefix(c.WorkingDir, args.Patch)
	result, status, err := syncengine.Mutate(c.context(), syncOpts(cfg, fmt.Sprintf("mcp-tasks: update task %d", args.TaskID)),
		func(r *tasks.Repo) (*tasks.Task, bool, error) {
			t, err := r.Update(args.TaskID, patch)
			return t, err == nil, err
		})
	if err != nil {
		return ErrorResponse(wrap(op, err))
	}

	resp := Text("updated task %d", result.ID).WithJSON(result)
	return withGitChunk(resp, status)
}

// applySharedContextPrefix prefixes a shared-context-append entry with
// "Task N: " when dir's execution state names an in-progress task-id N
// (spec I6); a direct append with no execution state passes through
// unprefixed. Returns a copy so the caller's patch map is left untouched.
func applySharedContextPrefix(dir string, patch map[string]interface{}) map[string]interface{} {
	entry, ok := patch["shared-context-append"].(string)
	if !ok {
		return patch
	}
	state := execstate.Read(dir)
	if state == nil || state.TaskID == nil {
		return patch
	}
	out := make(map[string]interface{}, len(patch))
	for k, v := range patch {
		out[k] = v
	}
	out["shared-context-append"] = fmt.Sprintf("Task %d: %s", *state.TaskID, entry)
	return out
}

// SelectTasksArgs is select-tasks' argument set (spec §6).
type SelectTasksArgs struct {
	TaskID       *int64
	Category     string
	ParentID     *int64
	TitlePattern string
	Type         tasks.Type
	Status       string
	Limit        int
	Unique       bool
}

// SelectTasksResult bundles matches with the reporting metadata (spec §6
// "list plus metadata including total-matches and ... completed-child
// count").
type SelectTasksResult struct {
	Tasks             []*tasks.Task `json:"tasks"`
	TotalMatches      int           `json:"total-matches"`
	OpenTaskCount     int           `json:"open-task-count"`
	CompletedChildren *int          `json:"completed-children,omitempty"`
}

// SelectTasks queries the repository without taking the lock (spec §4.9
// "Read operations skip the lock and sync").
func SelectTasks(cfg *config.Resolved, args SelectTasksArgs) Response {
	const op = "select-tasks"
	paths := store.NewPaths(cfg.ResolvedTasksDir)
	active, err := store.Load(paths.Active)
	if err != nil {
		return ErrorResponse(wrap(op, err))
	}
	archived, err := store.Load(paths.Archive)
	if err != nil {
		return ErrorResponse(wrap(op, err))
	}
	repo, err := tasks.Load(active, archived)
	if err != nil {
		return ErrorResponse(wrap(op, err))
	}

	res, err := repo.Query(tasks.Filters{
		TaskID:       args.TaskID,
		Category:     args.Category,
		ParentID:     args.ParentID,
		TitlePattern: args.TitlePattern,
		Type:         args.Type,
		Status:       args.Status,
		Limit:        args.Limit,
		Unique:       args.Unique,
	})
	if err != nil {
		return ErrorResponse(wrap(op, err))
	}

	out := SelectTasksResult{Tasks: res.Tasks, TotalMatches: res.TotalMatches, OpenTaskCount: len(active)}
	if res.HasCompletedChildInfo {
		n := res.CompletedChildren
		out.CompletedChildren = &n
	}
	return Text("found %d matching task(s)", res.TotalMatches).WithJSON(out)
}

// CompleteTaskArgs is complete-task's argument set (spec §6). Exactly one
// of TaskID or Title should be supplied by the caller; Title resolution
// happens via a unique? query performed by the adapter before this is
// called, so this operation takes a resolved TaskID.
type CompleteTaskArgs struct {
	TaskID            int64
	CompletionComment string
	WorktreeDir       string // non-empty when the invocation ran inside a worktree
}

// CompleteTask marks a task closed, archiving it and any resolved
// children atomically, then runs the worktree cleanup coordinator (spec
// §4.4 mark-complete, §4.8 "Completion coordinator", P6).
func CompleteTask(c Context, cfg *config.Resolved, args CompleteTaskArgs) Response {
	const op = "complete-task"

	var children []*tasks.Task
	result, status, err := syncengine.Mutate(c.context(), syncOpts(cfg, fmt.Sprintf("mcp-tasks: complete task %d", args.TaskID)),
		func(r *tasks.Repo) (*tasks.Task, bool, error) {
			existing := r.Get(args.TaskID)
			children = r.GetChildren(args.TaskID)
			if err := validation.ForComplete(children)(args.TaskID, existing); err != nil {
				return nil, false, wrapValidation(op, args.TaskID, err)
			}

			if existing != nil && existing.Type == tasks.TypeStory {
				for _, child := range children {
					if _, err := r.MarkComplete(child.ID, ""); err != nil {
						return nil, false, err
					}
				}
			}
			t, err := r.MarkComplete(args.TaskID, args.CompletionComment)
			return t, err == nil, err
		})
	if err != nil {
		return ErrorResponse(wrap(op, err))
	}

	resp := Text("completed task %d: %s", result.ID, result.Title).WithJSON(result)
	resp = withGitChunk(resp, status)

	if warning := workon.CleanupAfterCompletion(cfg, result, args.WorktreeDir); warning != "" {
		resp = resp.WithText("%s", warning)
	}

	// Completing a story child leaves the story in progress: drop only
	// task-id so the next child inherits story-id/task-start-time (spec
	// §4.7 "Complete story child task"). A standalone task or the story
	// itself clears the whole file.
	var execErr error
	if result.ParentID != nil {
		execErr = execstate.RemoveTaskID(c.WorkingDir)
	} else {
		execErr = execstate.Clear(c.WorkingDir)
	}
	if execErr != nil {
		resp = resp.WithText("execution state cleanup warning: %v", execErr)
	}
	return resp
}

// DeleteTaskArgs is delete-task's argument set (spec §6).
type DeleteTaskArgs struct {
	TaskID int64
}

// DeleteTask marks a task deleted, rejecting parents with non-closed
// children (spec §4.4 mark-deleted).
func DeleteTask(c Context, cfg *config.Resolved, args DeleteTaskArgs) Response {
	const op = "delete-task"

	result, status, err := syncengine.Mutate(c.context(), syncOpts(cfg, fmt.Sprintf("mcp-tasks: delete task %d", args.TaskID)),
		func(r *tasks.Repo) (*tasks.Task, bool, error) {
			existing := r.Get(args.TaskID)
			children := r.GetChildren(args.TaskID)
			if err := validation.ForDelete(children)(args.TaskID, existing); err != nil {
				return nil, false, wrapValidation(op, args.TaskID, err)
			}
			t, err := r.MarkDeleted(args.TaskID)
			return t, err == nil, err
		})
	if err != nil {
		return ErrorResponse(wrap(op, err))
	}

	resp := Text("deleted task %d", result.ID).WithJSON(result)
	return withGitChunk(resp, status)
}

// ReopenTaskArgs is reopen-task's argument set (spec §6).
type ReopenTaskArgs struct {
	TaskID int64
}

// ReopenTask moves a closed task back to open (spec §4.4 reopen).
func ReopenTask(c Context, cfg *config.Resolved, args ReopenTaskArgs) Response {
	const op = "reopen-task"

	result, status, err := syncengine.Mutate(c.context(), syncOpts(cfg, fmt.Sprintf("mcp-tasks: reopen task %d", args.TaskID)),
		func(r *tasks.Repo) (*tasks.Task, bool, error) {
			existing := r.Get(args.TaskID)
			if err := validation.ForReopen()(args.TaskID, existing); err != nil {
				return nil, false, wrapValidation(op, args.TaskID, err)
			}
			t, err := r.Reopen(args.TaskID)
			return t, err == nil, err
		})
	if err != nil {
		return ErrorResponse(wrap(op, err))
	}

	resp := Text("reopened task %d", result.ID).WithJSON(result)
	return withGitChunk(resp, status)
}

// WorkOnArgs is work-on's argument set (spec §6).
type WorkOnArgs struct {
	TaskID int64
}

// WorkOn prepares the branch/worktree environment for a task and writes
// the execution state when no directory switch is needed (spec §4.8).
func WorkOn(c Context, cfg *config.Resolved, args WorkOnArgs) Response {
	const op = "work-on"

	paths := store.NewPaths(cfg.ResolvedTasksDir)
	active, err := store.Load(paths.Active)
	if err != nil {
		return ErrorResponse(wrap(op, err))
	}
	archived, err := store.Load(paths.Archive)
	if err != nil {
		return ErrorResponse(wrap(op, err))
	}
	repo, err := tasks.Load(active, archived)
	if err != nil {
		return ErrorResponse(wrap(op, err))
	}

	task := repo.Get(args.TaskID)
	if task == nil {
		return ErrorResponse(&Error{Kind: ErrNotFound, AttemptedOperation: op, Message: fmt.Sprintf("task %d not found", args.TaskID)})
	}

	var parentStory *tasks.Task
	if task.ParentID != nil {
		parentStory = repo.Get(*task.ParentID)
		if parentStory == nil {
			return ErrorResponse(&Error{Kind: ErrNotFound, AttemptedOperation: op, Message: fmt.Sprintf("parent story %d not found", *task.ParentID)})
		}
	}

	env, err := workon.Prepare(cfg, task, parentStory)
	if err != nil {
		return ErrorResponse(wrap(op, err))
	}

	resp := Text("environment ready for task %d", task.ID).WithJSON(env)
	if !env.NeedsDirectorySwitch {
		startTime := time.Now().UTC().Format(time.RFC3339)
		state := execstate.State{TaskStartTime: startTime}
		taskID := task.ID
		state.TaskID = &taskID
		if parentStory != nil {
			storyID := parentStory.ID
			state.StoryID = &storyID
		}
		if err := execstate.Write(c.WorkingDir, state); err != nil {
			return ErrorResponse(wrap(op, err))
		}
	} else {
		resp = resp.WithText("%s", env.DirectorySwitchMessage)
	}
	return resp
}

// ExecutionStateArgs is execution-state's argument set (spec §6).
type ExecutionStateArgs struct {
	Action  string // "write" | "clear"
	TaskID  *int64
	StoryID *int64
}

// ExecutionState performs a direct write or clear of the execution state
// file, bypassing the work-on derivation (spec §6 "execution-state
// {action: write|clear, ...}").
func ExecutionState(c Context, args ExecutionStateArgs) Response {
	const op = "execution-state"
	switch args.Action {
	case "write":
		state := execstate.State{TaskID: args.TaskID, StoryID: args.StoryID, TaskStartTime: time.Now().UTC().Format(time.RFC3339)}
		if err := execstate.Write(c.WorkingDir, state); err != nil {
			return ErrorResponse(wrap(op, err))
		}
		return Text("execution state written").WithJSON(state)
	case "clear":
		if err := execstate.Clear(c.WorkingDir); err != nil {
			return ErrorResponse(wrap(op, err))
		}
		return Text("execution state cleared")
	default:
		return ErrorResponse(&Error{Kind: ErrValidation, AttemptedOperation: op, Message: fmt.Sprintf("unknown action %q", args.Action)})
	}
}

func wrapValidation(op string, taskID int64, err error) *Error {
	return &Error{Kind: ErrState, AttemptedOperation: op, Message: err.Error()}
}
