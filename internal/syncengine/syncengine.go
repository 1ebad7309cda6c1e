// Package syncengine implements the sync policy (C6): acquire the lock,
// pull before mutating, reload, mutate, save, release the lock, then
// commit and attempt a push outside the lock (spec §4.6).
package syncengine

import (
	"context"
	"fmt"
	"time"

	"github.com/hugoduncan/mcp-tasks/internal/debug"
	"github.com/hugoduncan/mcp-tasks/internal/git"
	"github.com/hugoduncan/mcp-tasks/internal/lock"
	"github.com/hugoduncan/mcp-tasks/internal/store"
	"github.com/hugoduncan/mcp-tasks/internal/tasks"
)

// Options configures one engine invocation.
type Options struct {
	TasksDir         string
	LockTimeout      time.Duration
	LockPollInterval time.Duration
	GitEnabled       bool
	GitSyncEnabled   bool
	CommitMessage    string // built by the caller once the mutation result is known
	TasksRepoDir     string // directory holding the tasks directory's .git, for git invocations
}

// GitStatus reports the outcome of the post-mutation commit/push (spec §6
// "status chunk {git-status, git-commit, git-error?}").
type GitStatus struct {
	Attempted bool
	Success   bool
	Commit    string
	Error     string
}

// Mutate runs fn against a freshly reloaded Repo under the full sync
// policy and returns fn's result alongside the git status of the
// subsequent commit/push (spec §4.6 steps 1-7).
//
// fn receives the reloaded repository and returns the value to hand back
// to the caller; syncengine only cares whether fn returned an error (no
// save/commit happens on error) and, when it succeeds, whether the repo
// was actually mutated (commit is skipped otherwise).
func Mutate[T any](ctx context.Context, opts Options, fn func(r *tasks.Repo) (T, bool, error)) (T, GitStatus, error) {
	var zero T

	l, err := lock.Acquire(ctx, opts.TasksDir, opts.LockTimeout, opts.LockPollInterval)
	if err != nil {
		return zero, GitStatus{}, fmt.Errorf("syncengine: %w", err)
	}
	defer func() { _ = l.Release() }()

	if opts.GitSyncEnabled {
		if err := git.New(opts.TasksRepoDir).Pull(); err != nil {
			return zero, GitStatus{}, fmt.Errorf("syncengine: sync pull: %w", err)
		}
	}

	paths := store.NewPaths(opts.TasksDir)
	active, err := store.Load(paths.Active)
	if err != nil {
		return zero, GitStatus{}, fmt.Errorf("syncengine: load active: %w", err)
	}
	archived, err := store.Load(paths.Archive)
	if err != nil {
		return zero, GitStatus{}, fmt.Errorf("syncengine: load archive: %w", err)
	}

	repo, err := tasks.Load(active, archived)
	if err != nil {
		return zero, GitStatus{}, fmt.Errorf("syncengine: rebuild repo: %w", err)
	}

	result, mutated, err := fn(repo)
	if err != nil {
		return zero, GitStatus{}, err
	}
	if !mutated {
		return result, GitStatus{}, nil
	}

	newActive, newArchived := repo.Snapshot()
	if err := store.Save(paths.Active, newActive); err != nil {
		return zero, GitStatus{}, fmt.Errorf("syncengine: save active: %w", err)
	}
	if err := store.Save(paths.Archive, newArchived); err != nil {
		return zero, GitStatus{}, fmt.Errorf("syncengine: save archive: %w", err)
	}

	if err := l.Release(); err != nil {
		return zero, GitStatus{}, fmt.Errorf("syncengine: release lock: %w", err)
	}
	l = nil

	if !opts.GitEnabled {
		return result, GitStatus{}, nil
	}

	status := commitAndPush(opts, paths)
	return result, status, nil
}

func commitAndPush(opts Options, paths store.Paths) GitStatus {
	a := git.New(opts.TasksRepoDir)
	sha, err := a.CommitTaskChanges([]string{paths.Active, paths.Archive}, opts.CommitMessage)
	if err != nil {
		return GitStatus{Attempted: true, Error: err.Error()}
	}
	if pushErr := a.Push(); pushErr != nil {
		// Push failures are logged but never invalidate the operation
		// (spec §4.6 step 7: last-writer-wins for push).
		debug.Logf("syncengine: push failed: %v", pushErr)
		return GitStatus{Attempted: true, Success: true, Commit: sha, Error: "push: " + pushErr.Error()}
	}
	return GitStatus{Attempted: true, Success: true, Commit: sha}
}
