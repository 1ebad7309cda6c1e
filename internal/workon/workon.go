// Package workon implements the work-on coordinator (C8): branch and
// worktree derivation, reconciliation with the current working
// directory, and post-completion worktree cleanup (spec §4.8).
package workon

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/hugoduncan/mcp-tasks/internal/config"
	"github.com/hugoduncan/mcp-tasks/internal/git"
	"github.com/hugoduncan/mcp-tasks/internal/tasks"
)

// Environment is what work-on reports back to the caller (spec §4.8
// "Outputs").
type Environment struct {
	Task *tasks.Task

	BranchName      string
	BranchCreated   bool
	BranchSwitched  bool
	WorktreePath    string
	WorktreeName    string
	WorktreeCreated bool
	WorktreeClean   bool

	ExecStatePath          string
	NeedsDirectorySwitch   bool
	DirectorySwitchMessage string
}

// Prepare runs the work-on algorithm for task, given its parent story (if
// any) and the resolved configuration (spec §4.8 steps 1-4).
func Prepare(cfg *config.Resolved, task, parentStory *tasks.Task) (*Environment, error) {
	title := task.Title
	sourceID := task.ID
	if parentStory != nil {
		title = parentStory.Title
		sourceID = parentStory.ID
	}

	branchName := git.BranchName(sourceID, title, cfg.BranchTitleWords)
	env := &Environment{Task: task, BranchName: branchName}

	switch {
	case cfg.WorktreeManagement:
		if err := prepareWorktree(cfg, env); err != nil {
			return nil, err
		}
	case cfg.BranchManagement:
		if err := prepareBranch(cfg, env); err != nil {
			return nil, err
		}
	}

	return env, nil
}

func prepareWorktree(cfg *config.Resolved, env *Environment) error {
	mainRepo := git.New(cfg.MainRepoDir)

	if path, found, err := mainRepo.FindWorktreeForBranch(env.BranchName); err != nil {
		return fmt.Errorf("workon: find-worktree-for-branch: %w", err)
	} else if found {
		env.WorktreePath = path
	} else {
		env.WorktreePath = deriveWorktreePath(cfg, env.BranchName)
	}
	env.WorktreeName = filepath.Base(env.WorktreePath)

	if _, err := os.Stat(env.WorktreePath); os.IsNotExist(err) {
		base := cfg.BaseBranch
		if base == "" {
			var derr error
			base, derr = mainRepo.DefaultBranch()
			if derr != nil {
				return fmt.Errorf("workon: default-branch: %w", derr)
			}
		}
		if err := mainRepo.WorktreeAdd(env.WorktreePath, env.BranchName, base); err != nil {
			return fmt.Errorf("workon: worktree-add: %w", err)
		}
		env.WorktreeCreated = true
		env.BranchCreated = true
		env.NeedsDirectorySwitch = true
		env.DirectorySwitchMessage = fmt.Sprintf(
			"Worktree created at %s; start a new session there to continue.", env.WorktreePath)
		return nil
	}

	inside, err := isWithin(cfg.BaseDir, env.WorktreePath)
	if err != nil {
		return fmt.Errorf("workon: check working directory: %w", err)
	}
	if !inside {
		env.NeedsDirectorySwitch = true
		env.DirectorySwitchMessage = fmt.Sprintf(
			"Worktree already exists at %s; switch there to continue.", env.WorktreePath)
		return nil
	}

	wt := git.New(env.WorktreePath)
	current, err := wt.CurrentBranch()
	if err != nil {
		return fmt.Errorf("workon: current-branch: %w", err)
	}
	if current != env.BranchName {
		return fmt.Errorf("workon: worktree at %s is on unexpected branch %s, expected %s",
			env.WorktreePath, current, env.BranchName)
	}
	dirty, err := wt.HasUncommittedChanges()
	if err != nil {
		return fmt.Errorf("workon: uncommitted-changes: %w", err)
	}
	env.WorktreeClean = !dirty
	return nil
}

func prepareBranch(cfg *config.Resolved, env *Environment) error {
	a := git.New(cfg.BaseDir)
	current, err := a.CurrentBranch()
	if err != nil {
		return fmt.Errorf("workon: current-branch: %w", err)
	}
	if current == env.BranchName {
		return nil
	}

	dirty, err := a.HasUncommittedChanges()
	if err != nil {
		return fmt.Errorf("workon: uncommitted-changes: %w", err)
	}
	if dirty {
		return fmt.Errorf("workon: refusing to switch branch with uncommitted changes")
	}

	base := cfg.BaseBranch
	if base == "" {
		base, err = a.DefaultBranch()
		if err != nil {
			return fmt.Errorf("workon: default-branch: %w", err)
		}
	}
	if err := a.Checkout(base); err != nil {
		return fmt.Errorf("workon: checkout base %s: %w", base, err)
	}
	_ = a.Pull() // local-only pull errors are ignored per spec §4.8 step 4

	if a.BranchExists(env.BranchName) {
		if err := a.Checkout(env.BranchName); err != nil {
			return fmt.Errorf("workon: checkout %s: %w", env.BranchName, err)
		}
	} else {
		if err := a.CreateAndCheckout(env.BranchName, base); err != nil {
			return fmt.Errorf("workon: create-and-checkout %s: %w", env.BranchName, err)
		}
		env.BranchCreated = true
	}
	env.BranchSwitched = true
	return nil
}

// deriveWorktreePath builds the sibling directory name
// "{prefix}-{branch-source-id}-{slug}" (spec §4.8 step 3b). The
// project-name prefix is the parent directory's basename, not
// MainRepoDir's own basename, so a "<project>/<name>-main" checkout
// layout still yields "<project>-{slug}" rather than "<name>-main-{slug}".
func deriveWorktreePath(cfg *config.Resolved, branchName string) string {
	parent := filepath.Dir(cfg.MainRepoDir)
	name := branchName
	if cfg.WorktreePrefix == config.WorktreePrefixProjectName {
		name = filepath.Base(parent) + "-" + branchName
	}
	return filepath.Join(parent, name)
}

func isWithin(dir, candidate string) (bool, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return false, err
	}
	absCandidate, err := filepath.Abs(candidate)
	if err != nil {
		return false, err
	}
	rel, err := filepath.Rel(absCandidate, absDir)
	if err != nil {
		return false, err
	}
	return rel == "." || (len(rel) > 0 && rel[0] != '.'), nil
}

// CleanupAfterCompletion removes the task's worktree once it has been
// marked closed and committed, when the task is standalone (no parent)
// and worktree-management? is enabled (spec §4.8 "Completion
// coordinator"). Cleanup failures degrade to a warning string rather
// than an error.
func CleanupAfterCompletion(cfg *config.Resolved, task *tasks.Task, completedInWorktree string) (warning string) {
	if !cfg.WorktreeManagement || task.ParentID != nil || completedInWorktree == "" {
		return ""
	}

	wt := git.New(completedInWorktree)
	dirty, err := wt.HasUncommittedChanges()
	if err != nil {
		return fmt.Sprintf("worktree cleanup skipped: %v", err)
	}
	if dirty {
		return "worktree cleanup skipped: uncommitted changes remain"
	}

	pushed, err := wt.AllPushed()
	if err != nil {
		return fmt.Sprintf("worktree cleanup skipped: %v", err)
	}
	if !pushed {
		return "worktree cleanup skipped: unpushed commits remain"
	}

	mainRepo := git.New(cfg.MainRepoDir)
	if err := mainRepo.WorktreeRemove(completedInWorktree, false); err != nil {
		return fmt.Sprintf("worktree cleanup skipped: %v", err)
	}
	return ""
}
