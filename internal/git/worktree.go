// Package git implements the git adapter (C5): a thin wrapper over the
// system git binary, invoked one call at a time as a child process. It
// never embeds a git library and never assumes a call is safe to run
// concurrently with another (spec §9 "treat git as an external process").
package git

import (
	"fmt"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// Result is the outcome of a single git invocation (spec §4.5 "every
// operation returns {ok, payload, stderr}").
type Result struct {
	OK      bool
	Payload string
	Stderr  string
}

// Adapter runs git commands rooted at a fixed repository directory.
type Adapter struct {
	dir string
}

// New returns an Adapter whose commands run with dir as the git working
// directory (either the main repo or a worktree, per caller's need; spec
// §5 "branch/worktree operations ... are always performed from the main
// repo path ... repository-wide operations use main-repo-dir,
// context-specific ones use base-dir").
func New(dir string) *Adapter {
	return &Adapter{dir: dir}
}

func (a *Adapter) run(args ...string) Result {
	cmd := exec.Command("git", args...) // #nosec G204 - args are adapter-internal, never raw user input
	cmd.Dir = a.dir
	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return Result{
		OK:      err == nil,
		Payload: strings.TrimSpace(stdout.String()),
		Stderr:  strings.TrimSpace(stderr.String()),
	}
}

// CurrentBranch returns the branch checked out at dir.
func (a *Adapter) CurrentBranch() (string, error) {
	r := a.run("rev-parse", "--abbrev-ref", "HEAD")
	if !r.OK {
		return "", fmt.Errorf("git: current-branch: %s", r.Stderr)
	}
	return r.Payload, nil
}

// BranchExists reports whether branch exists locally or on the origin
// remote.
func (a *Adapter) BranchExists(branch string) bool {
	if a.run("show-ref", "--verify", "--quiet", "refs/heads/"+branch).OK {
		return true
	}
	return a.run("show-ref", "--verify", "--quiet", "refs/remotes/origin/"+branch).OK
}

// DefaultBranch returns the remote's default branch (via the symbolic
// origin/HEAD ref), falling back to the current local branch name when
// no remote default is configured (spec §4.5 default-branch).
func (a *Adapter) DefaultBranch() (string, error) {
	r := a.run("symbolic-ref", "--short", "refs/remotes/origin/HEAD")
	if r.OK && r.Payload != "" {
		return strings.TrimPrefix(r.Payload, "origin/"), nil
	}
	return a.CurrentBranch()
}

// Checkout switches to an existing branch.
func (a *Adapter) Checkout(branch string) error {
	r := a.run("checkout", branch)
	if !r.OK {
		return fmt.Errorf("git: checkout %s: %s", branch, r.Stderr)
	}
	return nil
}

// CreateAndCheckout creates branch from base and switches to it.
func (a *Adapter) CreateAndCheckout(branch, base string) error {
	r := a.run("checkout", "-b", branch, base)
	if !r.OK {
		return fmt.Errorf("git: create-and-checkout %s from %s: %s", branch, base, r.Stderr)
	}
	return nil
}

// Pull runs a pull in dir. A missing remote or an empty repository are
// treated as a silent no-op per sync policy (spec §4.6 step 2); any other
// failure is returned.
func (a *Adapter) Pull() error {
	if !a.run("remote", "get-url", "origin").OK {
		return nil // no remote configured: skip silently
	}
	r := a.run("pull", "--ff-only")
	if r.OK {
		return nil
	}
	if strings.Contains(r.Stderr, "does not have any commits yet") ||
		strings.Contains(r.Stderr, "couldn't find remote ref") {
		return nil // empty repository: skip silently
	}
	return fmt.Errorf("git: pull: %s", r.Stderr)
}

// HasUncommittedChanges reports whether the working tree has any
// modification, staged or not.
func (a *Adapter) HasUncommittedChanges() (bool, error) {
	r := a.run("status", "--porcelain")
	if !r.OK {
		return false, fmt.Errorf("git: status: %s", r.Stderr)
	}
	return r.Payload != "", nil
}

// AllPushed reports whether the current branch has no commits ahead of
// its upstream. When there is no upstream configured, it reports true
// (nothing to push to).
func (a *Adapter) AllPushed() (bool, error) {
	r := a.run("rev-list", "--count", "@{u}..HEAD")
	if !r.OK {
		// No upstream is not an error here: treat as nothing to push.
		return true, nil
	}
	n, err := strconv.Atoi(r.Payload)
	if err != nil {
		return false, fmt.Errorf("git: all-pushed: unexpected output %q", r.Payload)
	}
	return n == 0, nil
}

// WorktreeEntry is one entry from `git worktree list`.
type WorktreeEntry struct {
	Path   string
	Branch string
}

// WorktreeList returns every registered worktree.
func (a *Adapter) WorktreeList() ([]WorktreeEntry, error) {
	r := a.run("worktree", "list", "--porcelain")
	if !r.OK {
		return nil, fmt.Errorf("git: worktree-list: %s", r.Stderr)
	}

	var entries []WorktreeEntry
	var cur WorktreeEntry
	for _, line := range strings.Split(r.Payload, "\n") {
		switch {
		case strings.HasPrefix(line, "worktree "):
			if cur.Path != "" {
				entries = append(entries, cur)
			}
			cur = WorktreeEntry{Path: strings.TrimPrefix(line, "worktree ")}
		case strings.HasPrefix(line, "branch "):
			ref := strings.TrimPrefix(line, "branch ")
			cur.Branch = strings.TrimPrefix(ref, "refs/heads/")
		}
	}
	if cur.Path != "" {
		entries = append(entries, cur)
	}
	return entries, nil
}

// FindWorktreeForBranch returns the path of the worktree currently
// checked out on branch, if any.
func (a *Adapter) FindWorktreeForBranch(branch string) (string, bool, error) {
	entries, err := a.WorktreeList()
	if err != nil {
		return "", false, err
	}
	for _, e := range entries {
		if e.Branch == branch {
			return e.Path, true, nil
		}
	}
	return "", false, nil
}

// WorktreeAdd creates a new worktree at path on branch, creating the
// branch from base if it does not already exist.
func (a *Adapter) WorktreeAdd(path, branch, base string) error {
	if err := pruneStale(a); err != nil {
		return err
	}
	var r Result
	if a.BranchExists(branch) {
		r = a.run("worktree", "add", path, branch)
	} else {
		r = a.run("worktree", "add", "-b", branch, path, base)
	}
	if !r.OK {
		return fmt.Errorf("git: worktree-add %s: %s", path, r.Stderr)
	}
	return nil
}

func pruneStale(a *Adapter) error {
	r := a.run("worktree", "prune")
	if !r.OK {
		return fmt.Errorf("git: worktree-prune: %s", r.Stderr)
	}
	return nil
}

// WorktreeRemove removes the worktree at path, forcing removal when
// force is set (used when the caller has already verified it is safe to
// discard, e.g. no uncommitted changes).
func (a *Adapter) WorktreeRemove(path string, force bool) error {
	args := []string{"worktree", "remove", path}
	if force {
		args = append(args, "--force")
	}
	r := a.run(args...)
	if !r.OK {
		return fmt.Errorf("git: worktree-remove %s: %s", path, r.Stderr)
	}
	return nil
}

// RepositoryInWorktree reports whether dir is itself a worktree (as
// opposed to the main checkout), by testing for the git-common-dir
// differing from git-dir.
func RepositoryInWorktree(dir string) (bool, error) {
	a := New(dir)
	gitDir := a.run("rev-parse", "--path-format=absolute", "--git-dir")
	commonDir := a.run("rev-parse", "--path-format=absolute", "--git-common-dir")
	if !gitDir.OK || !commonDir.OK {
		return false, fmt.Errorf("git: repository-in-worktree: %s", gitDir.Stderr+commonDir.Stderr)
	}
	return gitDir.Payload != commonDir.Payload, nil
}

// MainRepoFromWorktree resolves dir's main repository root via git's own
// plumbing (spec §4.5 main-repo-from-worktree), independent of the
// filesystem-level algorithm the config resolver (C1) uses before it
// knows whether git is even in play.
func MainRepoFromWorktree(dir string) (string, error) {
	a := New(dir)
	r := a.run("rev-parse", "--path-format=absolute", "--git-common-dir")
	if !r.OK {
		return "", fmt.Errorf("git: main-repo-from-worktree: %s", r.Stderr)
	}
	return filepath.Dir(r.Payload), nil
}

// CommitTaskChanges stages paths (restricted to the tasks directory) and
// commits them with message. Failures return a structured error rather
// than panicking (spec §4.5 commit-task-changes).
func (a *Adapter) CommitTaskChanges(paths []string, message string) (sha string, err error) {
	args := append([]string{"add", "--"}, paths...)
	if r := a.run(args...); !r.OK {
		return "", fmt.Errorf("git: commit-task-changes: add: %s", r.Stderr)
	}
	if r := a.run("diff", "--cached", "--quiet"); r.OK {
		return "", fmt.Errorf("git: commit-task-changes: nothing staged")
	}
	if r := a.run("commit", "-m", message); !r.OK {
		return "", fmt.Errorf("git: commit-task-changes: commit: %s", r.Stderr)
	}
	r := a.run("rev-parse", "HEAD")
	if !r.OK {
		return "", fmt.Errorf("git: commit-task-changes: rev-parse: %s", r.Stderr)
	}
	return r.Payload, nil
}

// Push attempts to push the current branch, returning any error for the
// caller to log as a non-fatal warning (spec §4.6 step 7: "push failures
// are logged but do not invalidate the operation").
func (a *Adapter) Push() error {
	r := a.run("push")
	if !r.OK {
		return fmt.Errorf("git: push: %s", r.Stderr)
	}
	return nil
}

var (
	nonSlugChars   = regexp.MustCompile(`[^a-z0-9-]+`)
	collapseDashes = regexp.MustCompile(`-+`)
)

// Slugify implements the branch/worktree title slugification rule: lower-
// case, whitespace to dashes, drop anything outside [a-z0-9-], collapse
// consecutive dashes (spec §4.5 "Title slugification").
func Slugify(title string, maxWords int) string {
	lower := strings.ToLower(title)
	fields := strings.Fields(lower)
	if maxWords > 0 && len(fields) > maxWords {
		fields = fields[:maxWords]
	}
	joined := strings.Join(fields, "-")
	joined = nonSlugChars.ReplaceAllString(joined, "-")
	joined = collapseDashes.ReplaceAllString(joined, "-")
	return strings.Trim(joined, "-")
}

// BranchName builds "{sourceID}-{slug}" (spec §4.5 "Branch name").
func BranchName(sourceID int64, title string, maxWords int) string {
	return fmt.Sprintf("%d-%s", sourceID, Slugify(title, maxWords))
}
