// Package config implements the configuration and repository resolver
// (C1): locating ".mcp-tasks.edn" up the directory tree, resolving the
// main git repository root relative to a worktree, and settling every
// recognized option to its effective value.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/hugoduncan/mcp-tasks/internal/debug"
	"github.com/hugoduncan/mcp-tasks/internal/ednconf"
)

// FileName is the config file searched for up the directory tree.
const FileName = ".mcp-tasks.edn"

const envPrefix = "MCP_TASKS"

// WorktreePrefix is the naming convention for derived worktree
// directories (spec §4.1 worktree-prefix).
type WorktreePrefix string

const (
	WorktreePrefixProjectName WorktreePrefix = "project-name"
	WorktreePrefixNone        WorktreePrefix = "none"
)

// Resolved is the settled configuration an operation is built from: every
// recognized option plus the three resolved absolute paths (spec §4.1
// "Resolution output").
type Resolved struct {
	UseGit             bool
	BranchManagement   bool
	WorktreeManagement bool
	WorktreePrefix     WorktreePrefix
	BaseBranch         string
	BranchTitleWords   int // 0 means unlimited
	LockTimeoutMs      int
	LockPollIntervalMs int
	EnableGitSync      bool

	BaseDir          string
	MainRepoDir      string
	ResolvedTasksDir string
	ConfigFileUsed   string
}

// Load resolves configuration starting from startDir (the process working
// directory, typically), walking up for FileName and falling back to
// defaults when none is found (spec §4.1).
func Load(startDir string) (*Resolved, error) {
	baseDir, err := canonicalize(startDir)
	if err != nil {
		return nil, fmt.Errorf("config: canonicalize %s: %w", startDir, err)
	}

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("worktree-prefix", string(WorktreePrefixProjectName))
	v.SetDefault("branch-title-words", 4)
	v.SetDefault("tasks-dir", "./.mcp-tasks")
	v.SetDefault("lock-timeout-ms", 30000)
	v.SetDefault("lock-poll-interval-ms", 100)

	configDir := baseDir
	configPath, found := findConfigFile(baseDir)
	if found {
		configDir = filepath.Dir(configPath)
		raw, err := os.ReadFile(configPath) // #nosec G304 - path found by directory-tree search, not user input
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", configPath, err)
		}
		m, err := ednconf.DecodeMap(string(raw))
		if err != nil {
			return nil, fmt.Errorf("config: malformed config at %s: %w", configPath, err)
		}
		if err := v.MergeConfigMap(rawMapFrom(m)); err != nil {
			return nil, fmt.Errorf("config: merge %s: %w", configPath, err)
		}
		debug.Logf("config: loaded %s", configPath)
	} else {
		debug.Logf("config: no %s found under %s; using defaults", FileName, baseDir)
	}

	useGitSet := v.IsSet("use-git?") || v.IsSet("use-git")
	useGit := v.GetBool("use-git?")
	if !useGit {
		useGit = v.GetBool("use-git")
	}

	mainRepoDir, err := resolveMainRepo(baseDir)
	if err != nil {
		return nil, err
	}

	if !useGitSet {
		useGit = hasGitDir(mainRepoDir)
	}

	enableGitSync := useGit
	if v.IsSet("enable-git-sync?") {
		enableGitSync = v.GetBool("enable-git-sync?")
	} else if v.IsSet("enable-git-sync") {
		enableGitSync = v.GetBool("enable-git-sync")
	}

	worktreeMgmt := v.GetBool("worktree-management?") || v.GetBool("worktree-management")
	branchMgmt := v.GetBool("branch-management?") || v.GetBool("branch-management") || worktreeMgmt

	prefix := WorktreePrefix(v.GetString("worktree-prefix"))
	if prefix != WorktreePrefixProjectName && prefix != WorktreePrefixNone {
		return nil, fmt.Errorf("config: invalid worktree-prefix %q", prefix)
	}

	titleWords := v.GetInt("branch-title-words")
	if titleWords < 0 {
		return nil, fmt.Errorf("config: branch-title-words must be positive")
	}

	tasksDirRaw := v.GetString("tasks-dir")
	tasksDir := tasksDirRaw
	if !filepath.IsAbs(tasksDir) {
		tasksDir = filepath.Join(configDir, tasksDir)
	}
	if v.InConfig("tasks-dir") {
		if _, err := os.Stat(tasksDir); err != nil {
			return nil, fmt.Errorf("config: tasks-dir %s does not exist: %w", tasksDir, err)
		}
	}

	lockTimeout := v.GetInt("lock-timeout-ms")
	lockPoll := v.GetInt("lock-poll-interval-ms")
	if lockTimeout <= 0 || lockPoll <= 0 {
		return nil, fmt.Errorf("config: lock-timeout-ms and lock-poll-interval-ms must be positive")
	}

	if useGit && !hasGitDir(mainRepoDir) {
		return nil, fmt.Errorf("config: git mode enabled but %s has no .git directory", mainRepoDir)
	}

	return &Resolved{
		UseGit:             useGit,
		BranchManagement:   branchMgmt,
		WorktreeManagement: worktreeMgmt,
		WorktreePrefix:     prefix,
		BaseBranch:         v.GetString("base-branch"),
		BranchTitleWords:   titleWords,
		LockTimeoutMs:      lockTimeout,
		LockPollIntervalMs: lockPoll,
		EnableGitSync:      enableGitSync,
		BaseDir:            baseDir,
		MainRepoDir:        mainRepoDir,
		ResolvedTasksDir:   tasksDir,
		ConfigFileUsed:     configPath,
	}, nil
}

func canonicalize(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		// A nonexistent directory (e.g. in tests) is fine to leave unresolved.
		return abs, nil
	}
	return resolved, nil
}

// findConfigFile walks from dir up through its ancestors looking for
// FileName (spec §4.1).
func findConfigFile(dir string) (string, bool) {
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

// resolveMainRepo implements the four-step main-repo resolution
// algorithm (spec §4.1).
func resolveMainRepo(startDir string) (string, error) {
	gitEntry := filepath.Join(startDir, ".git")
	info, err := os.Stat(gitEntry)

	// Step 1: startDir is a worktree if .git is a file, not a directory.
	if err == nil && !info.IsDir() {
		mainRepo, werr := mainRepoFromWorktreeGitFile(gitEntry)
		if werr != nil {
			return "", fmt.Errorf("config: malformed worktree pointer at %s: %w", gitEntry, werr)
		}
		return mainRepo, nil
	}

	// Step 2: startDir itself contains .git/.
	if err == nil && info.IsDir() {
		return startDir, nil
	}

	// Step 3: search immediate subdirectories for "*-main" or "bare"
	// containing .git.
	entries, rerr := os.ReadDir(startDir)
	if rerr == nil {
		for _, e := range entries {
			if !e.IsDir() {
				continue
			}
			name := e.Name()
			if name == "bare" || strings.HasSuffix(name, "-main") {
				candidate := filepath.Join(startDir, name)
				if hasGitDir(candidate) {
					return candidate, nil
				}
			}
		}
	}

	// Step 4: fall back to startDir.
	return startDir, nil
}

// mainRepoFromWorktreeGitFile reads a worktree's ".git" pointer file,
// extracts the gitdir line, and walks two parents up to the main repo
// root (spec §4.1 step 1). A worktree's gitdir looks like
// "<main>/.git/worktrees/<name>"; two parents above "worktrees/<name>"
// is "<main>/.git", so three parents above gitdir reaches "<main>".
func mainRepoFromWorktreeGitFile(gitFile string) (string, error) {
	raw, err := os.ReadFile(gitFile) // #nosec G304 - path is a known worktree pointer under the resolved start dir
	if err != nil {
		return "", err
	}
	line := strings.TrimSpace(string(raw))
	const prefix = "gitdir:"
	if !strings.HasPrefix(line, prefix) {
		return "", fmt.Errorf("missing %q line", prefix)
	}
	gitdir := strings.TrimSpace(strings.TrimPrefix(line, prefix))

	// gitdir: <main>/.git/worktrees/<name>
	worktreesDir := filepath.Dir(gitdir) // <main>/.git/worktrees
	dotGit := filepath.Dir(worktreesDir) // <main>/.git
	mainRepo := filepath.Dir(dotGit)     // <main>

	if !hasGitDir(mainRepo) {
		return "", fmt.Errorf("resolved main repo %s has no .git directory", mainRepo)
	}
	return mainRepo, nil
}

func hasGitDir(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, ".git"))
	return err == nil && info.IsDir()
}

// rawMapFrom flattens an ednconf.Map into the plain map[string]interface{}
// viper.MergeConfigMap expects, unwrapping keyword values to strings.
func rawMapFrom(m *ednconf.Map) map[string]interface{} {
	out := make(map[string]interface{}, m.Len())
	for _, k := range m.Keys() {
		v, _ := m.Get(k)
		out[k] = unwrapKeyword(v)
	}
	return out
}

func unwrapKeyword(v interface{}) interface{} {
	if s, ok := ednconf.Unkeyword(v); ok {
		return s
	}
	return v
}
