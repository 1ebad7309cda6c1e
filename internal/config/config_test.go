package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func mkGitDir(t *testing.T, dir string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".git"), 0o755))
}

func TestLoadDefaultsWithNoConfigFile(t *testing.T) {
	dir := t.TempDir()
	mkGitDir(t, dir)

	r, err := Load(dir)
	require.NoError(t, err)
	require.Equal(t, WorktreePrefixProjectName, r.WorktreePrefix)
	require.Equal(t, 4, r.BranchTitleWords)
	require.Equal(t, 30000, r.LockTimeoutMs)
	require.Equal(t, 100, r.LockPollIntervalMs)
	require.True(t, r.UseGit, "use-git? auto-detected from .git presence")
	require.Equal(t, dir, r.MainRepoDir)
}

func TestLoadFindsConfigFileUpTheTree(t *testing.T) {
	root := t.TempDir()
	mkGitDir(t, root)
	sub := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(sub, 0o755))

	cfg := `{:tasks-dir "./custom-tasks" :branch-title-words 2}`
	require.NoError(t, os.WriteFile(filepath.Join(root, FileName), []byte(cfg), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "custom-tasks"), 0o755))

	r, err := Load(sub)
	require.NoError(t, err)
	require.Equal(t, 2, r.BranchTitleWords)
	require.Equal(t, filepath.Join(root, "custom-tasks"), r.ResolvedTasksDir)
	require.Equal(t, filepath.Join(root, FileName), r.ConfigFileUsed)
}

func TestResolveMainRepoFromSubdirNamedMain(t *testing.T) {
	root := t.TempDir()
	mainDir := filepath.Join(root, "proj-main")
	mkGitDir(t, mainDir)

	got, err := resolveMainRepo(root)
	require.NoError(t, err)
	require.Equal(t, mainDir, got)
}

func TestResolveMainRepoFallsBackToStartDir(t *testing.T) {
	root := t.TempDir()
	got, err := resolveMainRepo(root)
	require.NoError(t, err)
	require.Equal(t, root, got)
}

func TestResolveMainRepoFromWorktreeGitFile(t *testing.T) {
	main := t.TempDir()
	mkGitDir(t, main)
	worktreesDir := filepath.Join(main, ".git", "worktrees", "feature")
	require.NoError(t, os.MkdirAll(worktreesDir, 0o755))

	wt := t.TempDir()
	gitFile := filepath.Join(wt, ".git")
	require.NoError(t, os.WriteFile(gitFile, []byte("gitdir: "+worktreesDir+"\n"), 0o644))

	got, err := resolveMainRepo(wt)
	require.NoError(t, err)
	require.Equal(t, main, got)
}

func TestLoadRejectsNonExistentExplicitTasksDir(t *testing.T) {
	root := t.TempDir()
	mkGitDir(t, root)
	cfg := `{:tasks-dir "/does/not/exist"}`
	require.NoError(t, os.WriteFile(filepath.Join(root, FileName), []byte(cfg), 0o644))

	_, err := Load(root)
	require.Error(t, err)
}
