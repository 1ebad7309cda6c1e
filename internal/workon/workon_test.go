package workon

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hugoduncan/mcp-tasks/internal/config"
)

func TestDeriveWorktreePathWithProjectNamePrefix(t *testing.T) {
	cfg := &config.Resolved{
		MainRepoDir:    "/home/user/myproj/myproj-main",
		WorktreePrefix: config.WorktreePrefixProjectName,
	}
	got := deriveWorktreePath(cfg, "7-fix-big-bug")
	require.Equal(t, filepath.Join("/home/user/myproj", "myproj-7-fix-big-bug"), got)
}

func TestDeriveWorktreePathWithNoPrefix(t *testing.T) {
	cfg := &config.Resolved{
		MainRepoDir:    "/home/user/proj-main",
		WorktreePrefix: config.WorktreePrefixNone,
	}
	got := deriveWorktreePath(cfg, "7-fix-big-bug")
	require.Equal(t, filepath.Join("/home/user", "7-fix-big-bug"), got)
}

func TestIsWithinDetectsNesting(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "worktree")

	inside, err := isWithin(sub, sub)
	require.NoError(t, err)
	require.True(t, inside)

	outside, err := isWithin(dir, sub)
	require.NoError(t, err)
	require.False(t, outside)
}
