package git

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSlugifyLowercasesAndDashes(t *testing.T) {
	require.Equal(t, "fix-big-bug", Slugify("Fix Big Bug", 4))
}

func TestSlugifyTruncatesToMaxWords(t *testing.T) {
	require.Equal(t, "fix-big", Slugify("Fix Big Bug Now", 2))
}

func TestSlugifyUnlimitedWhenMaxWordsZero(t *testing.T) {
	require.Equal(t, "fix-big-bug-now", Slugify("Fix Big Bug Now", 0))
}

func TestSlugifyDropsNonSlugCharsAndCollapsesDashes(t *testing.T) {
	require.Equal(t, "fix-bug-123", Slugify("Fix!!  Bug #123", 0))
}

func TestBranchNameFormat(t *testing.T) {
	require.Equal(t, "7-fix-big-bug", BranchName(7, "Fix Big Bug", 4))
}
