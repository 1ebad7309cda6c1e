package ednl

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hugoduncan/mcp-tasks/internal/tasks"
)

func sampleTask() *tasks.Task {
	pid := int64(7)
	cr := "2026-07-31T00:00:00Z"
	pr := int64(42)
	return &tasks.Task{
		ID:          11,
		ParentID:    &pid,
		Status:      tasks.StatusOpen,
		Title:       "Fix the thing",
		Description: "some description",
		Design:      "",
		Category:    "simple",
		Type:        tasks.TypeBug,
		Meta:        map[string]string{"owner": "agent-1"},
		Relations: []tasks.Relation{
			{ID: 1, RelatesTo: 5, AsType: tasks.RelationBlockedBy},
		},
		SharedContext: []string{"Task 11: investigated root cause"},
		SessionEvents: []tasks.SessionEvent{
			{EventType: tasks.EventSessionStart, Timestamp: "2026-07-31T00:00:00Z", SessionID: "sess-1"},
		},
		CodeReviewed: &cr,
		PRNum:        &pr,
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	want := sampleTask()
	line := Encode(want)
	require.NotContains(t, line, "\n")

	got, err := Decode(line)
	require.NoError(t, err)
	require.Equal(t, want.ID, got.ID)
	require.Equal(t, *want.ParentID, *got.ParentID)
	require.Equal(t, want.Status, got.Status)
	require.Equal(t, want.Title, got.Title)
	require.Equal(t, want.Category, got.Category)
	require.Equal(t, want.Type, got.Type)
	require.Equal(t, want.Meta, got.Meta)
	require.Equal(t, want.Relations, got.Relations)
	require.Equal(t, want.SharedContext, got.SharedContext)
	require.Equal(t, want.SessionEvents, got.SessionEvents)
	require.Equal(t, *want.CodeReviewed, *got.CodeReviewed)
	require.Equal(t, *want.PRNum, *got.PRNum)
}

func TestReadAllSkipsBlankLines(t *testing.T) {
	a := sampleTask()
	b := sampleTask()
	b.ID = 12
	b.ParentID = nil

	input := strings.Join([]string{
		"",
		"   ",
		Encode(a),
		"",
		Encode(b),
		"",
	}, "\n")

	got, err := ReadAll(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, int64(11), got[0].ID)
	require.Equal(t, int64(12), got[1].ID)
	require.Nil(t, got[1].ParentID)
}

func TestWriteAllThenReadAllRoundTrips(t *testing.T) {
	in := []*tasks.Task{sampleTask()}
	var sb strings.Builder
	require.NoError(t, WriteAll(&sb, in))

	out, err := ReadAll(strings.NewReader(sb.String()))
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, in[0].ID, out[0].ID)
}

func TestAcceptsStringKeysToo(t *testing.T) {
	line := `{"id" 99 "title" "string keyed" "status" "open" "type" "task"}`
	got, err := Decode(line)
	require.NoError(t, err)
	require.Equal(t, int64(99), got.ID)
	require.Equal(t, "string keyed", got.Title)
	require.Equal(t, tasks.StatusOpen, got.Status)
}

func TestSizeHelpersBoundAppendLists(t *testing.T) {
	small := []string{"a", "b"}
	require.Less(t, SizeOfStrings(small), MaxAppendListBytes)
}
