package tasks

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newRepo(t *testing.T) *Repo {
	t.Helper()
	r, err := Load(nil, nil)
	require.NoError(t, err)
	return r
}

func TestAddAssignsMonotonicIDs(t *testing.T) {
	r := newRepo(t)

	a, err := r.Add(Spec{Category: "simple", Title: "A"})
	require.NoError(t, err)
	require.Equal(t, int64(1), a.ID)
	require.Equal(t, StatusOpen, a.Status)

	b, err := r.Add(Spec{Category: "simple", Title: "B"})
	require.NoError(t, err)
	require.Equal(t, int64(2), b.ID)

	res, err := r.Query(Filters{Limit: 5})
	require.NoError(t, err)
	require.Len(t, res.Tasks, 2)
	require.Equal(t, int64(1), res.Tasks[0].ID)
	require.Equal(t, int64(2), res.Tasks[1].ID)
}

func TestStoryCannotCompleteWithOpenChild(t *testing.T) {
	r := newRepo(t)

	story, err := r.Add(Spec{Title: "Ep", Type: TypeStory})
	require.NoError(t, err)

	pid := story.ID
	child, err := r.Add(Spec{Title: "t1", ParentID: &pid})
	require.NoError(t, err)

	_, err = r.MarkComplete(story.ID, "")
	require.Error(t, err)
	var taskErr *Error
	require.ErrorAs(t, err, &taskErr)
	require.Equal(t, child.ID, taskErr.TaskID)

	_, err = r.MarkComplete(child.ID, "")
	require.NoError(t, err)

	_, err = r.MarkComplete(story.ID, "")
	require.NoError(t, err)

	res, err := r.Query(Filters{Status: "any", Limit: 10})
	require.NoError(t, err)
	for _, task := range res.Tasks {
		if task.ID == story.ID || task.ID == child.ID {
			require.Equal(t, StatusClosed, task.Status)
		}
	}

	active, _ := r.Snapshot()
	for _, task := range active {
		require.NotEqual(t, story.ID, task.ID)
		require.NotEqual(t, child.ID, task.ID)
	}
}

func TestIsBlockedByOpenRelationThenUnblockedOnClose(t *testing.T) {
	r := newRepo(t)

	a, err := r.Add(Spec{Title: "A"})
	require.NoError(t, err)

	b, err := r.Add(Spec{Title: "B", Relations: []Relation{
		{ID: 1, RelatesTo: a.ID, AsType: RelationBlockedBy},
	}})
	require.NoError(t, err)

	require.True(t, r.IsBlocked(b.ID).Blocked)

	_, err = r.MarkComplete(a.ID, "")
	require.NoError(t, err)

	require.False(t, r.IsBlocked(b.ID).Blocked)
}

func TestUpdateRejectsCircularDependency(t *testing.T) {
	r := newRepo(t)

	a, err := r.Add(Spec{Title: "A"})
	require.NoError(t, err)
	b, err := r.Add(Spec{Title: "B"})
	require.NoError(t, err)

	_, err = r.Update(b.ID, map[string]interface{}{
		"relations": []Relation{{ID: 1, RelatesTo: a.ID, AsType: RelationBlockedBy}},
	})
	require.NoError(t, err)

	_, err = r.Update(a.ID, map[string]interface{}{
		"relations": []Relation{{ID: 1, RelatesTo: b.ID, AsType: RelationBlockedBy}},
	})
	require.Error(t, err)
	var cycleErr *Error
	require.ErrorAs(t, err, &cycleErr)
	require.NotEmpty(t, cycleErr.CycleIDs)

	unchanged := r.Get(a.ID)
	require.Empty(t, unchanged.Relations)
}

func TestLoadRejectsDuplicateIDAcrossStreams(t *testing.T) {
	dup := &Task{ID: 1, Title: "dup", Status: StatusOpen}
	archived := &Task{ID: 1, Title: "dup", Status: StatusClosed}

	_, err := Load([]*Task{dup}, []*Task{archived})
	require.Error(t, err)
}

func TestQueryUniqueErrorsOnMultipleMatches(t *testing.T) {
	r := newRepo(t)
	_, err := r.Add(Spec{Title: "dup", Category: "simple"})
	require.NoError(t, err)
	_, err = r.Add(Spec{Title: "dup", Category: "simple"})
	require.NoError(t, err)

	_, err = r.Query(Filters{TitlePattern: "dup", Unique: true})
	require.Error(t, err)
}

func TestReopenMovesTaskBackToActive(t *testing.T) {
	r := newRepo(t)
	a, err := r.Add(Spec{Title: "A"})
	require.NoError(t, err)
	_, err = r.MarkComplete(a.ID, "done")
	require.NoError(t, err)

	reopened, err := r.Reopen(a.ID)
	require.NoError(t, err)
	require.Equal(t, StatusOpen, reopened.Status)

	active, archived := r.Snapshot()
	require.Len(t, active, 1)
	require.Empty(t, archived)
}

func TestQueryParentIDReportsCompletedChildCount(t *testing.T) {
	r := newRepo(t)
	story, err := r.Add(Spec{Title: "Ep", Type: TypeStory})
	require.NoError(t, err)
	pid := story.ID

	c1, err := r.Add(Spec{Title: "c1", ParentID: &pid})
	require.NoError(t, err)
	_, err = r.Add(Spec{Title: "c2", ParentID: &pid})
	require.NoError(t, err)

	_, err = r.MarkComplete(c1.ID, "")
	require.NoError(t, err)

	res, err := r.Query(Filters{ParentID: &pid, Limit: 10})
	require.NoError(t, err)
	require.Len(t, res.Tasks, 1)
	require.True(t, res.HasCompletedChildInfo)
	require.Equal(t, 1, res.CompletedChildren)
}
