package tasks

// BlockResult is the answer to is-blocked(id) (spec §4.4).
type BlockResult struct {
	Blocked            bool
	BlockingIDs        []int64
	CircularDependency bool
	CycleIDs           []int64
	MissingIDs         []int64
}

// blockedByTargets returns the ids t's blocked-by relations point at.
func blockedByTargets(t *Task) []int64 {
	var out []int64
	for _, r := range t.Relations {
		if r.AsType == RelationBlockedBy {
			out = append(out, r.RelatesTo)
		}
	}
	return out
}

// IsBlocked performs a depth-first traversal of id's blocked-by relations
// (spec §4.4, P4). A task is blocked if any transitive blocked-by target
// has a blocking status, is missing entirely, or participates in a cycle.
// Missing targets and cycles are reported as diagnostics but never abort
// the query (spec I3).
func (r *Repo) IsBlocked(id int64) BlockResult {
	result := BlockResult{}
	visited := make(map[int64]bool)
	onStack := make(map[int64]bool)
	var stack []int64

	var walk func(current int64)
	walk = func(current int64) {
		if onStack[current] {
			// Found a back-edge: the cycle is the stack suffix from the
			// first occurrence of `current` through to here.
			result.CircularDependency = true
			start := 0
			for i, v := range stack {
				if v == current {
					start = i
					break
				}
			}
			cycle := append([]int64(nil), stack[start:]...)
			cycle = append(cycle, current)
			result.CycleIDs = cycle
			result.Blocked = true
			return
		}
		if visited[current] {
			return
		}
		visited[current] = true
		onStack[current] = true
		stack = append(stack, current)
		defer func() {
			onStack[current] = false
			stack = stack[:len(stack)-1]
		}()

		t := r.lookupAny(current)
		if t == nil {
			if current != id {
				result.MissingIDs = append(result.MissingIDs, current)
				result.Blocked = true
			}
			return
		}
		if current != id && t.Status.IsBlockingStatus() {
			result.Blocked = true
			result.BlockingIDs = append(result.BlockingIDs, current)
		}
		for _, target := range blockedByTargets(t) {
			walk(target)
		}
	}

	root := r.lookupAny(id)
	if root == nil {
		return result
	}
	for _, target := range blockedByTargets(root) {
		walk(target)
	}
	return result
}

// wouldCreateCycle checks whether replacing relations's owning task with
// newRelations would introduce a blocked-by cycle reachable from taskID
// (spec I4). It is used at add/update time, before a mutation is
// committed, so the on-disk graph is never left with a cycle.
func (r *Repo) wouldCreateCycle(taskID int64, newRelations []Relation) (cycle []int64, found bool) {
	edgesOf := func(id int64) []int64 {
		if id == taskID {
			var out []int64
			for _, rel := range newRelations {
				if rel.AsType == RelationBlockedBy {
					out = append(out, rel.RelatesTo)
				}
			}
			return out
		}
		t := r.lookupAny(id)
		if t == nil {
			return nil
		}
		return blockedByTargets(t)
	}

	visited := make(map[int64]bool)
	var path []int64

	var walk func(current int64) ([]int64, bool)
	walk = func(current int64) ([]int64, bool) {
		for i, v := range path {
			if v == current {
				c := append([]int64(nil), path[i:]...)
				c = append(c, current)
				return c, true
			}
		}
		if visited[current] {
			return nil, false
		}
		visited[current] = true
		path = append(path, current)
		defer func() { path = path[:len(path)-1] }()

		for _, next := range edgesOf(current) {
			if c, ok := walk(next); ok {
				return c, true
			}
		}
		return nil, false
	}

	return walk(taskID)
}
