package tasks

import (
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/hugoduncan/mcp-tasks/internal/ednconf"
)

// Repo is the in-memory indexed view over active and archived tasks (spec
// §4.4, C4). It holds no file handles and knows nothing about locking or
// git; callers (the sync engine, C6) are responsible for load/save around
// a held lock. The zero value is not usable; build one with Load.
type Repo struct {
	active     map[int64]*Task
	activeIDs  []int64 // insertion order
	archive    map[int64]*Task
	archiveIDs []int64 // completion order
	nextID     int64
}

// Load builds a Repo from the active and archived task slices read from
// disk, in the order the files were read. Returns an error if the same id
// appears in both streams (spec §9 Open Question: duplicate-id across
// tasks.ednl and complete.ednl is a hard load-time error here).
func Load(activeTasks, archivedTasks []*Task) (*Repo, error) {
	r := &Repo{
		active:  make(map[int64]*Task, len(activeTasks)),
		archive: make(map[int64]*Task, len(archivedTasks)),
	}

	var maxID int64
	for _, t := range activeTasks {
		if _, dup := r.active[t.ID]; dup {
			return nil, newTaskErr("load", ErrValidation, t.ID, "duplicate id in tasks.ednl")
		}
		r.active[t.ID] = t
		r.activeIDs = append(r.activeIDs, t.ID)
		if t.ID > maxID {
			maxID = t.ID
		}
	}
	for _, t := range archivedTasks {
		if _, dup := r.active[t.ID]; dup {
			return nil, newTaskErr("load", ErrValidation, t.ID, "id present in both tasks.ednl and complete.ednl")
		}
		if _, dup := r.archive[t.ID]; dup {
			return nil, newTaskErr("load", ErrValidation, t.ID, "duplicate id in complete.ednl")
		}
		r.archive[t.ID] = t
		r.archiveIDs = append(r.archiveIDs, t.ID)
		if t.ID > maxID {
			maxID = t.ID
		}
	}

	r.nextID = maxID + 1
	return r, nil
}

// Snapshot returns the active and archived tasks in their respective
// stored orders, deep-copied, ready to hand to the record codec for a
// save (spec P1/P3: the saved file must match the in-memory state
// exactly).
func (r *Repo) Snapshot() (active, archived []*Task) {
	active = make([]*Task, 0, len(r.activeIDs))
	for _, id := range r.activeIDs {
		active = append(active, r.active[id].Clone())
	}
	archived = make([]*Task, 0, len(r.archiveIDs))
	for _, id := range r.archiveIDs {
		archived = append(archived, r.archive[id].Clone())
	}
	return active, archived
}

// lookupAny finds a task by id in either stream, without distinguishing
// which one it lives in.
func (r *Repo) lookupAny(id int64) *Task {
	if t, ok := r.active[id]; ok {
		return t
	}
	if t, ok := r.archive[id]; ok {
		return t
	}
	return nil
}

// Get returns a deep copy of the task with id, or nil if none exists
// (spec §4.4 get(id)).
func (r *Repo) Get(id int64) *Task {
	t := r.lookupAny(id)
	if t == nil {
		return nil
	}
	return t.Clone()
}

// Spec is the set of fields a caller supplies to Add; id and status are
// assigned by the repository (spec §4.4 add(spec, prepend?)).
type Spec struct {
	Title       string
	Category    string
	Type        Type
	Description string
	Design      string
	ParentID    *int64
	Meta        map[string]string
	Relations   []Relation
	Prepend     bool
}

const op = "repo"

// Add creates a task with a freshly allocated id and status open, placing
// it at the head of the active queue when spec.Prepend is set (spec
// §4.4, §4.4 "Queue ordering").
func (r *Repo) Add(spec Spec) (*Task, error) {
	if strings.TrimSpace(spec.Title) == "" {
		return nil, newErr(op, ErrValidation, "title is required")
	}
	if spec.Type != "" && !spec.Type.IsValid() {
		return nil, newErr(op, ErrValidation, "invalid type %q", spec.Type)
	}
	if spec.ParentID != nil && r.lookupAny(*spec.ParentID) == nil {
		return nil, newTaskErr(op, ErrNotFound, *spec.ParentID, "parent-id does not exist")
	}
	for _, rel := range spec.Relations {
		if !rel.AsType.IsValid() {
			return nil, newErr(op, ErrValidation, "invalid relation as-type %q", rel.AsType)
		}
		if r.lookupAny(rel.RelatesTo) == nil {
			return nil, newTaskErr(op, ErrValidation, rel.RelatesTo, "relation references missing id")
		}
	}

	id := r.nextID
	t := &Task{
		ID:          id,
		ParentID:    spec.ParentID,
		Status:      StatusOpen,
		Title:       spec.Title,
		Description: spec.Description,
		Design:      spec.Design,
		Category:    spec.Category,
		Type:        spec.Type,
		Meta:        spec.Meta,
		Relations:   append([]Relation(nil), spec.Relations...),
	}
	if t.Type == "" {
		t.Type = TypeTask
	}

	if cycle, found := r.wouldCreateCycle(id, t.Relations); found {
		return nil, &Error{Op: op, Kind: ErrValidation, Message: "circular dependency", TaskID: id, CycleIDs: cycle}
	}

	r.nextID++
	r.active[id] = t
	if spec.Prepend {
		r.activeIDs = append([]int64{id}, r.activeIDs...)
	} else {
		r.activeIDs = append(r.activeIDs, id)
	}
	return t.Clone(), nil
}

// Update merges patch onto the task with id, validating parent/relation
// references, cycle-freedom, the code-reviewed timestamp format (I7),
// and the append-list size caps (I5) (spec §4.4 update(id, patch)).
//
// Recognized patch keys: title, description, design, category, type,
// status, parent-id, meta, relations, code-reviewed, pr-num,
// shared-context-append, session-event-append.
func (r *Repo) Update(id int64, patch map[string]interface{}) (*Task, error) {
	existing, ok := r.active[id]
	if !ok {
		if _, archived := r.archive[id]; archived {
			return nil, newTaskErr(op, ErrState, id, "task is archived; use reopen before updating")
		}
		return nil, newTaskErr(op, ErrNotFound, id, "task not found")
	}
	t := existing.Clone()

	if v, ok := patch["title"]; ok {
		s, _ := v.(string)
		if strings.TrimSpace(s) == "" {
			return nil, newTaskErr(op, ErrValidation, id, "title cannot be empty")
		}
		t.Title = s
	}
	if v, ok := patch["description"]; ok {
		s, _ := v.(string)
		t.Description = s
	}
	if v, ok := patch["design"]; ok {
		s, _ := v.(string)
		t.Design = s
	}
	if v, ok := patch["category"]; ok {
		s, _ := v.(string)
		t.Category = s
	}
	if v, ok := patch["type"]; ok {
		s, _ := v.(string)
		nt := Type(s)
		if !nt.IsValid() {
			return nil, newTaskErr(op, ErrValidation, id, "invalid type %q", s)
		}
		t.Type = nt
	}
	if v, ok := patch["status"]; ok {
		s, _ := v.(string)
		ns := Status(s)
		if !ns.IsValid() {
			return nil, newTaskErr(op, ErrValidation, id, "invalid status %q", s)
		}
		t.Status = ns
	}
	if v, ok := patch["parent-id"]; ok {
		switch pv := v.(type) {
		case nil:
			t.ParentID = nil
		case int64:
			if r.lookupAny(pv) == nil {
				return nil, newTaskErr(op, ErrNotFound, pv, "parent-id does not exist")
			}
			p := pv
			t.ParentID = &p
		}
	}
	if v, ok := patch["meta"]; ok {
		m, _ := v.(map[string]string)
		t.Meta = m
	}
	if v, ok := patch["code-reviewed"]; ok {
		s, _ := v.(string)
		if s != "" && !isISO8601UTC(s) {
			return nil, newTaskErr(op, ErrValidation, id, "code-reviewed must be ISO-8601 UTC ending in Z")
		}
		if s == "" {
			t.CodeReviewed = nil
		} else {
			t.CodeReviewed = &s
		}
	}
	if v, ok := patch["pr-num"]; ok {
		switch pv := v.(type) {
		case nil:
			t.PRNum = nil
		case int64:
			t.PRNum = &pv
		}
	}

	if v, ok := patch["relations"]; ok {
		rels, _ := v.([]Relation)
		for _, rel := range rels {
			if !rel.AsType.IsValid() {
				return nil, newTaskErr(op, ErrValidation, id, "invalid relation as-type %q", rel.AsType)
			}
			if r.lookupAny(rel.RelatesTo) == nil {
				return nil, newTaskErr(op, ErrValidation, id, "relation references missing id %d", rel.RelatesTo)
			}
		}
		if cycle, found := r.wouldCreateCycle(id, rels); found {
			return nil, &Error{Op: op, Kind: ErrValidation, Message: "circular dependency", TaskID: id, CycleIDs: cycle}
		}
		t.Relations = rels
	}

	if v, ok := patch["shared-context-append"]; ok {
		entry, _ := v.(string)
		proposed := append(append([]string(nil), t.SharedContext...), entry)
		if sizeOfStrings(proposed) > maxAppendListBytes {
			return nil, newTaskErr(op, ErrValidation, id, "shared-context would exceed %d bytes", maxAppendListBytes)
		}
		t.SharedContext = proposed
	}
	if v, ok := patch["session-event-append"]; ok {
		ev, _ := v.(SessionEvent)
		if !ev.EventType.IsValid() {
			return nil, newTaskErr(op, ErrValidation, id, "invalid event-type %q", ev.EventType)
		}
		if ev.Timestamp == "" {
			ev.Timestamp = time.Now().UTC().Format(time.RFC3339)
		}
		proposed := append(append([]SessionEvent(nil), t.SessionEvents...), ev)
		if sizeOfSessionEvents(proposed) > maxAppendListBytes {
			return nil, newTaskErr(op, ErrValidation, id, "session-events would exceed %d bytes", maxAppendListBytes)
		}
		t.SessionEvents = proposed
	}

	r.active[id] = t
	return t.Clone(), nil
}

// GetChildren returns active tasks whose parent-id equals id, in
// insertion order (spec §4.4 get-children(id)).
func (r *Repo) GetChildren(id int64) []*Task {
	var out []*Task
	for _, cid := range r.activeIDs {
		c := r.active[cid]
		if c.ParentID != nil && *c.ParentID == id {
			out = append(out, c.Clone())
		}
	}
	return out
}

// closedChildCount returns how many of id's archived children are
// closed — used to report progress on parent-id queries (spec §4.4
// query semantics). Children still in the active stream are not counted,
// whatever their status.
func (r *Repo) closedChildCount(id int64) int {
	n := 0
	for _, aid := range r.archiveIDs {
		c := r.archive[aid]
		if c.ParentID != nil && *c.ParentID == id && c.Status == StatusClosed {
			n++
		}
	}
	return n
}

// MarkComplete transitions id to closed, appending comment to its
// description, and moves it from the active stream to the archive
// (spec §4.4 mark-complete, I2, P6). Fails if the task has any child
// still in a blocking status, or if the task is already archived.
func (r *Repo) MarkComplete(id int64, comment string) (*Task, error) {
	existing, ok := r.active[id]
	if !ok {
		if _, archived := r.archive[id]; archived {
			return nil, newTaskErr(op, ErrState, id, "task already closed or deleted")
		}
		return nil, newTaskErr(op, ErrNotFound, id, "task not found")
	}

	for _, child := range r.GetChildren(id) {
		if child.Status.IsBlockingStatus() {
			return nil, newTaskErr(op, ErrState, child.ID, "cannot complete: child %d is still %s", child.ID, child.Status)
		}
	}

	t := existing.Clone()
	t.Status = StatusClosed
	if comment != "" {
		if t.Description != "" {
			t.Description = t.Description + "\n" + comment
		} else {
			t.Description = comment
		}
	}

	r.archiveTask(t)
	return t.Clone(), nil
}

// MarkDeleted transitions id to deleted and archives it (spec §4.4
// mark-deleted(id)). Fails if the task has a child in a blocking status,
// or is already archived.
func (r *Repo) MarkDeleted(id int64) (*Task, error) {
	existing, ok := r.active[id]
	if !ok {
		if _, archived := r.archive[id]; archived {
			return nil, newTaskErr(op, ErrState, id, "task already closed or deleted")
		}
		return nil, newTaskErr(op, ErrNotFound, id, "task not found")
	}

	for _, child := range r.GetChildren(id) {
		if child.Status.IsBlockingStatus() {
			return nil, newTaskErr(op, ErrState, child.ID, "cannot delete: child %d is still %s", child.ID, child.Status)
		}
	}

	t := existing.Clone()
	t.Status = StatusDeleted
	r.archiveTask(t)
	return t.Clone(), nil
}

// archiveTask removes id from the active stream and appends it to the
// archive stream, preserving completion order.
func (r *Repo) archiveTask(t *Task) {
	delete(r.active, t.ID)
	for i, aid := range r.activeIDs {
		if aid == t.ID {
			r.activeIDs = append(r.activeIDs[:i], r.activeIDs[i+1:]...)
			break
		}
	}
	r.archive[t.ID] = t
	r.archiveIDs = append(r.archiveIDs, t.ID)
}

// Reopen transitions id from closed back to open, moving it from the
// archive stream back into the active stream at the tail (spec §4.4
// reopen(id), lifecycle: "Reopen moves closed → open, re-importing from
// archive if necessary").
func (r *Repo) Reopen(id int64) (*Task, error) {
	existing, ok := r.archive[id]
	if !ok {
		if _, active := r.active[id]; active {
			return nil, newTaskErr(op, ErrState, id, "task is not closed")
		}
		return nil, newTaskErr(op, ErrNotFound, id, "task not found")
	}
	if existing.Status != StatusClosed {
		return nil, newTaskErr(op, ErrState, id, "task is not closed")
	}

	t := existing.Clone()
	t.Status = StatusOpen

	delete(r.archive, id)
	for i, aid := range r.archiveIDs {
		if aid == id {
			r.archiveIDs = append(r.archiveIDs[:i], r.archiveIDs[i+1:]...)
			break
		}
	}
	r.active[id] = t
	r.activeIDs = append(r.activeIDs, id)
	return t.Clone(), nil
}

// Filters selects the AND-composed predicate set for Query (spec §4.4
// query semantics).
type Filters struct {
	TaskID       *int64
	Category     string
	ParentID     *int64
	TitlePattern string
	Type         Type
	Status       string // "" means default (non-closed-non-deleted); "any" includes archived.
	Limit        int
	Unique       bool
}

// QueryResult bundles the matching tasks with the metadata the operation
// surface reports alongside them (spec §6 select-tasks).
type QueryResult struct {
	Tasks                 []*Task
	TotalMatches          int
	CompletedChildren     int
	HasCompletedChildInfo bool
}

// Query returns tasks matching f, composing every supplied filter with
// AND (spec §4.4 query(filters, limit, unique?)).
func (r *Repo) Query(f Filters) (QueryResult, error) {
	if f.Limit < 0 {
		return QueryResult{}, newErr(op, ErrValidation, "limit must be positive")
	}
	var titleRe *regexp.Regexp
	if f.TitlePattern != "" {
		if re, err := regexp.Compile(f.TitlePattern); err == nil {
			titleRe = re
		}
	}

	candidates := r.candidatesForStatus(f.Status)

	var matches []*Task
	for _, t := range candidates {
		if f.TaskID != nil && t.ID != *f.TaskID {
			continue
		}
		if f.Category != "" && t.Category != f.Category {
			continue
		}
		if f.ParentID != nil && (t.ParentID == nil || *t.ParentID != *f.ParentID) {
			continue
		}
		if f.Type != "" && t.Type != f.Type {
			continue
		}
		if f.TitlePattern != "" {
			if titleRe != nil {
				if !titleRe.MatchString(t.Title) {
					continue
				}
			} else if !strings.Contains(strings.ToLower(t.Title), strings.ToLower(f.TitlePattern)) {
				continue
			}
		}
		matches = append(matches, t)
	}

	sort.SliceStable(matches, func(i, j int) bool { return insertionRank(r, matches[i].ID) < insertionRank(r, matches[j].ID) })

	result := QueryResult{TotalMatches: len(matches)}
	if f.ParentID != nil {
		result.HasCompletedChildInfo = true
		result.CompletedChildren = r.closedChildCount(*f.ParentID)
	}

	limit := f.Limit
	if f.Unique {
		limit = 1
		if len(matches) == 0 || len(matches) > 1 {
			return result, newErr(op, ErrValidation, "unique? query expected exactly one match, found %d", len(matches))
		}
	}

	out := matches
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	cloned := make([]*Task, len(out))
	for i, t := range out {
		cloned[i] = t.Clone()
	}
	result.Tasks = cloned
	return result, nil
}

// candidatesForStatus returns the pool of tasks a query draws from,
// before per-field filters are applied.
func (r *Repo) candidatesForStatus(status string) []*Task {
	if status == "any" {
		all := make([]*Task, 0, len(r.activeIDs)+len(r.archiveIDs))
		for _, id := range r.activeIDs {
			all = append(all, r.active[id])
		}
		for _, id := range r.archiveIDs {
			all = append(all, r.archive[id])
		}
		return all
	}
	if status != "" {
		var out []*Task
		for _, id := range r.activeIDs {
			if string(r.active[id].Status) == status {
				out = append(out, r.active[id])
			}
		}
		for _, id := range r.archiveIDs {
			if string(r.archive[id].Status) == status {
				out = append(out, r.archive[id])
			}
		}
		return out
	}
	// Default: non-closed-non-deleted, i.e. the active stream as-is.
	out := make([]*Task, 0, len(r.activeIDs))
	for _, id := range r.activeIDs {
		out = append(out, r.active[id])
	}
	return out
}

// insertionRank orders ids by their position in activeIDs then
// archiveIDs, so mixed active/archived result sets still sort stably by
// the order each stream was populated in.
func insertionRank(r *Repo, id int64) int {
	for i, aid := range r.activeIDs {
		if aid == id {
			return i
		}
	}
	base := len(r.activeIDs)
	for i, aid := range r.archiveIDs {
		if aid == id {
			return base + i
		}
	}
	return base + len(r.archiveIDs)
}

func sizeOfStrings(ss []string) int {
	total := 0
	for _, s := range ss {
		total += len(ednconf.Encode(s)) + 1 // +1 for separating space
	}
	return total
}

func sizeOfSessionEvents(events []SessionEvent) int {
	total := 0
	for _, e := range events {
		em := ednconf.NewMap()
		em.Set("event-type", ednconf.Keyword(string(e.EventType)))
		em.Set("timestamp", e.Timestamp)
		switch e.EventType {
		case EventUserPrompt:
			em.Set("content", e.Content)
		case EventCompaction:
			em.Set("trigger", e.Trigger)
		case EventSessionStart:
			em.Set("session-id", e.SessionID)
		}
		total += len(ednconf.Encode(em)) + 1
	}
	return total
}

const maxAppendListBytes = 51200

func isISO8601UTC(s string) bool {
	if !strings.HasSuffix(s, "Z") {
		return false
	}
	return iso8601Re.MatchString(s)
}

var iso8601Re = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(\.\d+)?Z$`)
