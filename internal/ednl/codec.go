// Package ednl implements the record codec (spec §4.2): serializing a
// tasks.Task to and from one self-contained EDN-map line of the append-
// friendly "EDNL" format used by tasks.ednl and complete.ednl.
package ednl

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/hugoduncan/mcp-tasks/internal/ednconf"
	"github.com/hugoduncan/mcp-tasks/internal/tasks"
)

// MaxAppendListBytes is the serialized-size cap for shared-context and
// session-events (spec I5).
const MaxAppendListBytes = 51200

// Encode renders t as a single EDNL line (no trailing newline).
func Encode(t *tasks.Task) string {
	m := ednconf.NewMap()
	m.Set("id", t.ID)
	if t.ParentID != nil {
		m.Set("parent-id", *t.ParentID)
	}
	m.Set("status", ednconf.Keyword(string(t.Status)))
	m.Set("title", t.Title)
	m.Set("description", t.Description)
	m.Set("design", t.Design)
	m.Set("category", t.Category)
	m.Set("type", ednconf.Keyword(string(t.Type)))
	m.Set("meta", t.Meta)

	rels := make([]interface{}, len(t.Relations))
	for i, r := range t.Relations {
		rm := ednconf.NewMap()
		rm.Set("id", r.ID)
		rm.Set("relates-to", r.RelatesTo)
		rm.Set("as-type", ednconf.Keyword(string(r.AsType)))
		rels[i] = rm
	}
	m.Set("relations", rels)

	sc := make([]interface{}, len(t.SharedContext))
	for i, s := range t.SharedContext {
		sc[i] = s
	}
	m.Set("shared-context", sc)

	events := make([]interface{}, len(t.SessionEvents))
	for i, e := range t.SessionEvents {
		em := ednconf.NewMap()
		em.Set("event-type", ednconf.Keyword(string(e.EventType)))
		em.Set("timestamp", e.Timestamp)
		switch e.EventType {
		case tasks.EventUserPrompt:
			em.Set("content", e.Content)
		case tasks.EventCompaction:
			em.Set("trigger", e.Trigger)
		case tasks.EventSessionStart:
			em.Set("session-id", e.SessionID)
		}
		events[i] = em
	}
	m.Set("session-events", events)

	if t.CodeReviewed != nil {
		m.Set("code-reviewed", *t.CodeReviewed)
	}
	if t.PRNum != nil {
		m.Set("pr-num", *t.PRNum)
	}

	return ednconf.Encode(m)
}

// Decode parses a single EDNL line into a Task.
func Decode(line string) (*tasks.Task, error) {
	m, err := ednconf.DecodeMap(line)
	if err != nil {
		return nil, fmt.Errorf("ednl: decode: %w", err)
	}

	id, ok := m.GetInt("id")
	if !ok {
		return nil, fmt.Errorf("ednl: record missing :id")
	}

	t := &tasks.Task{
		ID:          id,
		Title:       m.GetString("title"),
		Description: m.GetString("description"),
		Design:      m.GetString("design"),
		Category:    m.GetString("category"),
	}

	if pid, ok := m.GetInt("parent-id"); ok {
		t.ParentID = &pid
	}

	if v, ok := m.Get("status"); ok {
		s, _ := ednconf.Unkeyword(v)
		t.Status = tasks.Status(s)
	}
	if v, ok := m.Get("type"); ok {
		s, _ := ednconf.Unkeyword(v)
		t.Type = tasks.Type(s)
	}

	t.Meta = decodeStringMap(m.GetMap("meta"))

	for _, rv := range m.GetVector("relations") {
		rm, ok := rv.(*ednconf.Map)
		if !ok {
			return nil, fmt.Errorf("ednl: relation entry is not a map")
		}
		rid, _ := rm.GetInt("id")
		relTo, _ := rm.GetInt("relates-to")
		asType, _ := ednconf.Unkeyword(firstOr(rm.Get("as-type")))
		t.Relations = append(t.Relations, tasks.Relation{
			ID:        rid,
			RelatesTo: relTo,
			AsType:    tasks.RelationType(asType),
		})
	}

	for _, sv := range m.GetVector("shared-context") {
		s, _ := sv.(string)
		t.SharedContext = append(t.SharedContext, s)
	}

	for _, ev := range m.GetVector("session-events") {
		em, ok := ev.(*ednconf.Map)
		if !ok {
			return nil, fmt.Errorf("ednl: session-event entry is not a map")
		}
		etype, _ := ednconf.Unkeyword(firstOr(em.Get("event-type")))
		se := tasks.SessionEvent{
			EventType: tasks.EventType(etype),
			Timestamp: em.GetString("timestamp"),
			Content:   em.GetString("content"),
			Trigger:   em.GetString("trigger"),
			SessionID: em.GetString("session-id"),
		}
		t.SessionEvents = append(t.SessionEvents, se)
	}

	if cr := m.GetString("code-reviewed"); cr != "" {
		t.CodeReviewed = &cr
	}
	if pn, ok := m.GetInt("pr-num"); ok {
		t.PRNum = &pn
	}

	return t, nil
}

func firstOr(v interface{}, ok bool) interface{} {
	if !ok {
		return nil
	}
	return v
}

func decodeStringMap(m *ednconf.Map) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	out := make(map[string]string, m.Len())
	for _, k := range m.Keys() {
		v, _ := m.Get(k)
		if s, ok := v.(string); ok {
			out[k] = s
		} else {
			out[k] = fmt.Sprintf("%v", v)
		}
	}
	return out
}

// ReadAll reads every non-blank line from r as a Task, in file order.
// Blank and whitespace-only lines are skipped (spec §4.2).
func ReadAll(r io.Reader) ([]*tasks.Task, error) {
	var out []*tasks.Task
	scanner := bufio.NewScanner(r)
	// Task records can carry long shared-context/session-events payloads
	// (up to 51,200 bytes each plus surrounding fields); grow the scan
	// buffer accordingly.
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		t, err := Decode(line)
		if err != nil {
			return nil, fmt.Errorf("ednl: line %d: %w", lineNo, err)
		}
		out = append(out, t)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("ednl: scan: %w", err)
	}
	return out, nil
}

// WriteAll writes tasks in order, one EDNL line each, to w.
func WriteAll(w io.Writer, ts []*tasks.Task) error {
	bw := bufio.NewWriter(w)
	for _, t := range ts {
		if _, err := bw.WriteString(Encode(t)); err != nil {
			return err
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// SizeOfStrings returns the serialized size in bytes that the given strings
// would occupy as a shared-context list, for enforcing I5 before a mutation
// is committed.
func SizeOfStrings(ss []string) int {
	total := 0
	for _, s := range ss {
		total += len(ednconf.Encode(s)) + 1 // +1 for separating space
	}
	return total
}

// SizeOfSessionEvents returns the serialized size in bytes a session-events
// list would occupy, for enforcing I5.
func SizeOfSessionEvents(events []tasks.SessionEvent) int {
	total := 0
	for _, e := range events {
		em := ednconf.NewMap()
		em.Set("event-type", ednconf.Keyword(string(e.EventType)))
		em.Set("timestamp", e.Timestamp)
		switch e.EventType {
		case tasks.EventUserPrompt:
			em.Set("content", e.Content)
		case tasks.EventCompaction:
			em.Set("trigger", e.Trigger)
		case tasks.EventSessionStart:
			em.Set("session-id", e.SessionID)
		}
		total += len(ednconf.Encode(em)) + 1
	}
	return total
}

// FormatID renders a task id the way branch/worktree names embed it.
func FormatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
