// Package ednconf implements a minimal reader/writer for the subset of EDN
// (Clojure's Extensible Data Notation) used by mcp-tasks: keyword- or
// string-keyed maps whose values are strings, integers, booleans, nil,
// nested maps, and vectors. It intentionally does not implement the full
// EDN grammar (no sets, tags, chars, or ratios) — only what task records
// and the config file need.
package ednconf

// Map is an insertion-ordered string-keyed map. Plain map[string]interface{}
// does not preserve order, and stable key order is required for
// diff-friendly on-disk storage (spec §4.2).
type Map struct {
	keys []string
	vals map[string]interface{}
}

// NewMap returns an empty ordered map.
func NewMap() *Map {
	return &Map{vals: make(map[string]interface{})}
}

// Set inserts or updates key. New keys are appended to the end of Keys().
func (m *Map) Set(key string, val interface{}) *Map {
	if _, ok := m.vals[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.vals[key] = val
	return m
}

// Get returns the value for key and whether it was present.
func (m *Map) Get(key string) (interface{}, bool) {
	v, ok := m.vals[key]
	return v, ok
}

// Keys returns the keys in insertion order.
func (m *Map) Keys() []string {
	return m.keys
}

// Len returns the number of entries.
func (m *Map) Len() int {
	return len(m.keys)
}

// GetString returns the string value for key, or "" if absent or not a string.
func (m *Map) GetString(key string) string {
	v, ok := m.Get(key)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// GetInt returns the int64 value for key, or (0, false) if absent or not an int.
func (m *Map) GetInt(key string) (int64, bool) {
	v, ok := m.Get(key)
	if !ok {
		return 0, false
	}
	i, ok := v.(int64)
	return i, ok
}

// GetBool returns the bool value for key, defaulting to def if absent or not a bool.
func (m *Map) GetBool(key string, def bool) bool {
	v, ok := m.Get(key)
	if !ok {
		return def
	}
	b, ok := v.(bool)
	if !ok {
		return def
	}
	return b
}

// GetVector returns the []interface{} value for key, or nil if absent.
func (m *Map) GetVector(key string) []interface{} {
	v, ok := m.Get(key)
	if !ok {
		return nil
	}
	vec, _ := v.([]interface{})
	return vec
}

// GetMap returns the *Map value for key, or nil if absent.
func (m *Map) GetMap(key string) *Map {
	v, ok := m.Get(key)
	if !ok {
		return nil
	}
	mm, _ := v.(*Map)
	return mm
}
