package ednconf

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Decode parses a single EDN value (expected to be a map at the top level
// for config files and task records) from s. Leading/trailing whitespace is
// ignored; trailing garbage after the first value is an error.
func Decode(s string) (interface{}, error) {
	d := &decoder{src: []rune(s)}
	d.skipSpace()
	v, err := d.readValue()
	if err != nil {
		return nil, err
	}
	d.skipSpace()
	if d.pos != len(d.src) {
		return nil, fmt.Errorf("ednconf: trailing data at position %d", d.pos)
	}
	return v, nil
}

// DecodeMap parses s as an EDN map and normalizes it into a *Map. Returns
// an error if s does not decode to a map.
func DecodeMap(s string) (*Map, error) {
	v, err := Decode(s)
	if err != nil {
		return nil, err
	}
	m, ok := v.(*Map)
	if !ok {
		return nil, fmt.Errorf("ednconf: expected a map, got %T", v)
	}
	return m, nil
}

type decoder struct {
	src []rune
	pos int
}

func (d *decoder) peek() (rune, bool) {
	if d.pos >= len(d.src) {
		return 0, false
	}
	return d.src[d.pos], true
}

func (d *decoder) skipSpace() {
	for d.pos < len(d.src) {
		c := d.src[d.pos]
		if c == ',' || unicode.IsSpace(c) {
			d.pos++
			continue
		}
		if c == ';' { // line comment
			for d.pos < len(d.src) && d.src[d.pos] != '\n' {
				d.pos++
			}
			continue
		}
		break
	}
}

func (d *decoder) readValue() (interface{}, error) {
	d.skipSpace()
	c, ok := d.peek()
	if !ok {
		return nil, fmt.Errorf("ednconf: unexpected end of input")
	}
	switch {
	case c == '{':
		return d.readMap()
	case c == '[':
		return d.readVector()
	case c == '"':
		return d.readString()
	case c == ':':
		return d.readKeyword()
	case c == '-' || unicode.IsDigit(c):
		return d.readNumberOrSymbol()
	default:
		return d.readSymbol()
	}
}

func (d *decoder) readMap() (interface{}, error) {
	d.pos++ // consume '{'
	m := NewMap()
	for {
		d.skipSpace()
		c, ok := d.peek()
		if !ok {
			return nil, fmt.Errorf("ednconf: unterminated map")
		}
		if c == '}' {
			d.pos++
			return m, nil
		}
		key, err := d.readValue()
		if err != nil {
			return nil, err
		}
		d.skipSpace()
		val, err := d.readValue()
		if err != nil {
			return nil, err
		}
		m.Set(normalizeKey(key), val)
	}
}

func (d *decoder) readVector() (interface{}, error) {
	d.pos++ // consume '['
	var out []interface{}
	for {
		d.skipSpace()
		c, ok := d.peek()
		if !ok {
			return nil, fmt.Errorf("ednconf: unterminated vector")
		}
		if c == ']' {
			d.pos++
			if out == nil {
				out = []interface{}{}
			}
			return out, nil
		}
		v, err := d.readValue()
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
}

func (d *decoder) readString() (interface{}, error) {
	d.pos++ // consume opening quote
	var sb strings.Builder
	for {
		c, ok := d.peek()
		if !ok {
			return nil, fmt.Errorf("ednconf: unterminated string")
		}
		d.pos++
		if c == '"' {
			return sb.String(), nil
		}
		if c == '\\' {
			esc, ok := d.peek()
			if !ok {
				return nil, fmt.Errorf("ednconf: unterminated escape")
			}
			d.pos++
			switch esc {
			case 'n':
				sb.WriteRune('\n')
			case 't':
				sb.WriteRune('\t')
			case 'r':
				sb.WriteRune('\r')
			case '"', '\\':
				sb.WriteRune(esc)
			default:
				sb.WriteRune(esc)
			}
			continue
		}
		sb.WriteRune(c)
	}
}

func (d *decoder) readKeyword() (interface{}, error) {
	d.pos++ // consume ':'
	start := d.pos
	for d.pos < len(d.src) && isSymbolRune(d.src[d.pos]) {
		d.pos++
	}
	if d.pos == start {
		return nil, fmt.Errorf("ednconf: empty keyword at position %d", start)
	}
	// Keywords are returned without their leading ':' but as the distinct
	// keyword type, so that normalizeKey() can tell a keyword key from a
	// string key when coercing to canonical form, and so keyword *values*
	// (e.g. worktree-prefix enum values) round-trip distinguishably from
	// strings.
	return keyword(string(d.src[start:d.pos])), nil
}

// keyword marks a decoded EDN keyword (e.g. :project-name) as distinct from
// a plain string, matching EDN's actual type distinction.
type keyword string

func (d *decoder) readNumberOrSymbol() (interface{}, error) {
	start := d.pos
	if d.src[d.pos] == '-' {
		d.pos++
	}
	digits := false
	for d.pos < len(d.src) && unicode.IsDigit(d.src[d.pos]) {
		d.pos++
		digits = true
	}
	if !digits {
		// Lone '-' or similar: fall back to symbol parsing.
		d.pos = start
		return d.readSymbol()
	}
	// If followed by more symbol runes (e.g. "-main" dir name fragment),
	// treat the whole token as a symbol rather than a number.
	if d.pos < len(d.src) && isSymbolRune(d.src[d.pos]) {
		d.pos = start
		return d.readSymbol()
	}
	n, err := strconv.ParseInt(string(d.src[start:d.pos]), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("ednconf: invalid number at position %d: %w", start, err)
	}
	return n, nil
}

func (d *decoder) readSymbol() (interface{}, error) {
	start := d.pos
	for d.pos < len(d.src) && isSymbolRune(d.src[d.pos]) {
		d.pos++
	}
	if d.pos == start {
		return nil, fmt.Errorf("ednconf: unexpected character %q at position %d", d.src[start], start)
	}
	tok := string(d.src[start:d.pos])
	switch tok {
	case "true":
		return true, nil
	case "false":
		return false, nil
	case "nil":
		return nil, nil
	default:
		// Bare symbols (e.g. an unquoted enum token) are treated as strings.
		return tok, nil
	}
}

func isSymbolRune(c rune) bool {
	if unicode.IsSpace(c) || c == ',' {
		return false
	}
	switch c {
	case '{', '}', '[', ']', '(', ')', '"', ';':
		return false
	}
	return true
}

// normalizeKey coerces a decoded map key (string or keyword) into the
// canonical internal string form, per spec §4.2 ("accept keys as either
// symbols or strings, coerced to a canonical form on load").
func normalizeKey(v interface{}) string {
	switch k := v.(type) {
	case keyword:
		return string(k)
	case string:
		return k
	default:
		return fmt.Sprintf("%v", v)
	}
}

// Unkeyword returns the plain string form of a value that may be a keyword
// or a string, for callers that read enum-like values out of a decoded map.
func Unkeyword(v interface{}) (string, bool) {
	switch s := v.(type) {
	case keyword:
		return string(s), true
	case string:
		return s, true
	default:
		return "", false
	}
}
