package ednconf

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Encode renders v as a single-line EDN literal. Map keys are emitted as
// keywords in the map's insertion order, which is what gives the on-disk
// task files their diff-friendly, stable-order property (spec §4.2).
func Encode(v interface{}) string {
	var sb strings.Builder
	encodeValue(&sb, v)
	return sb.String()
}

func encodeValue(sb *strings.Builder, v interface{}) {
	switch val := v.(type) {
	case nil:
		sb.WriteString("nil")
	case bool:
		if val {
			sb.WriteString("true")
		} else {
			sb.WriteString("false")
		}
	case int:
		sb.WriteString(strconv.Itoa(val))
	case int64:
		sb.WriteString(strconv.FormatInt(val, 10))
	case string:
		sb.WriteString(encodeString(val))
	case keyword:
		sb.WriteByte(':')
		sb.WriteString(string(val))
	case []interface{}:
		sb.WriteByte('[')
		for i, e := range val {
			if i > 0 {
				sb.WriteByte(' ')
			}
			encodeValue(sb, e)
		}
		sb.WriteByte(']')
	case []string:
		sb.WriteByte('[')
		for i, e := range val {
			if i > 0 {
				sb.WriteByte(' ')
			}
			encodeValue(sb, e)
		}
		sb.WriteByte(']')
	case *Map:
		sb.WriteByte('{')
		for i, k := range val.keys {
			if i > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteByte(':')
			sb.WriteString(k)
			sb.WriteByte(' ')
			encodeValue(sb, val.vals[k])
		}
		sb.WriteByte('}')
	case map[string]string:
		// Used for the `meta` field: stable order via sorted keys since
		// map[string]string carries no insertion order of its own.
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		sb.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteByte(':')
			sb.WriteString(k)
			sb.WriteByte(' ')
			encodeValue(sb, val[k])
		}
		sb.WriteByte('}')
	default:
		// Should not happen for values produced within this package;
		// fall back to a quoted string representation rather than panic.
		sb.WriteString(encodeString(fmt.Sprintf("%v", val)))
	}
}

func encodeString(s string) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			sb.WriteString(`\"`)
		case '\\':
			sb.WriteString(`\\`)
		case '\n':
			sb.WriteString(`\n`)
		case '\t':
			sb.WriteString(`\t`)
		case '\r':
			sb.WriteString(`\r`)
		default:
			sb.WriteRune(r)
		}
	}
	sb.WriteByte('"')
	return sb.String()
}

// Keyword wraps s so Encode emits it as an EDN keyword (:s) rather than a
// quoted string. Used for enum-valued fields like status/type/as-type.
func Keyword(s string) interface{} {
	return keyword(s)
}
