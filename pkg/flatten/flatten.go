// Package flatten converts nested map/slice structures into a flat mapping
// from dotted/indexed paths to leaf values. Maps contribute dotted segments,
// slices of complex values contribute numeric index segments, and slices of
// scalars are kept whole as leaf sequences so callers can choose ordered or
// multiset comparison per path.
package flatten

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

const separator = "."

// Map flattens a nested structure into path -> leaf value.
func Map(in map[string]any) map[string]any {
	out := make(map[string]any)
	for k, v := range in {
		walk(escapeSegment(k), v, out)
	}
	return out
}

func walk(prefix string, value any, out map[string]any) {
	switch v := value.(type) {
	case map[string]any:
		if len(v) == 0 {
			out[prefix] = map[string]any{}
			return
		}
		for k, child := range v {
			walk(prefix+separator+escapeSegment(k), child, out)
		}
	case map[any]any:
		// yaml.v2-style maps; keys are stringified for path stability.
		if len(v) == 0 {
			out[prefix] = map[string]any{}
			return
		}
		for k, child := range v {
			walk(prefix+separator+escapeSegment(fmt.Sprintf("%v", k)), child, out)
		}
	case []any:
		if isScalarSlice(v) {
			out[prefix] = v
			return
		}
		for i, child := range v {
			walk(prefix+separator+strconv.Itoa(i), child, out)
		}
	default:
		out[prefix] = v
	}
}

func isScalarSlice(s []any) bool {
	for _, e := range s {
		switch e.(type) {
		case map[string]any, map[any]any, []any:
			return false
		}
	}
	return true
}

// EscapeSegment returns the path form of one raw key. Backslashes are
// escaped before dots so a key ending in a backslash cannot masquerade as
// an escaped separator.
func EscapeSegment(s string) string {
	return escapeSegment(s)
}

func escapeSegment(s string) string {
	if !strings.ContainsAny(s, separator+`\`) {
		return s
	}
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, separator, `\.`)
}

// splitPath splits a flattened path into unescaped segments.
func splitPath(path string) []string {
	segments := make([]string, 0, strings.Count(path, separator)+1)
	var current strings.Builder
	escaped := false
	for i := 0; i < len(path); i++ {
		c := path[i]
		switch {
		case escaped:
			current.WriteByte(c)
			escaped = false
		case c == '\\':
			escaped = true
		case c == separator[0]:
			segments = append(segments, current.String())
			current.Reset()
		default:
			current.WriteByte(c)
		}
	}
	return append(segments, current.String())
}

// SortedPaths returns the keys of a flattened map in lexicographic order.
func SortedPaths(m map[string]any) []string {
	paths := make([]string, 0, len(m))
	for p := range m {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// HasPrefix reports whether path sits at or below prefix in the flattened
// path space ("a.b" covers "a.b" and "a.b.c", but not "a.bc"). Matching is
// segment-wise with escapes honored, so "a.b" never covers the literal-dot
// key path `a\.b`.
func HasPrefix(path, prefix string) bool {
	p, q := splitPath(path), splitPath(prefix)
	if len(q) > len(p) {
		return false
	}
	for i := range q {
		if p[i] != q[i] {
			return false
		}
	}
	return true
}
