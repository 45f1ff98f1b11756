// Package params nests flat form and query values by bracket syntax.
//
//	a=1          -> {"a": "1"}
//	a[]=1&a[]=2  -> {"a": ["1", "2"]}
//	a[b][c]=1    -> {"a": {"b": {"c": "1"}}}
//
// Values are already decoded; nothing here reads a request body.
package params

import (
	"maps"
	"net/url"
	"slices"
	"strconv"
)

// Split breaks a field name into its bracket path.
//
//	Split("a")        -> ["a"]
//	Split("a[b][]")   -> ["a", "b", ""]
//
// Names that are not well formed are returned whole.
func Split(name string) []string {
	open := -1
	for i := 0; i < len(name); i++ {
		if name[i] == '[' {
			open = i
			break
		}
	}
	if open <= 0 {
		return []string{name}
	}

	path := []string{name[:open]}
	rest := name[open:]
	for len(rest) > 0 {
		if rest[0] != '[' {
			return []string{name}
		}
		closeIdx := -1
		for i := 1; i < len(rest); i++ {
			if rest[i] == ']' {
				closeIdx = i
				break
			}
		}
		if closeIdx < 0 {
			return []string{name}
		}
		path = append(path, rest[1:closeIdx])
		rest = rest[closeIdx+1:]
	}
	return path
}

// Nest converts flat values into a nested tree.
//
// Keys are processed in sorted order so the result is deterministic.
// A plain key repeated several times keeps its last value.
func Nest(values url.Values) map[string]any {
	root := make(map[string]any, len(values))
	for _, key := range slices.Sorted(maps.Keys(values)) {
		path := Split(key)
		for _, v := range values[key] {
			Set(root, path, v)
		}
	}
	return root
}

// Set stores value at path inside root, creating intermediate nodes.
// An empty path segment appends to a list.
func Set(root map[string]any, path []string, value any) {
	if len(path) == 0 {
		return
	}
	root[path[0]] = place(root[path[0]], path[1:], value)
}

func place(node any, path []string, value any) any {
	if len(path) == 0 {
		return value
	}

	seg, rest := path[0], path[1:]
	if seg == "" {
		switch n := node.(type) {
		case []any:
			return append(n, place(nil, rest, value))
		case map[string]any:
			n[strconv.Itoa(len(n))] = place(nil, rest, value)
			return n
		default:
			return []any{place(nil, rest, value)}
		}
	}

	var m map[string]any
	switch n := node.(type) {
	case map[string]any:
		m = n
	case []any:
		m = make(map[string]any, len(n)+1)
		for i, v := range n {
			m[strconv.Itoa(i)] = v
		}
	default:
		m = make(map[string]any, 1)
	}
	m[seg] = place(m[seg], rest, value)
	return m
}
