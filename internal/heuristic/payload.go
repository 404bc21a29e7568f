package heuristic

import (
	"sort"
	"strconv"
	"strings"

	"github.com/gzhole/opguard/internal/operation"
)

// sortedKeys returns the keys of m in lexical order so findings are
// deterministic.
func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// locateMap follows path (map keys and array indexes) from root and returns
// the map found there.
func locateMap(root any, path []string) (map[string]any, bool) {
	cur := root
	for _, seg := range path {
		if m, ok := cur.(map[string]any); ok {
			next, ok := m[seg]
			if !ok {
				return nil, false
			}
			cur = next
			continue
		}
		list, ok := cur.([]any)
		if !ok {
			return nil, false
		}
		i, err := strconv.Atoi(seg)
		if err != nil || i < 0 || i >= len(list) {
			return nil, false
		}
		cur = list[i]
	}
	m, ok := cur.(map[string]any)
	return m, ok
}

// displayPath renders a payload path the way messages quote it.
func displayPath(path []string, key string) string {
	parts := append([]string{"payload"}, path...)
	if key != "" {
		parts = append(parts, key)
	}
	return strings.Join(parts, ".")
}

// copyPayload deep-copies the payload into JSON-like types so corrections
// never alias the caller's data.
func copyPayload(p map[string]any) map[string]any {
	if c := operation.CopyPayload(p); c != nil {
		return c
	}
	return map[string]any{}
}

func isScalar(v any) bool {
	switch v.(type) {
	case nil, map[string]any:
		return false
	}
	if _, ok := operation.AsSlice(v); ok {
		return false
	}
	return true
}
