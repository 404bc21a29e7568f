package operation

import (
	"reflect"
	"strconv"
	"strings"
)

// Lookup resolves a dotted path against the operation. The payload is
// searched first; when the path does not resolve there, the top-level
// operation fields are tried (endpoint, method, operationDescription,
// tableId, fieldTypes.<name>). An explicit "payload." prefix restricts the
// search to the payload.
//
// Numeric segments index into arrays. Any missing segment short-circuits
// to not-found; Lookup never panics on arbitrary payload shapes.
func (op CandidateOperation) Lookup(path string) (any, bool) {
	segments := splitPath(path)
	if len(segments) == 0 {
		return nil, false
	}

	if segments[0] == "payload" {
		if op.Payload == nil {
			return nil, false
		}
		if len(segments) == 1 {
			return op.Payload, true
		}
		return walk(op.Payload, segments[1:])
	}

	if v, ok := walk(op.Payload, segments); ok {
		return v, true
	}

	return op.lookupTopLevel(segments)
}

func (op CandidateOperation) lookupTopLevel(segments []string) (any, bool) {
	switch segments[0] {
	case "endpoint":
		return scalarLeaf(op.Endpoint, segments)
	case "method":
		return scalarLeaf(string(op.Method), segments)
	case "operationDescription":
		return scalarLeaf(op.OperationDescription, segments)
	case "tableId":
		return scalarLeaf(op.TableID, segments)
	case "fieldTypes":
		if op.FieldTypes == nil {
			return nil, false
		}
		if len(segments) == 1 {
			return op.FieldTypes, true
		}
		if len(segments) != 2 {
			return nil, false
		}
		v, ok := op.FieldTypes[segments[1]]
		return v, ok
	}
	return nil, false
}

// scalarLeaf treats empty strings as absent so "exists" on an unset
// optional field is false.
func scalarLeaf(v string, segments []string) (any, bool) {
	if len(segments) != 1 || v == "" {
		return nil, false
	}
	return v, true
}

func walk(node any, segments []string) (any, bool) {
	cur := node
	for _, seg := range segments {
		switch n := cur.(type) {
		case map[string]any:
			next, ok := n[seg]
			if !ok {
				return nil, false
			}
			cur = next
		default:
			list, ok := AsSlice(n)
			if !ok {
				return nil, false
			}
			idx, err := strconv.Atoi(seg)
			if err != nil || idx < 0 || idx >= len(list) {
				return nil, false
			}
			cur = list[idx]
		}
	}
	return cur, true
}

func splitPath(path string) []string {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}
	parts := strings.Split(path, ".")
	out := parts[:0]
	for _, p := range parts {
		if p == "" {
			return nil
		}
		out = append(out, p)
	}
	return out
}

// DeepCopy returns a copy of a decoded JSON/YAML value that shares no maps
// or slices with the input. Typed slices come back as []any.
func DeepCopy(v any) any {
	if m, ok := v.(map[string]any); ok {
		out := make(map[string]any, len(m))
		for k, val := range m {
			out[k] = DeepCopy(val)
		}
		return out
	}
	if list, ok := AsSlice(v); ok {
		out := make([]any, len(list))
		for i, val := range list {
			out[i] = DeepCopy(val)
		}
		return out
	}
	return v
}

// CopyPayload deep-copies a payload map.
func CopyPayload(p map[string]any) map[string]any {
	if p == nil {
		return nil
	}
	return DeepCopy(p).(map[string]any)
}

// AsSlice returns v as a []any when it is any slice or array kind, so
// payloads built in Go (e.g. []string) and decoded JSON ([]any) are
// handled alike.
func AsSlice(v any) ([]any, bool) {
	if s, ok := v.([]any); ok {
		return s, true
	}
	if v == nil {
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8 {
		return nil, false // []byte is a scalar blob, not a list
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}
