package heuristic

import (
	"fmt"

	"github.com/gzhole/opguard/internal/analyzer"
	"github.com/gzhole/opguard/internal/operation"
	"github.com/gzhole/opguard/internal/rules"
)

// batchKeys are payload arrays that carry one element per record or item.
var batchKeys = map[string]bool{
	"records": true, "items": true, "rows": true, "ids": true,
	"entries": true, "objects": true,
}

// bulkWrappers are payload objects whose arrays are checked like
// top-level ones, e.g. {"data": {"records": [...]}}.
var bulkWrappers = []string{"data", "fields", "values"}

// bulkSize flags payload arrays larger than the batch threshold, at the top
// level or one wrapper object down. An array counts as a batch when its key
// is a known batch key or every element is an object.
func (a *Analyzer) bulkSize(ctx *analyzer.Context) []detection {
	payload := ctx.Operation.Payload
	var out []detection

	inspect := func(path []string, container map[string]any) {
		for _, key := range sortedKeys(container) {
			list, ok := operation.AsSlice(container[key])
			if !ok || len(list) <= a.bulkThreshold {
				continue
			}
			if !batchKeys[key] && !allObjects(list) {
				continue
			}

			where := displayPath(path, key)
			batches := a.chunk(payload, path, key, list)
			out = append(out, detection{
				id: "bulk-oversized-batch",
				reason: fmt.Sprintf("%s holds %d items; the API accepts at most %d per request",
					where, len(list), a.bulkThreshold),
				prevention: fmt.Sprintf("Run the operation in %d batches of at most %d items.", len(batches), a.bulkThreshold),
				correction: &rules.Correction{
					Description: fmt.Sprintf("Split %s into %d requests of at most %d items, keeping the original order.",
						where, len(batches), a.bulkThreshold),
				},
				batches: batches,
			})
		}
	}

	inspect(nil, payload)
	for _, w := range bulkWrappers {
		if m, ok := payload[w].(map[string]any); ok {
			inspect([]string{w}, m)
		}
	}
	return out
}

// chunk returns one complete payload per batch, each carrying a consecutive
// slice of list under path.key.
func (a *Analyzer) chunk(payload map[string]any, path []string, key string, list []any) []map[string]any {
	var batches []map[string]any
	for start := 0; start < len(list); start += a.bulkThreshold {
		end := start + a.bulkThreshold
		if end > len(list) {
			end = len(list)
		}
		batch := copyPayload(payload)
		target, ok := locateMap(batch, path)
		if !ok {
			continue
		}
		part := make([]any, 0, end-start)
		for _, item := range list[start:end] {
			part = append(part, operation.DeepCopy(item))
		}
		target[key] = part
		batches = append(batches, batch)
	}
	return batches
}

func allObjects(list []any) bool {
	for _, item := range list {
		if _, ok := item.(map[string]any); !ok {
			return false
		}
	}
	return len(list) > 0
}
