package heuristic

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/gzhole/opguard/internal/analyzer"
	"github.com/gzhole/opguard/internal/operation"
	"github.com/gzhole/opguard/internal/rules"
)

var selectFieldTypes = map[string]bool{
	"singleselectfield":   true,
	"multipleselectfield": true,
	"statusfield":         true,
}

// identifierCorruption flags a select-type field definition that carries
// "options" but no "choices". The API ignores "options" and regenerates the
// choice list, so every record loses its stored choice ids.
func (a *Analyzer) identifierCorruption(ctx *analyzer.Context) []detection {
	op := ctx.Operation
	var hits [][]string
	findOptionsWithoutChoices(op, op.Payload, nil, "", &hits)
	if len(hits) == 0 {
		return nil
	}

	corrected := copyPayload(op.Payload)
	var where []string
	for _, path := range hits {
		m, ok := locateMap(corrected, path)
		if !ok {
			continue
		}
		m["choices"] = m["options"]
		delete(m, "options")
		where = append(where, displayPath(path, "options"))
	}

	var out []detection
	for i, path := range hits {
		fieldType := selectTypeAt(op, op.Payload, path)
		d := detection{
			id: "identifier-options-without-choices",
			reason: fmt.Sprintf("%s is destructive for a %s field: the existing choices are replaced and records lose their values; send \"choices\" instead",
				displayPath(path, "options"), fieldType),
			prevention: "Send the full choice list under \"choices\", keeping each existing choice id.",
		}
		if i == 0 {
			d.correction = &rules.Correction{
				Description:      fmt.Sprintf("Rename %s to \"choices\"; the values are kept as sent.", strings.Join(where, ", ")),
				CorrectedPayload: corrected,
			}
		}
		out = append(out, d)
	}
	return out
}

func findOptionsWithoutChoices(op operation.CandidateOperation, node any, path []string, inherited string, hits *[][]string) {
	if m, ok := node.(map[string]any); ok {
		selectType := inherited
		if t := selectTypeOf(op, m); t != "" {
			selectType = t
		}
		_, hasOptions := m["options"]
		_, hasChoices := m["choices"]
		if selectType != "" && hasOptions && !hasChoices {
			*hits = append(*hits, append([]string(nil), path...))
		}
		for _, k := range sortedKeys(m) {
			if k == "options" || k == "choices" {
				continue
			}
			findOptionsWithoutChoices(op, m[k], append(path, k), selectType, hits)
		}
		return
	}
	if list, ok := operation.AsSlice(node); ok {
		for i, item := range list {
			findOptionsWithoutChoices(op, item, append(path, strconv.Itoa(i)), inherited, hits)
		}
	}
}

// selectTypeOf returns the select type a field definition map declares,
// either inline (field_type) or through the operation's field type metadata
// for its slug.
func selectTypeOf(op operation.CandidateOperation, m map[string]any) string {
	if t, ok := m["field_type"].(string); ok && selectFieldTypes[strings.ToLower(t)] {
		return strings.ToLower(t)
	}
	if slug, ok := m["slug"].(string); ok {
		if t, ok := op.FieldType(slug); ok && selectFieldTypes[t] {
			return t
		}
	}
	return ""
}

func selectTypeAt(op operation.CandidateOperation, root map[string]any, path []string) string {
	found := ""
	var cur any = root
	if t := selectTypeOf(op, root); t != "" {
		found = t
	}
	for _, seg := range path {
		switch n := cur.(type) {
		case map[string]any:
			cur = n[seg]
		default:
			list, ok := operation.AsSlice(n)
			i, err := strconv.Atoi(seg)
			if !ok || err != nil || i < 0 || i >= len(list) {
				return found
			}
			cur = list[i]
		}
		if m, ok := cur.(map[string]any); ok {
			if t := selectTypeOf(op, m); t != "" {
				found = t
			}
		}
	}
	return found
}

// controlKeys are request parameters, not field identifiers.
var controlKeys = map[string]bool{
	"id": true, "ids": true, "items": true, "records": true, "fields": true,
	"filter": true, "sort": true, "limit": true, "offset": true, "search": true,
	"slug": true, "label": true, "field_type": true, "params": true,
	"options": true, "choices": true, "values": true, "data": true,
}

// identifierLabel flags record payloads keyed by display labels ("Due Date")
// instead of field ids ("s3a1b2"). Labels are not resolved by the API; the
// values are silently dropped. Mixing both styles is reported separately
// because it usually means a partial translation.
func (a *Analyzer) identifierLabel(ctx *analyzer.Context) []detection {
	var labels, ids []string
	seen := map[string]bool{}
	for _, m := range recordMaps(ctx.Operation.Payload) {
		for _, k := range sortedKeys(m) {
			if controlKeys[k] || seen[k] {
				continue
			}
			seen[k] = true
			if looksLikeLabel(k) {
				labels = append(labels, k)
			} else {
				ids = append(ids, k)
			}
		}
	}
	if len(labels) == 0 {
		return nil
	}

	prevention := "Check the table structure and translate each label to its field id before sending."
	if len(ids) > 0 {
		return []detection{{
			id: "identifier-label-mixed",
			reason: fmt.Sprintf("payload mixes field ids (%s) with display labels (%s); labelled values are dropped by the API",
				quoteList(ids), quoteList(labels)),
			prevention: prevention,
		}}
	}
	return []detection{{
		id:         "identifier-label-only",
		reason:     fmt.Sprintf("payload is keyed by display labels (%s) instead of field ids", quoteList(labels)),
		prevention: prevention,
	}}
}

// recordMaps returns the maps whose keys are field identifiers: the payload
// itself plus record objects under records/items and a fields/values map.
func recordMaps(payload map[string]any) []map[string]any {
	if payload == nil {
		return nil
	}
	out := []map[string]any{payload}
	for _, key := range []string{"records", "items"} {
		if list, ok := operation.AsSlice(payload[key]); ok {
			for _, item := range list {
				if m, ok := item.(map[string]any); ok {
					out = append(out, m)
				}
			}
		}
	}
	for _, key := range []string{"fields", "values", "data"} {
		if m, ok := payload[key].(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

func looksLikeLabel(key string) bool {
	for _, r := range key {
		if unicode.IsSpace(r) || unicode.IsUpper(r) {
			return true
		}
	}
	return false
}

func quoteList(keys []string) string {
	const shown = 5
	quoted := make([]string, 0, len(keys))
	for i, k := range keys {
		if i == shown {
			quoted = append(quoted, fmt.Sprintf("and %d more", len(keys)-shown))
			break
		}
		quoted = append(quoted, strconv.Quote(k))
	}
	return strings.Join(quoted, ", ")
}
