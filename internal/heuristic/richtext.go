package heuristic

import (
	"fmt"
	"html"
	"strings"

	"github.com/gzhole/opguard/internal/analyzer"
	"github.com/gzhole/opguard/internal/operation"
	"github.com/gzhole/opguard/internal/rules"
)

var richFieldTypes = map[string]bool{
	"richtextareafield": true,
	"richtextarea":      true,
	"richtext":          true,
	"rich_text":         true,
}

// richContent flags plain scalars supplied for fields declared as rich
// text. The API stores rich text as a structured document; a bare string
// is rejected or saved empty.
func (a *Analyzer) richContent(ctx *analyzer.Context) []detection {
	op := ctx.Operation
	if len(op.FieldTypes) == 0 || len(op.Payload) == 0 {
		return nil
	}

	corrected := copyPayload(op.Payload)
	var where []string
	var fieldType string

	fix := func(orig, fixed map[string]any, path []string) {
		for _, k := range sortedKeys(orig) {
			t, ok := op.FieldType(k)
			if !ok || !richFieldTypes[t] || !isScalar(orig[k]) {
				continue
			}
			fixed[k] = richDocument(fmt.Sprint(orig[k]))
			where = append(where, displayPath(path, k))
			fieldType = t
		}
	}

	fix(op.Payload, corrected, nil)
	for _, key := range []string{"records", "items"} {
		list, ok := operation.AsSlice(op.Payload[key])
		if !ok {
			continue
		}
		fixedList, _ := corrected[key].([]any)
		for i, item := range list {
			m, ok := item.(map[string]any)
			if !ok || i >= len(fixedList) {
				continue
			}
			fixedItem, ok := fixedList[i].(map[string]any)
			if !ok {
				continue
			}
			fix(m, fixedItem, []string{key, fmt.Sprint(i)})
		}
	}

	if len(where) == 0 {
		return nil
	}
	return []detection{{
		id: "rich-content-scalar",
		reason: fmt.Sprintf("%s holds plain text for a %s field; the API requires a structured document",
			strings.Join(where, ", "), fieldType),
		prevention: "Send rich text as a document object with data, html and preview.",
		correction: &rules.Correction{
			Description:      "Wrap the plain text in a minimal rich text document.",
			CorrectedPayload: corrected,
		},
	}}
}

// richDocument is the smallest document the API accepts for a rich text
// field: one paragraph holding the text.
func richDocument(text string) map[string]any {
	content := []any{}
	if text != "" {
		content = append(content, map[string]any{"type": "text", "text": text})
	}
	return map[string]any{
		"data": map[string]any{
			"type": "doc",
			"content": []any{
				map[string]any{"type": "paragraph", "content": content},
			},
		},
		"html":    "<p>" + html.EscapeString(text) + "</p>",
		"preview": text,
	}
}
