package heuristic

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/gzhole/opguard/internal/analyzer"
	"github.com/gzhole/opguard/internal/operation"
	"github.com/gzhole/opguard/internal/rules"
)

// transportShape flags method/endpoint combinations the API rejects and
// supplies the exact request that works instead.
func (a *Analyzer) transportShape(ctx *analyzer.Context) []detection {
	op := ctx.Operation
	ep := ctx.Endpoint
	segs := ep.Segments
	n := len(segs)
	last := ep.Last()
	if last == "" {
		return nil
	}
	method := op.NormalizedMethod()

	switch {
	case method == operation.MethodGet && last == "records":
		target := joinPath(segs) + "list/"
		return []detection{{
			id:         "transport-list-via-get",
			reason:     fmt.Sprintf("GET %s is rejected: records are listed with a filtered POST to %s", ep.Path, target),
			prevention: "Use POST on the records/list/ endpoint with a filter body.",
			correction: &rules.Correction{
				Description:       "List records with POST on the list endpoint.",
				CorrectedMethod:   string(operation.MethodPost),
				CorrectedEndpoint: target,
			},
		}}

	case method == operation.MethodGet && last == "list" && n >= 2 && segs[n-2] == "records":
		target := joinPath(segs)
		return []detection{{
			id:         "transport-list-method",
			reason:     fmt.Sprintf("GET %s is rejected: the list endpoint only accepts POST", ep.Path),
			prevention: "Use POST with the same endpoint and a filter body.",
			correction: &rules.Correction{
				Description:       "Send the listing as POST.",
				CorrectedMethod:   string(operation.MethodPost),
				CorrectedEndpoint: target,
			},
		}}

	case method == operation.MethodDelete && last == "records":
		return []detection{deleteMissingID(op, segs)}

	case (method == operation.MethodPatch || method == operation.MethodPut) && last == "records":
		return []detection{updateMissingID(op, segs)}
	}
	return nil
}

func deleteMissingID(op operation.CandidateOperation, segs []string) detection {
	base := joinPath(segs)
	d := detection{
		id:         "transport-delete-missing-id",
		reason:     fmt.Sprintf("DELETE %s is missing the record id segment; the API rejects it", strings.TrimSuffix(base, "/")),
		prevention: "Use DELETE /applications/{id}/records/{record_id}/ or the bulk_delete endpoint for several records.",
	}
	switch {
	case scalarID(op.Payload["id"]) != "":
		d.correction = &rules.Correction{
			Description:       "Put the record id in the path.",
			CorrectedMethod:   string(operation.MethodDelete),
			CorrectedEndpoint: base + scalarID(op.Payload["id"]) + "/",
		}
	case hasList(op.Payload, "ids") || hasList(op.Payload, "items"):
		key := "items"
		if !hasList(op.Payload, "items") {
			key = "ids"
		}
		d.correction = &rules.Correction{
			Description:       "Delete several records with PATCH on bulk_delete.",
			CorrectedMethod:   string(operation.MethodPatch),
			CorrectedEndpoint: base + "bulk_delete/",
			CorrectedPayload:  map[string]any{"items": operation.DeepCopy(op.Payload[key])},
		}
	default:
		d.correction = &rules.Correction{
			Description:       "Append the id of the record to delete.",
			CorrectedMethod:   string(operation.MethodDelete),
			CorrectedEndpoint: base + "{record_id}/",
		}
	}
	return d
}

func updateMissingID(op operation.CandidateOperation, segs []string) detection {
	base := joinPath(segs)
	method := string(op.NormalizedMethod())
	d := detection{
		id:         "transport-update-missing-id",
		reason:     fmt.Sprintf("%s %s is missing the record id segment; the API rejects it", method, strings.TrimSuffix(base, "/")),
		prevention: "Use the record's own endpoint, or PATCH records/bulk/ for several records.",
	}
	switch {
	case scalarID(op.Payload["id"]) != "":
		d.correction = &rules.Correction{
			Description:       "Put the record id in the path.",
			CorrectedMethod:   method,
			CorrectedEndpoint: base + scalarID(op.Payload["id"]) + "/",
		}
	case hasList(op.Payload, "items") || hasList(op.Payload, "records"):
		d.correction = &rules.Correction{
			Description:       "Update several records with PATCH on the bulk endpoint.",
			CorrectedMethod:   string(operation.MethodPatch),
			CorrectedEndpoint: base + "bulk/",
		}
	default:
		d.correction = &rules.Correction{
			Description:       "Append the id of the record to update.",
			CorrectedMethod:   method,
			CorrectedEndpoint: base + "{record_id}/",
		}
	}
	return d
}

// joinPath renders segments as an absolute path with a trailing slash.
func joinPath(segs []string) string {
	return "/" + strings.Join(segs, "/") + "/"
}

// scalarID renders a payload id as a path segment. Numeric ids must be
// exact integers; a fractional or rounded id yields "" so the correction
// falls back to the {record_id} placeholder instead of naming another record.
func scalarID(v any) string {
	switch id := v.(type) {
	case string:
		id = strings.TrimSpace(id)
		if strings.ContainsAny(id, "/?#") {
			return ""
		}
		return id
	case json.Number:
		n, err := strconv.ParseInt(id.String(), 10, 64)
		if err != nil {
			return ""
		}
		return strconv.FormatInt(n, 10)
	case float64:
		// above 2^53 a float64 no longer holds every integer
		if id != math.Trunc(id) || math.Abs(id) >= 1<<53 {
			return ""
		}
		return strconv.FormatInt(int64(id), 10)
	case int:
		return strconv.Itoa(id)
	case int64:
		return strconv.FormatInt(id, 10)
	}
	return ""
}

func hasList(payload map[string]any, key string) bool {
	list, ok := operation.AsSlice(payload[key])
	return ok && len(list) > 0
}
