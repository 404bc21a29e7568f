package analyzer

import (
	"strings"
	"testing"

	"github.com/gzhole/opguard/internal/operation"
	"github.com/gzhole/opguard/internal/rules"
	"github.com/gzhole/opguard/internal/trigger"
)

func mustCompile(t *testing.T, spec trigger.Spec) trigger.Expression {
	t.Helper()
	expr, err := trigger.Compile(spec)
	if err != nil {
		t.Fatalf("compile %+v: %v", spec, err)
	}
	return expr
}

func testStore(t *testing.T) *rules.Store {
	t.Helper()
	store, err := rules.NewStore("1.0.0",
		rules.Pattern{
			Name:     "table-delete",
			Severity: rules.SeverityRed,
			Trigger: mustCompile(t, trigger.Spec{Type: "all", Conditions: []trigger.Spec{
				{Type: "endpoint", Shape: "/applications/*"},
				{Type: "method", Method: "DELETE"},
			}}),
			FailureModes: []rules.FailureMode{{Description: "Table removed.", Prevention: "Export first."}},
			Correction:   &rules.Correction{Description: "Delete records instead."},
		},
		rules.Pattern{
			Name:     "filtered-list",
			Severity: rules.SeverityGreen,
			Trigger:  mustCompile(t, trigger.Spec{Type: "endpoint", Contains: "/records/list/"}),
			ValidationRules: []rules.ValidationRule{
				{Type: rules.ValidationMaxItems, Path: "filter.fields", Limit: 2},
				{Type: rules.ValidationMaxLength, Path: "search", Limit: 5},
			},
		},
		rules.Pattern{
			Name:            "any-post",
			Severity:        rules.SeverityYellow,
			Trigger:         mustCompile(t, trigger.Spec{Type: "method", Method: "POST"}),
			ValidationRules: []rules.ValidationRule{{Type: rules.ValidationMaxItems, Limit: 3}},
		},
	)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return store
}

func TestPatternAnalyzer_Match(t *testing.T) {
	a := NewPatternAnalyzer(testStore(t))
	ctx := NewContext(operation.CandidateOperation{Endpoint: "/applications/9/", Method: "DELETE"})

	findings := a.Analyze(ctx)
	if len(findings) != 1 {
		t.Fatalf("expected 1 finding, got %d: %+v", len(findings), findings)
	}
	f := findings[0]
	if f.RuleID != "table-delete" || f.Severity != rules.SeverityRed {
		t.Errorf("unexpected finding %+v", f)
	}
	if f.Reason != "Table removed." || f.Prevention != "Export first." {
		t.Errorf("unexpected text: reason=%q prevention=%q", f.Reason, f.Prevention)
	}
	if f.Suggestion == nil || f.Suggestion.Source != "table-delete" {
		t.Errorf("expected suggestion from pattern correction, got %+v", f.Suggestion)
	}
	if len(ctx.Matches) != 1 {
		t.Errorf("expected ctx.Matches to be set, got %d", len(ctx.Matches))
	}
}

func TestPatternAnalyzer_ValidationRules(t *testing.T) {
	a := NewPatternAnalyzer(testStore(t))

	tests := []struct {
		name    string
		payload map[string]any
		want    []string // expected rule ids after the pattern findings
	}{
		{
			name:    "within limits",
			payload: map[string]any{"filter": map[string]any{"fields": []any{"a"}}, "search": "abc"},
		},
		{
			name:    "too many filter fields",
			payload: map[string]any{"filter": map[string]any{"fields": []any{"a", "b", "c"}}},
			want:    []string{"filtered-list/max_items"},
		},
		{
			name:    "search too long",
			payload: map[string]any{"search": "abcdefgh"},
			want:    []string{"filtered-list/max_length"},
		},
		{
			name:    "top-level array over pathless limit",
			payload: map[string]any{"ids": []string{"1", "2", "3", "4"}},
			want:    []string{"any-post/max_items"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := NewContext(operation.CandidateOperation{
				Endpoint: "/applications/9/records/list/",
				Method:   "POST",
				Payload:  tt.payload,
			})
			var got []string
			for _, f := range a.Analyze(ctx) {
				if strings.Contains(f.RuleID, "/") {
					got = append(got, f.RuleID)
					if f.Severity != rules.SeverityYellow {
						t.Errorf("validation finding %s should be YELLOW, got %s", f.RuleID, f.Severity)
					}
				}
			}
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("validation findings = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPatternAnalyzer_DoesNotMutateOperation(t *testing.T) {
	a := NewPatternAnalyzer(testStore(t))
	payload := map[string]any{"filter": map[string]any{"fields": []any{"a", "b", "c"}}}
	op := operation.CandidateOperation{Endpoint: "/applications/9/records/list/", Method: "POST", Payload: payload}

	findings := a.Analyze(NewContext(op))
	for _, f := range findings {
		if f.Suggestion != nil {
			f.Suggestion.Description = "changed"
		}
	}

	fields := payload["filter"].(map[string]any)["fields"].([]any)
	if len(fields) != 3 {
		t.Errorf("payload mutated: %v", fields)
	}
}

func TestPatternAnalyzer_NilStore(t *testing.T) {
	a := NewPatternAnalyzer(nil)
	if got := a.Analyze(NewContext(operation.CandidateOperation{Endpoint: "/x", Method: "GET"})); got != nil {
		t.Errorf("expected no findings, got %v", got)
	}
}
