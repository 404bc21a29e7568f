package policy

import (
	"reflect"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/gzhole/opguard/internal/operation"
	"github.com/gzhole/opguard/internal/rules"
)

var (
	propEndpoints = []string{
		"/applications/123/change_field/",
		"/applications/123/records/bulk/",
		"/applications/123/records",
		"/applications/123/records/",
		"/applications/123/records/list/",
		"/applications/123/",
		"/applications/123/fields",
		"/applications/123/delete_field/",
		"",
		"//",
		"/applications//123//records",
	}
	propMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE"}
)

// genOperation builds operations from fragments that exercise every
// pattern and heuristic in the default rule set.
func genOperation(endpoint, method, payloadKind, count int, withLabels bool) operation.CandidateOperation {
	op := operation.CandidateOperation{
		Endpoint: propEndpoints[endpoint],
		Method:   operation.Method(propMethods[method]),
		Payload:  map[string]any{},
	}
	switch payloadKind {
	case 1:
		op.Payload["field_type"] = "singleselectfield"
		op.Payload["options"] = []any{"A", "B"}
	case 2:
		op.Payload["records"] = bulkRecords(count)
	case 3:
		op.FieldTypes = map[string]string{"notes": "richtextareafield"}
		op.Payload["notes"] = "plain"
	case 4:
		op.Payload["filter"] = map[string]any{"fields": make([]any, count%40)}
	case 5:
		op.Payload["id"] = "rec1"
		op.Payload["slug"] = "status"
	}
	if withLabels {
		op.Payload["Due Date"] = "2026-01-01"
	}
	return op
}

func operationGens() []gopter.Gen {
	return []gopter.Gen{
		gen.IntRange(0, len(propEndpoints)-1),
		gen.IntRange(0, len(propMethods)-1),
		gen.IntRange(0, 5),
		gen.IntRange(0, 220),
		gen.Bool(),
	}
}

func TestProperty_RedIffBlockersOrRedPattern(t *testing.T) {
	engine := defaultEngine(t)
	store := engine.Store()

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 300
	properties := gopter.NewProperties(parameters)

	properties.Property("severity is RED exactly when there are blockers or a RED pattern matched", prop.ForAll(
		func(endpoint, method, kind, count int, labels bool) bool {
			op := genOperation(endpoint, method, kind, count, labels)
			a, err := engine.Analyze(op)
			if err != nil {
				return op.Endpoint == "" // only the empty endpoint is rejected
			}
			redPattern := false
			for _, name := range a.MatchedPatternNames {
				if p, ok := store.Get(name); ok && p.Severity == rules.SeverityRed {
					redPattern = true
				}
			}
			isRed := a.Severity == rules.SeverityRed
			return isRed == (len(a.Blockers) > 0 || redPattern)
		},
		operationGens()...,
	))

	properties.TestingRun(t)
}

func TestProperty_ScoreBandsFollowSeverity(t *testing.T) {
	engine := defaultEngine(t)

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 300
	properties := gopter.NewProperties(parameters)

	properties.Property("score lies in its severity band", prop.ForAll(
		func(endpoint, method, kind, count int, labels bool) bool {
			a, err := engine.Analyze(genOperation(endpoint, method, kind, count, labels))
			if err != nil {
				return true
			}
			if a.Score < 0 || a.Score > 100 {
				return false
			}
			switch a.Severity {
			case rules.SeverityRed:
				return a.Score <= 20
			case rules.SeverityYellow:
				return a.Score > 20 && a.Score <= 60
			case rules.SeverityGreen:
				return a.Score > 60
			}
			return false
		},
		operationGens()...,
	))

	properties.Property("escalating an operation to RED lowers its score", prop.ForAll(
		func(endpoint, method, kind, count int) bool {
			base, err := engine.Analyze(genOperation(endpoint, method, kind, count, false))
			if err != nil {
				return true
			}
			worse := genOperation(endpoint, method, kind, count, false)
			worse.Endpoint = "/applications/123/records"
			worse.Method = operation.MethodGet
			after, err := engine.Analyze(worse)
			if err != nil {
				return false
			}
			if after.Severity != rules.SeverityRed {
				return false
			}
			if base.Severity == rules.SeverityRed {
				return after.Score <= 20
			}
			return after.Score < base.Score
		},
		gen.IntRange(0, len(propEndpoints)-1),
		gen.IntRange(0, len(propMethods)-1),
		gen.IntRange(0, 5),
		gen.IntRange(0, 220),
	))

	properties.TestingRun(t)
}

func TestProperty_Idempotent(t *testing.T) {
	engine := defaultEngine(t)

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("analyze twice yields identical names, severity and score", prop.ForAll(
		func(endpoint, method, kind, count int, labels bool) bool {
			op := genOperation(endpoint, method, kind, count, labels)
			first, err1 := engine.Analyze(op)
			second, err2 := engine.Analyze(op)
			if (err1 == nil) != (err2 == nil) {
				return false
			}
			return reflect.DeepEqual(first.MatchedPatternNames, second.MatchedPatternNames) &&
				first.Severity == second.Severity &&
				first.Score == second.Score &&
				first.GuidanceText == second.GuidanceText
		},
		operationGens()...,
	))

	properties.TestingRun(t)
}

func TestProperty_FirstNextStepIsImperative(t *testing.T) {
	engine := defaultEngine(t)

	parameters := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(parameters)

	properties.Property("first next step starts with Use, Run, Check or Verify", prop.ForAll(
		func(endpoint, method, kind, count int, labels bool) bool {
			a, err := engine.Analyze(genOperation(endpoint, method, kind, count, labels))
			if err != nil {
				return true
			}
			if len(a.NextSteps) == 0 {
				return false
			}
			for _, verb := range []string{"Use ", "Run ", "Check ", "Verify "} {
				if len(a.NextSteps[0]) >= len(verb) && a.NextSteps[0][:len(verb)] == verb {
					return true
				}
			}
			return false
		},
		operationGens()...,
	))

	properties.TestingRun(t)
}
