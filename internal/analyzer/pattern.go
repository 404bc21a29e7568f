package analyzer

import (
	"fmt"
	"sort"

	"github.com/gzhole/opguard/internal/operation"
	"github.com/gzhole/opguard/internal/rules"
)

// PatternAnalyzer runs every pattern of a rule store against the operation.
// It is the first layer: it records the raw matches on the context so later
// layers and the engine can report matched pattern names.
type PatternAnalyzer struct {
	store *rules.Store
}

// NewPatternAnalyzer creates a pattern analyzer over store.
func NewPatternAnalyzer(store *rules.Store) *PatternAnalyzer {
	return &PatternAnalyzer{store: store}
}

func (a *PatternAnalyzer) Name() string { return "pattern" }

// Analyze returns one finding per matched pattern, in load order, followed
// by a YELLOW finding for each validation rule the operation exceeds.
func (a *PatternAnalyzer) Analyze(ctx *Context) []Finding {
	if a.store == nil {
		return nil
	}
	ctx.Matches = a.store.MatchAll(ctx.Operation)

	var findings []Finding
	for _, m := range ctx.Matches {
		p := m.Pattern
		f := Finding{
			AnalyzerName: a.Name(),
			RuleID:       p.Name,
			Category:     p.Category,
			Severity:     p.Severity,
			Reason:       p.Summary(),
			Prevention:   p.PreventionText(),
		}
		if p.Correction != nil {
			f.Suggestion = &Suggestion{Source: p.Name, Correction: p.Correction.Clone()}
		}
		findings = append(findings, f)
		findings = append(findings, checkValidationRules(a.Name(), p, ctx.Operation)...)
	}
	return findings
}

func checkValidationRules(analyzer string, p rules.Pattern, op operation.CandidateOperation) []Finding {
	var findings []Finding
	for _, rule := range p.ValidationRules {
		for _, v := range violations(rule, op) {
			findings = append(findings, Finding{
				AnalyzerName: analyzer,
				RuleID:       p.Name + "/" + rule.Type,
				Category:     p.Category,
				Severity:     rules.SeverityYellow,
				Reason:       v,
				Prevention:   p.PreventionText(),
			})
		}
	}
	return findings
}

// violations resolves the rule's path (or, with no path, every top-level
// payload value) and describes each value over the limit.
func violations(rule rules.ValidationRule, op operation.CandidateOperation) []string {
	targets := map[string]any{}
	if rule.Path != "" {
		if v, ok := op.Lookup(rule.Path); ok {
			targets[rule.Path] = v
		}
	} else {
		for k, v := range op.Payload {
			targets[k] = v
		}
	}

	paths := make([]string, 0, len(targets))
	for p := range targets {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	var out []string
	for _, path := range paths {
		v := targets[path]
		switch rule.Type {
		case rules.ValidationMaxItems:
			if list, ok := operation.AsSlice(v); ok && len(list) > rule.Limit {
				out = append(out, fmt.Sprintf("%s has %d items; the limit is %d", path, len(list), rule.Limit))
			}
		case rules.ValidationMaxLength:
			if s, ok := v.(string); ok && len([]rune(s)) > rule.Limit {
				out = append(out, fmt.Sprintf("%s is %d characters long; the limit is %d", path, len([]rune(s)), rule.Limit))
			}
		}
	}
	return out
}
