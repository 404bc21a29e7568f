package analyzer

import "github.com/gzhole/opguard/internal/rules"

// CombinedResult is the output of the Combiner, kept free of policy imports
// to avoid import cycles. The engine turns it into a policy.Assessment.
type CombinedResult struct {
	// Severity is the worst severity across findings, or SeverityUnknown
	// when there were none.
	Severity       rules.Severity
	TriggeredRules []string // rule ids at the worst severity
	Findings       []Finding
	Suggestions    []Suggestion
}

// Combiner merges findings from all analyzers with worst-wins aggregation
// (GREEN < YELLOW < RED).
//
// Analyzers listed as authoritative own the categories they report: when
// one of them attaches a suggestion for a category, suggestions from other
// analyzers in the same category are dropped. The findings themselves are
// kept, so their warning and blocker text still surfaces.
type Combiner struct {
	Authoritative []string
}

// NewCombiner creates a Combiner. The named analyzers are authoritative
// for corrections in the categories they report.
func NewCombiner(authoritative ...string) *Combiner {
	return &Combiner{Authoritative: authoritative}
}

// Combine merges all findings into a final CombinedResult.
func (c *Combiner) Combine(findings []Finding) CombinedResult {
	result := CombinedResult{
		Severity:       rules.SeverityUnknown,
		TriggeredRules: []string{},
		Findings:       make([]Finding, 0, len(findings)),
		Suggestions:    []Suggestion{},
	}

	owned := map[string]bool{}
	for _, f := range findings {
		if f.Category != "" && f.Suggestion != nil && c.isAuthoritative(f.AnalyzerName) {
			owned[f.Category] = true
		}
	}

	for _, f := range findings {
		if f.Suggestion != nil && owned[f.Category] && !c.isAuthoritative(f.AnalyzerName) {
			f.Suggestion = nil
		}
		result.Findings = append(result.Findings, f)

		if f.Suggestion != nil {
			result.Suggestions = append(result.Suggestions, *f.Suggestion)
		}

		if worst := rules.Worst(result.Severity, f.Severity); worst != result.Severity {
			result.Severity = worst
			result.TriggeredRules = []string{f.RuleID}
		} else if f.Severity == result.Severity {
			result.TriggeredRules = append(result.TriggeredRules, f.RuleID)
		}
	}

	return result
}

func (c *Combiner) isAuthoritative(analyzer string) bool {
	for _, a := range c.Authoritative {
		if a == analyzer {
			return true
		}
	}
	return false
}
