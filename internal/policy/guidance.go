package policy

import (
	"fmt"
	"strings"

	"github.com/gzhole/opguard/internal/analyzer"
	"github.com/gzhole/opguard/internal/operation"
	"github.com/gzhole/opguard/internal/rules"
)

// Banner markers, one per severity.
const (
	MarkerRed          = "[RED] BLOCKED"
	MarkerYellow       = "[YELLOW] CAUTION"
	MarkerUnclassified = "[YELLOW] UNCLASSIFIED"
	MarkerGreen        = "[GREEN] SAFE"
)

// UnclassifiedGuidance is the banner text for operations nothing matched.
const UnclassifiedGuidance = "No known classification available. Proceed with caution: absence of a known-bad pattern is not proof of safety."

// score maps an assessment onto disjoint bands so that a worse severity
// never scores higher: RED 0-20, YELLOW 21-60, GREEN 61-100.
func score(a Assessment) int {
	switch a.Severity {
	case rules.SeverityRed:
		return clamp(20-5*(len(a.Blockers)-1), 0, 20)
	case rules.SeverityYellow:
		if !a.Classified {
			return 50
		}
		return clamp(60-5*(len(a.Warnings)-1), 21, 60)
	default:
		return 100
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func buildGuidance(a Assessment, op operation.CandidateOperation) string {
	var sb strings.Builder

	target := fmt.Sprintf("%s %s", op.NormalizedMethod(), op.Endpoint)
	switch {
	case a.Severity == rules.SeverityRed:
		fmt.Fprintf(&sb, "%s: %d blocking issue(s) for %s\n", MarkerRed, len(a.Blockers), target)
	case !a.Classified:
		fmt.Fprintf(&sb, "%s: %s\n", MarkerUnclassified, target)
		fmt.Fprintf(&sb, "%s\n", UnclassifiedGuidance)
	case a.Severity == rules.SeverityYellow:
		fmt.Fprintf(&sb, "%s: %d warning(s) for %s\n", MarkerYellow, len(a.Warnings), target)
	default:
		fmt.Fprintf(&sb, "%s: %s matches known-safe patterns\n", MarkerGreen, target)
	}

	writeFindings(&sb, "Blockers", a.Findings, rules.SeverityRed)
	writeFindings(&sb, "Warnings", a.Findings, rules.SeverityYellow)

	if len(a.MatchedPatternNames) > 0 {
		fmt.Fprintf(&sb, "Matched patterns: %s\n", strings.Join(a.MatchedPatternNames, ", "))
	}

	if len(a.NextSteps) > 0 {
		sb.WriteString("Next steps:\n")
		for i, step := range a.NextSteps {
			fmt.Fprintf(&sb, "  %d. %s\n", i+1, step)
		}
	}

	return sb.String()
}

// writeFindings lists findings of one severity as bullets, each followed by
// its prevention hint when there is one. Repeated reasons are listed once.
func writeFindings(sb *strings.Builder, title string, findings []analyzer.Finding, sev rules.Severity) {
	seen := map[string]bool{}
	header := false
	for _, f := range findings {
		if f.Severity != sev || f.Reason == "" || seen[f.Reason] {
			continue
		}
		seen[f.Reason] = true
		if !header {
			fmt.Fprintf(sb, "%s:\n", title)
			header = true
		}
		fmt.Fprintf(sb, "  - %s\n", f.Reason)
		if f.Prevention != "" {
			fmt.Fprintf(sb, "    Prevention: %s\n", f.Prevention)
		}
	}
}

// nextSteps returns ordered, imperative follow-ups. The first entry always
// starts with Use, Run, Check or Verify.
func nextSteps(a Assessment, op operation.CandidateOperation) []string {
	var steps []string
	switch {
	case a.Severity == rules.SeverityRed:
		if s, ok := firstActionable(a.SuggestedCorrections); ok {
			steps = append(steps, fmt.Sprintf("Use the suggested correction from %s instead of the original request.", s.Source))
		} else {
			steps = append(steps, "Check each blocker above and rewrite the operation before retrying.")
		}
		steps = append(steps,
			"Run the check again on the corrected operation.",
			"Verify the corrected operation with a dry run before executing it.",
		)

	case !a.Classified:
		steps = append(steps,
			"Verify the endpoint, method and payload against the API documentation.",
			"Run the operation with dryRun first and check the response.",
		)

	case a.Severity == rules.SeverityYellow:
		if s, ok := firstBatched(a.SuggestedCorrections); ok {
			steps = append(steps, fmt.Sprintf("Use the %d suggested batches instead of a single request.", len(s.Batches)))
		} else {
			steps = append(steps, "Verify each warning above before executing.")
		}
		if !op.DryRun {
			steps = append(steps, "Run the operation with dryRun first.")
		}

	default:
		steps = append(steps, "Use the operation as proposed.")
		if op.NormalizedMethod() != operation.MethodGet {
			steps = append(steps, "Check the response before chaining further writes.")
		}
	}
	return steps
}

func firstActionable(suggestions []analyzer.Suggestion) (analyzer.Suggestion, bool) {
	for _, s := range suggestions {
		if s.CorrectedEndpoint != "" || s.CorrectedMethod != "" || s.CorrectedPayload != nil || len(s.Batches) > 0 {
			return s, true
		}
	}
	return analyzer.Suggestion{}, false
}

func firstBatched(suggestions []analyzer.Suggestion) (analyzer.Suggestion, bool) {
	for _, s := range suggestions {
		if len(s.Batches) > 0 {
			return s, true
		}
	}
	return analyzer.Suggestion{}, false
}
