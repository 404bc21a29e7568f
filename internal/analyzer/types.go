package analyzer

import (
	"github.com/gzhole/opguard/internal/normalize"
	"github.com/gzhole/opguard/internal/operation"
	"github.com/gzhole/opguard/internal/rules"
)

// Analyzer is the interface every analysis layer implements.
// Each analyzer receives the shared Context (the operation plus enrichments
// from earlier layers) and returns zero or more Findings. Analyzers must not
// mutate ctx.Operation.
type Analyzer interface {
	// Name returns the analyzer's identifier (e.g., "pattern", "heuristic").
	Name() string

	// Analyze inspects the operation and returns findings.
	Analyze(ctx *Context) []Finding
}

// Context carries the candidate operation and accumulated enrichments
// through all analyzer layers.
type Context struct {
	Operation operation.CandidateOperation
	Endpoint  normalize.Endpoint

	// Matches is set by the pattern analyzer, in rule store load order.
	Matches []rules.Match
}

// NewContext builds a Context with the endpoint already normalized.
func NewContext(op operation.CandidateOperation) *Context {
	return &Context{
		Operation: op,
		Endpoint:  normalize.NormalizeEndpoint(op.Endpoint),
	}
}

// Finding is a single result from an analyzer.
type Finding struct {
	AnalyzerName string         `json:"analyzer"`
	RuleID       string         `json:"ruleId"`   // pattern name or heuristic id
	Category     string         `json:"category,omitempty"`
	Severity     rules.Severity `json:"severity"`
	Reason       string         `json:"reason"`
	Prevention   string         `json:"prevention,omitempty"`
	Suggestion   *Suggestion    `json:"suggestion,omitempty"`
}

// Suggestion is a correction attached to a finding. Batches is set when the
// fix is to split one request into several; each batch is a complete
// payload.
type Suggestion struct {
	Source string `json:"source"`
	rules.Correction
	Batches []map[string]any `json:"batches,omitempty"`
}
