package analyzer

// Registry is an ordered collection of analyzers that runs them in sequence,
// threading the Context through each layer. The Combiner merges all findings
// into a final CombinedResult.
type Registry struct {
	analyzers []Analyzer
	combiner  *Combiner
}

// NewRegistry creates an analyzer registry with the given analyzers and combiner.
// Analyzers are executed in the order provided.
func NewRegistry(analyzers []Analyzer, combiner *Combiner) *Registry {
	if combiner == nil {
		combiner = NewCombiner()
	}
	return &Registry{
		analyzers: analyzers,
		combiner:  combiner,
	}
}

// RunAll executes all registered analyzers in order, collects findings,
// and returns the combined result.
func (r *Registry) RunAll(ctx *Context) CombinedResult {
	var allFindings []Finding

	for _, a := range r.analyzers {
		allFindings = append(allFindings, a.Analyze(ctx)...)
	}

	return r.combiner.Combine(allFindings)
}

// Analyzers returns the list of registered analyzers (for inspection/testing).
func (r *Registry) Analyzers() []Analyzer {
	return append([]Analyzer(nil), r.analyzers...)
}
