package policy

import (
	"github.com/gzhole/opguard/internal/analyzer"
	"github.com/gzhole/opguard/internal/heuristic"
	"github.com/gzhole/opguard/internal/rules"
)

// BuildAnalyzerPipeline creates the standard analyzer registry for a rule
// store: pattern matching first, then the built-in heuristics, combined
// worst-wins with the heuristics authoritative for corrections in the
// categories they own.
func BuildAnalyzerPipeline(store *rules.Store, opts ...heuristic.Option) *analyzer.Registry {
	return analyzer.NewRegistry(
		[]analyzer.Analyzer{
			analyzer.NewPatternAnalyzer(store),
			heuristic.New(opts...),
		},
		analyzer.NewCombiner(heuristic.AnalyzerName),
	)
}
