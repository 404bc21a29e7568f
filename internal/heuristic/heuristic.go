// Package heuristic holds the structural checks that need type-aware logic
// the trigger language cannot express: select-option corruption, oversized
// batches, rejected transport shapes, scalar rich-text values and
// label-keyed payloads.
//
// Each check owns one category. The combiner treats this analyzer as
// authoritative for corrections in those categories, so a pattern with the
// same category still reports its text but not its static correction.
package heuristic

import (
	"fmt"
	"log/slog"

	"github.com/gzhole/opguard/internal/analyzer"
	"github.com/gzhole/opguard/internal/rules"
)

// AnalyzerName is the name findings from this package carry.
const AnalyzerName = "heuristic"

// Categories owned by the built-in checks.
const (
	CategoryIdentifierCorruption = "identifier-corruption"
	CategoryBulkSize             = "bulk-size"
	CategoryTransportShape       = "transport-shape"
	CategoryRichContent          = "rich-content"
	CategoryIdentifierLabel      = "identifier-label"
)

// DefaultBulkThreshold is the largest batch the remote API accepts.
const DefaultBulkThreshold = 100

// Analyzer runs the built-in checks in a fixed order.
type Analyzer struct {
	bulkThreshold int
	checks        []check
	log           *slog.Logger
}

// check is a single built-in heuristic.
type check struct {
	category string
	severity rules.Severity
	run      func(a *Analyzer, ctx *analyzer.Context) []detection
}

// detection is what a check reports; Analyze turns it into a Finding.
type detection struct {
	id         string
	reason     string
	prevention string
	correction *rules.Correction
	batches    []map[string]any
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithBulkThreshold overrides the batch size limit. Values below 1 are ignored.
func WithBulkThreshold(n int) Option {
	return func(a *Analyzer) {
		if n > 0 {
			a.bulkThreshold = n
		}
	}
}

// WithLogger sets the logger used to report checks that failed internally.
func WithLogger(l *slog.Logger) Option {
	return func(a *Analyzer) {
		if l != nil {
			a.log = l
		}
	}
}

// New creates the heuristic analyzer.
func New(opts ...Option) *Analyzer {
	a := &Analyzer{
		bulkThreshold: DefaultBulkThreshold,
		log:           slog.Default().With("component", "heuristic"),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.checks = []check{
		{category: CategoryIdentifierCorruption, severity: rules.SeverityRed, run: (*Analyzer).identifierCorruption},
		{category: CategoryBulkSize, severity: rules.SeverityYellow, run: (*Analyzer).bulkSize},
		{category: CategoryTransportShape, severity: rules.SeverityRed, run: (*Analyzer).transportShape},
		{category: CategoryRichContent, severity: rules.SeverityRed, run: (*Analyzer).richContent},
		{category: CategoryIdentifierLabel, severity: rules.SeverityYellow, run: (*Analyzer).identifierLabel},
	}
	return a
}

func (a *Analyzer) Name() string { return AnalyzerName }

// BulkThreshold returns the configured batch size limit.
func (a *Analyzer) BulkThreshold() int { return a.bulkThreshold }

// Analyze runs every check and converts detections into findings. A check
// that panics on an unexpected payload shape contributes nothing.
func (a *Analyzer) Analyze(ctx *analyzer.Context) []analyzer.Finding {
	var findings []analyzer.Finding
	for _, c := range a.checks {
		for _, d := range a.runCheck(c, ctx) {
			f := analyzer.Finding{
				AnalyzerName: AnalyzerName,
				RuleID:       d.id,
				Category:     c.category,
				Severity:     c.severity,
				Reason:       d.reason,
				Prevention:   d.prevention,
			}
			if d.correction != nil || len(d.batches) > 0 {
				s := &analyzer.Suggestion{Source: d.id, Batches: d.batches}
				if d.correction != nil {
					s.Correction = *d.correction
				}
				f.Suggestion = s
			}
			findings = append(findings, f)
		}
	}
	return findings
}

func (a *Analyzer) runCheck(c check, ctx *analyzer.Context) (out []detection) {
	defer func() {
		if r := recover(); r != nil {
			a.log.Warn("heuristic check failed", "category", c.category, "panic", fmt.Sprint(r))
			out = nil
		}
	}()
	return c.run(a, ctx)
}
