package policy

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"sync/atomic"
	"time"

	"github.com/gzhole/opguard/internal/analyzer"
	"github.com/gzhole/opguard/internal/heuristic"
	"github.com/gzhole/opguard/internal/operation"
	"github.com/gzhole/opguard/internal/rules"
)

// ErrNoStore is returned by NewEngine without a rule store.
var ErrNoStore = errors.New("policy engine needs a rule store")

// Engine is the safety assessor. It is safe for concurrent use; the only
// mutable state is the log callback, which is swapped atomically.
type Engine struct {
	store    *rules.Store
	registry *analyzer.Registry
	logFn    atomic.Pointer[LogFunc]
	log      *slog.Logger
	now      func() time.Time
}

// Option configures an Engine.
type Option func(*engineConfig)

type engineConfig struct {
	registry  *analyzer.Registry
	heuristic []heuristic.Option
	log       *slog.Logger
	now       func() time.Time
}

// WithRegistry replaces the standard analyzer pipeline.
func WithRegistry(r *analyzer.Registry) Option {
	return func(c *engineConfig) { c.registry = r }
}

// WithHeuristicOptions configures the built-in heuristics of the standard
// pipeline.
func WithHeuristicOptions(opts ...heuristic.Option) Option {
	return func(c *engineConfig) { c.heuristic = append(c.heuristic, opts...) }
}

// WithLogger sets the process logger used for contained callback failures.
func WithLogger(l *slog.Logger) Option {
	return func(c *engineConfig) { c.log = l }
}

// WithClock sets the time source for log record timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *engineConfig) { c.now = now }
}

// NewEngine creates an engine over store.
func NewEngine(store *rules.Store, opts ...Option) (*Engine, error) {
	if store == nil {
		return nil, ErrNoStore
	}
	cfg := engineConfig{now: time.Now}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.log == nil {
		cfg.log = slog.Default().With("component", "policy")
	}
	if cfg.registry == nil {
		cfg.registry = BuildAnalyzerPipeline(store, append([]heuristic.Option{heuristic.WithLogger(cfg.log)}, cfg.heuristic...)...)
	}
	return &Engine{
		store:    store,
		registry: cfg.registry,
		log:      cfg.log,
		now:      cfg.now,
	}, nil
}

// Store returns the engine's rule store (for inspection/testing).
func (e *Engine) Store() *rules.Store { return e.store }

// SetLogFunc registers fn to receive one record per Analyze call. A nil fn
// removes the callback. Calls already in flight keep the callback they
// started with.
func (e *Engine) SetLogFunc(fn LogFunc) {
	if fn == nil {
		e.logFn.Store(nil)
		return
	}
	e.logFn.Store(&fn)
}

// Analyze classifies op. Operations without an endpoint or method are
// rejected with a *operation.ValidationError before any matching runs;
// everything else gets a best-effort assessment.
func (e *Engine) Analyze(op operation.CandidateOperation) (Assessment, error) {
	logFn := e.logFn.Load()

	if err := op.Validate(); err != nil {
		return Assessment{}, err
	}

	ctx := analyzer.NewContext(op)
	combined := e.registry.RunAll(ctx)

	a := Assessment{
		Severity:             combined.Severity,
		Classified:           combined.Severity != rules.SeverityUnknown,
		Warnings:             []string{},
		Blockers:             []string{},
		SuggestedCorrections: combined.Suggestions,
		MatchedPatternNames:  make([]string, 0, len(ctx.Matches)),
		Findings:             combined.Findings,
	}
	if !a.Classified {
		a.Severity = rules.SeverityYellow
	}

	for _, m := range ctx.Matches {
		a.MatchedPatternNames = append(a.MatchedPatternNames, m.Pattern.Name)
	}
	for _, f := range combined.Findings {
		switch f.Severity {
		case rules.SeverityRed:
			a.Blockers = appendUnique(a.Blockers, f.Reason)
		case rules.SeverityYellow:
			a.Warnings = appendUnique(a.Warnings, f.Reason)
		}
	}

	a.Score = score(a)
	a.NextSteps = nextSteps(a, op)
	a.GuidanceText = buildGuidance(a, op)

	if logFn != nil {
		e.emit(*logFn, a, op)
	}
	return a, nil
}

// emit delivers the log record, containing any failure of the callback.
func (e *Engine) emit(fn LogFunc, a Assessment, op operation.CandidateOperation) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Warn("assessment log callback panicked", "panic", fmt.Sprint(r))
		}
	}()

	logged := op
	logged.Payload = operation.CopyPayload(op.Payload)
	logged.FieldTypes = maps.Clone(op.FieldTypes)

	rec := LogRecord{
		Operation:           logged,
		Severity:            a.Severity,
		Score:               a.Score,
		MatchedPatternNames: append([]string(nil), a.MatchedPatternNames...),
		Warnings:            append([]string(nil), a.Warnings...),
		Blockers:            append([]string(nil), a.Blockers...),
		LogLevel:            a.Severity.LogLevel(),
		Timestamp:           e.now().UTC(),
	}
	if err := fn(rec); err != nil {
		e.log.Warn("assessment log callback failed", "error", err)
	}
}

func appendUnique(list []string, s string) []string {
	if s == "" {
		return list
	}
	for _, existing := range list {
		if existing == s {
			return list
		}
	}
	return append(list, s)
}
