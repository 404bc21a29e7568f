package rules

import (
	"fmt"
	"sort"

	"github.com/Masterminds/semver/v3"

	"github.com/gzhole/opguard/internal/operation"
	"github.com/gzhole/opguard/internal/trigger"
)

// Store is an immutable, versioned set of patterns. It is safe for
// concurrent use; nothing mutates it after LoadFS returns.
type Store struct {
	manifest Manifest
	version  *semver.Version
	patterns []Pattern
	byName   map[string]int
	disabled []string
	notes    []string
}

// NewStore builds a store directly from patterns, deriving the manifest
// index from their severities. Intended for tests and embedders that build
// rule sets in code.
func NewStore(version string, patterns ...Pattern) (*Store, error) {
	v, err := semver.StrictNewVersion(version)
	if err != nil {
		return nil, fmt.Errorf("%w: version %q is not semver: %v", ErrInvalidManifest, version, err)
	}
	s := &Store{
		manifest: Manifest{Version: version},
		version:  v,
		byName:   make(map[string]int, len(patterns)),
	}
	for _, p := range patterns {
		if p.Trigger == nil {
			return nil, fmt.Errorf("pattern %q: %w: no trigger", p.Name, ErrInvalidPattern)
		}
		if _, dup := s.byName[p.Name]; dup {
			return nil, fmt.Errorf("%q: %w", p.Name, ErrDuplicatePattern)
		}
		switch p.Severity {
		case SeverityRed:
			s.manifest.PatternIndex.Red = append(s.manifest.PatternIndex.Red, p.Name)
		case SeverityYellow:
			s.manifest.PatternIndex.Yellow = append(s.manifest.PatternIndex.Yellow, p.Name)
		case SeverityGreen:
			s.manifest.PatternIndex.Green = append(s.manifest.PatternIndex.Green, p.Name)
		default:
			return nil, fmt.Errorf("pattern %q: %w: severity %s", p.Name, ErrInvalidPattern, p.Severity)
		}
		s.byName[p.Name] = len(s.patterns)
		s.patterns = append(s.patterns, p.clone())
	}
	return s, nil
}

// reconcileIndex enforces the manifest invariants: every indexed name
// resolves to a loaded pattern of the bucket's severity, and every loaded
// pattern is indexed exactly once. Names of disabled patterns are dropped
// from the index. When no definitions were loaded at all the index cannot
// be checked; it is cleared and the dangling names are kept as notes.
func (s *Store) reconcileIndex() error {
	disabled := make(map[string]bool, len(s.disabled))
	for _, name := range s.disabled {
		disabled[name] = true
	}

	if len(s.patterns) == 0 {
		for sev, names := range s.manifest.PatternIndex.Buckets() {
			for _, name := range names {
				if !disabled[name] {
					s.notes = append(s.notes, fmt.Sprintf("%s pattern %q is indexed but no definitions are installed", sev, name))
				}
			}
		}
		sort.Strings(s.notes)
		s.manifest.PatternIndex = PatternIndex{}
		return nil
	}

	seen := make(map[string]Severity, len(s.patterns))
	var idx PatternIndex

	for _, sev := range []Severity{SeverityRed, SeverityYellow, SeverityGreen} {
		for _, name := range s.manifest.PatternIndex.Buckets()[sev] {
			if prev, dup := seen[name]; dup {
				return fmt.Errorf("%q indexed under both %s and %s: %w", name, prev, sev, ErrDuplicatePattern)
			}
			seen[name] = sev

			if disabled[name] {
				continue
			}
			i, ok := s.byName[name]
			if !ok {
				return fmt.Errorf("%s bucket: %q: %w", sev, name, ErrUnknownPattern)
			}
			if s.patterns[i].Severity != sev {
				return fmt.Errorf("%q declared %s but indexed under %s: %w",
					name, s.patterns[i].Severity, sev, ErrSeverityMismatch)
			}
			switch sev {
			case SeverityRed:
				idx.Red = append(idx.Red, name)
			case SeverityYellow:
				idx.Yellow = append(idx.Yellow, name)
			case SeverityGreen:
				idx.Green = append(idx.Green, name)
			}
		}
	}

	for _, p := range s.patterns {
		if _, ok := seen[p.Name]; !ok {
			return fmt.Errorf("%s: %q: %w", p.Source, p.Name, ErrUnindexedPattern)
		}
	}

	s.manifest.PatternIndex = idx
	return nil
}

// Get returns the pattern with the given name.
func (s *Store) Get(name string) (Pattern, bool) {
	i, ok := s.byName[name]
	if !ok {
		return Pattern{}, false
	}
	return s.patterns[i].clone(), true
}

// Patterns returns all patterns in load order.
func (s *Store) Patterns() []Pattern {
	out := make([]Pattern, len(s.patterns))
	for i, p := range s.patterns {
		out[i] = p.clone()
	}
	return out
}

// Names returns pattern names in load order.
func (s *Store) Names() []string {
	out := make([]string, len(s.patterns))
	for i, p := range s.patterns {
		out[i] = p.Name
	}
	return out
}

// Len returns the number of loaded patterns.
func (s *Store) Len() int { return len(s.patterns) }

// Counts returns the number of patterns per severity.
func (s *Store) Counts() Counts {
	var c Counts
	for _, p := range s.patterns {
		switch p.Severity {
		case SeverityRed:
			c.Red++
		case SeverityYellow:
			c.Yellow++
		case SeverityGreen:
			c.Green++
		}
	}
	return c
}

// Manifest returns the manifest with its index reconciled against the
// loaded patterns.
func (s *Store) Manifest() Manifest {
	m := s.manifest
	m.PatternIndex = PatternIndex{
		Red:    append([]string(nil), s.manifest.PatternIndex.Red...),
		Yellow: append([]string(nil), s.manifest.PatternIndex.Yellow...),
		Green:  append([]string(nil), s.manifest.PatternIndex.Green...),
	}
	return m
}

// Version returns the rule set's semantic version.
func (s *Store) Version() *semver.Version { return s.version }

// Disabled returns the names of patterns whose files are disabled.
func (s *Store) Disabled() []string { return append([]string(nil), s.disabled...) }

// Notes returns non-fatal load observations.
func (s *Store) Notes() []string { return append([]string(nil), s.notes...) }

// MatchAll evaluates every pattern against op, in load order, and returns
// those whose trigger fired. The result is not severity sorted.
func (s *Store) MatchAll(op operation.CandidateOperation) []Match {
	var matches []Match
	for _, p := range s.patterns {
		if trigger.Evaluate(p.Trigger, op) {
			matches = append(matches, Match{Pattern: p.clone(), EvaluatedAgainst: op})
		}
	}
	return matches
}
