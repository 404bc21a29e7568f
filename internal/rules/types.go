package rules

import (
	"time"

	"github.com/gzhole/opguard/internal/operation"
	"github.com/gzhole/opguard/internal/trigger"
)

// Pattern is a named rule pairing a trigger with a severity and
// remediation guidance. Patterns are created at load time and never
// mutated; Store accessors hand out copies.
type Pattern struct {
	Name string

	// Category ties a pattern to the built-in heuristic that owns the same
	// concern (e.g. "transport-shape"). Empty for patterns no heuristic
	// covers.
	Category string

	Severity        Severity
	Description     string
	Trigger         trigger.Expression
	FailureModes    []FailureMode
	Correction      *Correction
	ValidationRules []ValidationRule

	// Source is the definition file the pattern was loaded from.
	Source string
}

// FailureMode documents one way the matched operation goes wrong.
type FailureMode struct {
	Description string `yaml:"description" json:"description"`
	Cause       string `yaml:"cause,omitempty" json:"cause,omitempty"`
	Prevention  string `yaml:"prevention,omitempty" json:"prevention,omitempty"`
}

// Correction is remediation guidance: a description plus, optionally, the
// corrected request.
type Correction struct {
	Description       string         `yaml:"description" json:"description"`
	CorrectedEndpoint string         `yaml:"corrected_endpoint,omitempty" json:"correctedEndpoint,omitempty"`
	CorrectedMethod   string         `yaml:"corrected_method,omitempty" json:"correctedMethod,omitempty"`
	CorrectedPayload  map[string]any `yaml:"corrected_payload,omitempty" json:"correctedPayload,omitempty"`
}

// Validation rule types.
const (
	ValidationMaxItems  = "max_items"
	ValidationMaxLength = "max_length"
)

// ValidationRule is a numeric limit checked against the payload of an
// operation the pattern matched.
type ValidationRule struct {
	Type  string `yaml:"type" json:"type"`
	Path  string `yaml:"path,omitempty" json:"path,omitempty"`
	Limit int    `yaml:"limit" json:"limit"`
}

// Manifest is the versioned index of a rule set.
type Manifest struct {
	Version          string       `yaml:"version"`
	LastUpdated      time.Time    `yaml:"last_updated"`
	MinEngineVersion string       `yaml:"min_engine_version,omitempty"`
	Description      string       `yaml:"description,omitempty"`
	PatternIndex     PatternIndex `yaml:"pattern_index"`
}

// PatternIndex lists pattern names per severity bucket.
type PatternIndex struct {
	Red    []string `yaml:"red"`
	Yellow []string `yaml:"yellow"`
	Green  []string `yaml:"green"`
}

// Buckets returns the index as severity → names.
func (p PatternIndex) Buckets() map[Severity][]string {
	return map[Severity][]string{
		SeverityRed:    p.Red,
		SeverityYellow: p.Yellow,
		SeverityGreen:  p.Green,
	}
}

// Counts is the number of loaded patterns per severity.
type Counts struct {
	Red    int `json:"red"`
	Yellow int `json:"yellow"`
	Green  int `json:"green"`
}

// Total returns the number of patterns across all severities.
func (c Counts) Total() int { return c.Red + c.Yellow + c.Green }

// Match is one pattern whose trigger fired for an operation.
type Match struct {
	Pattern          Pattern
	EvaluatedAgainst operation.CandidateOperation
}

// PreventionText returns the first non-empty prevention hint of the pattern.
func (p Pattern) PreventionText() string {
	for _, fm := range p.FailureModes {
		if fm.Prevention != "" {
			return fm.Prevention
		}
	}
	return ""
}

// Summary returns the description, falling back to the first failure mode.
func (p Pattern) Summary() string {
	if p.Description != "" {
		return p.Description
	}
	if len(p.FailureModes) > 0 {
		return p.FailureModes[0].Description
	}
	return p.Name
}

func (p Pattern) clone() Pattern {
	out := p
	if p.FailureModes != nil {
		out.FailureModes = append([]FailureMode(nil), p.FailureModes...)
	}
	if p.ValidationRules != nil {
		out.ValidationRules = append([]ValidationRule(nil), p.ValidationRules...)
	}
	if p.Correction != nil {
		c := p.Correction.Clone()
		out.Correction = &c
	}
	return out
}

// Clone deep-copies the correction so callers may adjust it freely.
func (c Correction) Clone() Correction {
	out := c
	out.CorrectedPayload = operation.CopyPayload(c.CorrectedPayload)
	return out
}
