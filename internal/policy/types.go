package policy

import (
	"time"

	"github.com/gzhole/opguard/internal/analyzer"
	"github.com/gzhole/opguard/internal/operation"
	"github.com/gzhole/opguard/internal/rules"
)

// Assessment is the safety verdict for one candidate operation. It is a
// value, never an error: whether RED blocks execution is the caller's call.
type Assessment struct {
	Severity rules.Severity `json:"severity"`
	Score    int            `json:"score"`

	// Classified is false when no pattern matched and no heuristic fired;
	// such operations are YELLOW by default.
	Classified bool `json:"classified"`

	Warnings             []string              `json:"warnings"`
	Blockers             []string              `json:"blockers"`
	SuggestedCorrections []analyzer.Suggestion `json:"suggestedCorrections"`
	GuidanceText         string                `json:"guidanceText"`
	NextSteps            []string              `json:"nextSteps"`
	MatchedPatternNames  []string              `json:"matchedPatternNames"`
	Findings             []analyzer.Finding    `json:"findings"`
}

// Blocked reports whether the assessment is RED.
func (a Assessment) Blocked() bool { return a.Severity == rules.SeverityRed }

// LogRecord is emitted once per Analyze call to a registered LogFunc.
type LogRecord struct {
	Operation           operation.CandidateOperation
	Severity            rules.Severity
	Score               int
	MatchedPatternNames []string
	Warnings            []string
	Blockers            []string
	LogLevel            string // ERROR for RED, WARN for YELLOW, INFO for GREEN
	Timestamp           time.Time
}

// LogFunc receives assessment records. Errors and panics are contained by
// the engine and never affect the assessment.
type LogFunc func(LogRecord) error
