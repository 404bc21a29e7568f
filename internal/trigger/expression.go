// Package trigger implements the declarative condition language patterns use
// to decide whether they apply to a candidate operation.
//
// The language is a closed set of expression kinds:
//
//	endpoint   substring or segment-shape match on the endpoint
//	method     HTTP method equality
//	parameter  exists / not_exists / equals on a dotted path
//	all        logical AND of sub-expressions, short-circuiting
//
// Expressions are compiled from their YAML form (Spec) once, at rule load
// time. Unknown kinds are rejected there, so evaluation never encounters
// them.
package trigger

import (
	"fmt"
	"strings"

	"github.com/gzhole/opguard/internal/normalize"
	"github.com/gzhole/opguard/internal/operation"
)

// Kind is the tag of a trigger expression.
type Kind string

const (
	KindEndpoint  Kind = "endpoint"
	KindMethod    Kind = "method"
	KindParameter Kind = "parameter"
	KindAll       Kind = "all"
)

// Operator is the comparison a ParameterCheck performs.
type Operator string

const (
	OpExists    Operator = "exists"
	OpNotExists Operator = "not_exists"
	OpEquals    Operator = "equals"
)

// Expression is a compiled trigger. The set of implementations is closed.
type Expression interface {
	Kind() Kind
	String() string

	// eval must not mutate op and must not panic on any payload shape.
	eval(op operation.CandidateOperation) bool
}

// EndpointMatch matches when the endpoint contains Contains, or when its
// normalized path has the segment shape Shape. When both are set both must
// hold.
type EndpointMatch struct {
	Contains string
	Shape    string
}

func (EndpointMatch) Kind() Kind { return KindEndpoint }

func (m EndpointMatch) String() string {
	var parts []string
	if m.Contains != "" {
		parts = append(parts, fmt.Sprintf("contains %q", m.Contains))
	}
	if m.Shape != "" {
		parts = append(parts, fmt.Sprintf("shape %q", m.Shape))
	}
	return "endpoint " + strings.Join(parts, " and ")
}

func (m EndpointMatch) eval(op operation.CandidateOperation) bool {
	ep := normalize.NormalizeEndpoint(op.Endpoint)
	if m.Contains != "" &&
		!strings.Contains(op.Endpoint, m.Contains) &&
		!strings.Contains(ep.Path, m.Contains) {
		return false
	}
	if m.Shape != "" && !ep.MatchShape(m.Shape) {
		return false
	}
	return true
}

// MethodMatch matches the operation's HTTP method, case-insensitively.
type MethodMatch struct {
	Method operation.Method
}

func (MethodMatch) Kind() Kind { return KindMethod }

func (m MethodMatch) String() string { return "method == " + string(m.Method) }

func (m MethodMatch) eval(op operation.CandidateOperation) bool {
	return op.NormalizedMethod() == m.Method
}

// ParameterCheck tests a dotted path into the operation.
type ParameterCheck struct {
	Path     string
	Operator Operator
	Value    any
}

func (ParameterCheck) Kind() Kind { return KindParameter }

func (c ParameterCheck) String() string {
	if c.Operator == OpEquals {
		return fmt.Sprintf("%s == %v", c.Path, c.Value)
	}
	return fmt.Sprintf("%s %s", c.Path, c.Operator)
}

func (c ParameterCheck) eval(op operation.CandidateOperation) bool {
	v, found := op.Lookup(c.Path)
	switch c.Operator {
	case OpExists:
		return found
	case OpNotExists:
		return !found
	case OpEquals:
		return found && valuesEqual(v, c.Value)
	default:
		return false
	}
}

// All is the logical AND of its expressions.
type All struct {
	Expressions []Expression
}

func (All) Kind() Kind { return KindAll }

func (a All) String() string {
	parts := make([]string, len(a.Expressions))
	for i, e := range a.Expressions {
		parts[i] = e.String()
	}
	return "(" + strings.Join(parts, " AND ") + ")"
}

func (a All) eval(op operation.CandidateOperation) bool {
	for _, e := range a.Expressions {
		if !e.eval(op) {
			return false
		}
	}
	return len(a.Expressions) > 0
}

// Evaluate reports whether expr matches op. A nil expression never
// matches, and a panic inside evaluation is treated as no match: absence
// of a match is the safe default for malformed input.
func Evaluate(expr Expression, op operation.CandidateOperation) (matched bool) {
	if expr == nil {
		return false
	}
	defer func() {
		if r := recover(); r != nil {
			matched = false
		}
	}()
	return expr.eval(op)
}
