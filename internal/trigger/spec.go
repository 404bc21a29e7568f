package trigger

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/gzhole/opguard/internal/operation"
)

var (
	// ErrUnknownTriggerType is returned when a trigger's type tag is not one
	// of endpoint, method, parameter, all.
	ErrUnknownTriggerType = errors.New("unknown trigger type")

	// ErrInvalidTrigger is returned when a trigger of a known type is
	// missing required fields or carries invalid values.
	ErrInvalidTrigger = errors.New("invalid trigger")
)

// Spec is the serialized form of a trigger as it appears in pattern
// definition files.
type Spec struct {
	Type string `yaml:"type" json:"type"`

	// endpoint
	Contains string `yaml:"contains,omitempty" json:"contains,omitempty"`
	Shape    string `yaml:"shape,omitempty" json:"shape,omitempty"`

	// method
	Method string `yaml:"method,omitempty" json:"method,omitempty"`

	// parameter
	Path     string `yaml:"path,omitempty" json:"path,omitempty"`
	Operator string `yaml:"operator,omitempty" json:"operator,omitempty"`
	Value    any    `yaml:"value,omitempty" json:"value,omitempty"`

	// all
	Conditions []Spec `yaml:"conditions,omitempty" json:"conditions,omitempty"`
}

// Compile validates a Spec and turns it into an Expression.
func Compile(spec Spec) (Expression, error) {
	return compileAt(spec, "trigger")
}

func compileAt(spec Spec, where string) (Expression, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(spec.Type))) {
	case KindEndpoint:
		if spec.Contains == "" && spec.Shape == "" {
			return nil, fmt.Errorf("%s: endpoint trigger needs contains or shape: %w", where, ErrInvalidTrigger)
		}
		return EndpointMatch{Contains: spec.Contains, Shape: spec.Shape}, nil

	case KindMethod:
		m := operation.Method(strings.ToUpper(strings.TrimSpace(spec.Method)))
		if !m.IsValid() {
			return nil, fmt.Errorf("%s: method %q: %w", where, spec.Method, ErrInvalidTrigger)
		}
		return MethodMatch{Method: m}, nil

	case KindParameter:
		if strings.TrimSpace(spec.Path) == "" {
			return nil, fmt.Errorf("%s: parameter trigger needs a path: %w", where, ErrInvalidTrigger)
		}
		op := Operator(strings.ToLower(strings.TrimSpace(spec.Operator)))
		switch op {
		case OpExists, OpNotExists:
		case OpEquals:
			if spec.Value == nil {
				return nil, fmt.Errorf("%s: equals on %q needs a value: %w", where, spec.Path, ErrInvalidTrigger)
			}
		default:
			return nil, fmt.Errorf("%s: operator %q: %w", where, spec.Operator, ErrInvalidTrigger)
		}
		return ParameterCheck{Path: strings.TrimSpace(spec.Path), Operator: op, Value: spec.Value}, nil

	case KindAll:
		if len(spec.Conditions) == 0 {
			return nil, fmt.Errorf("%s: all trigger has no conditions: %w", where, ErrInvalidTrigger)
		}
		exprs := make([]Expression, 0, len(spec.Conditions))
		for i, c := range spec.Conditions {
			e, err := compileAt(c, fmt.Sprintf("%s.conditions[%d]", where, i))
			if err != nil {
				return nil, err
			}
			exprs = append(exprs, e)
		}
		return All{Expressions: exprs}, nil

	default:
		return nil, fmt.Errorf("%s: %q: %w", where, spec.Type, ErrUnknownTriggerType)
	}
}

// valuesEqual compares a resolved payload value with a trigger value.
// Numbers compare by value regardless of their decoded Go type (YAML ints
// vs JSON float64); everything else compares structurally.
func valuesEqual(got, want any) bool {
	if gf, ok := toFloat(got); ok {
		wf, ok := toFloat(want)
		return ok && gf == wf
	}
	if gs, ok := got.(string); ok {
		ws, ok := want.(string)
		return ok && gs == ws
	}
	return reflect.DeepEqual(operation.DeepCopy(got), operation.DeepCopy(want))
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
