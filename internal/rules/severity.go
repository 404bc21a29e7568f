package rules

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Severity is the risk level of a pattern or an assessment.
// Values are ordered so aggregation is a max-reduce: GREEN < YELLOW < RED.
type Severity int

const (
	SeverityUnknown Severity = iota
	SeverityGreen
	SeverityYellow
	SeverityRed
)

func (s Severity) String() string {
	switch s {
	case SeverityGreen:
		return "GREEN"
	case SeverityYellow:
		return "YELLOW"
	case SeverityRed:
		return "RED"
	default:
		return "UNKNOWN"
	}
}

// ParseSeverity accepts RED/YELLOW/GREEN in any case.
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "GREEN":
		return SeverityGreen, nil
	case "YELLOW":
		return SeverityYellow, nil
	case "RED":
		return SeverityRed, nil
	default:
		return SeverityUnknown, fmt.Errorf("unknown severity %q", s)
	}
}

// Worst returns the more severe of a and b.
func Worst(a, b Severity) Severity {
	if b > a {
		return b
	}
	return a
}

// LogLevel is the log level an assessment of this severity is recorded at.
func (s Severity) LogLevel() string {
	switch s {
	case SeverityRed:
		return "ERROR"
	case SeverityYellow:
		return "WARN"
	default:
		return "INFO"
	}
}

func (s *Severity) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := ParseSeverity(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

func (s Severity) MarshalYAML() (interface{}, error) {
	return s.String(), nil
}

func (s Severity) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Severity) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseSeverity(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
