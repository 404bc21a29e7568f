// Package operation models a proposed call against the remote record API.
// A CandidateOperation is supplied by the caller and is read-only to every
// analysis layer: corrections are always computed on deep copies.
package operation

import (
	"errors"
	"fmt"
	"strings"
)

// Method is an HTTP method accepted by the remote API.
type Method string

const (
	MethodGet    Method = "GET"
	MethodPost   Method = "POST"
	MethodPut    Method = "PUT"
	MethodPatch  Method = "PATCH"
	MethodDelete Method = "DELETE"
)

// IsValid reports whether the method is one the remote API accepts.
func (m Method) IsValid() bool {
	switch m {
	case MethodGet, MethodPost, MethodPut, MethodPatch, MethodDelete:
		return true
	default:
		return false
	}
}

// CandidateOperation is the proposed remote call under analysis.
type CandidateOperation struct {
	Endpoint             string            `json:"endpoint"`
	Method               Method            `json:"method"`
	OperationDescription string            `json:"operationDescription,omitempty"`
	Payload              map[string]any    `json:"payload,omitempty"`
	FieldTypes           map[string]string `json:"fieldTypes,omitempty"`
	TableID              string            `json:"tableId,omitempty"`

	// DryRun marks the pre-execution re-check a dispatcher performs right
	// before sending the call. Classification does not depend on it.
	DryRun bool `json:"dryRun,omitempty"`
}

var (
	// ErrMissingEndpoint is returned when the operation has no endpoint.
	ErrMissingEndpoint = errors.New("operation endpoint is required")

	// ErrMissingMethod is returned when the operation has no HTTP method.
	ErrMissingMethod = errors.New("operation method is required")

	// ErrUnsupportedMethod is returned for methods outside GET/POST/PUT/PATCH/DELETE.
	ErrUnsupportedMethod = errors.New("operation method is not supported")
)

// ValidationError reports why a CandidateOperation was rejected before
// any analysis ran.
type ValidationError struct {
	Field string
	Value string
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("invalid operation %s %q: %v", e.Field, e.Value, e.Err)
	}
	return fmt.Sprintf("invalid operation %s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Validate rejects operations that cannot be classified at all. Payload
// shape is never validated here; malformed payloads still get a best-effort
// assessment.
func (op CandidateOperation) Validate() error {
	if strings.TrimSpace(op.Endpoint) == "" {
		return &ValidationError{Field: "endpoint", Err: ErrMissingEndpoint}
	}
	if strings.TrimSpace(string(op.Method)) == "" {
		return &ValidationError{Field: "method", Err: ErrMissingMethod}
	}
	if !op.NormalizedMethod().IsValid() {
		return &ValidationError{Field: "method", Value: string(op.Method), Err: ErrUnsupportedMethod}
	}
	return nil
}

// NormalizedMethod returns the method upper-cased and trimmed.
func (op CandidateOperation) NormalizedMethod() Method {
	return Method(strings.ToUpper(strings.TrimSpace(string(op.Method))))
}

// FieldType returns the declared type tag for a payload field, lower-cased.
func (op CandidateOperation) FieldType(field string) (string, bool) {
	if op.FieldTypes == nil {
		return "", false
	}
	t, ok := op.FieldTypes[field]
	if !ok {
		return "", false
	}
	return strings.ToLower(strings.TrimSpace(t)), true
}
