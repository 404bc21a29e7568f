package operation

import (
	"errors"
	"testing"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		op      CandidateOperation
		wantErr error
	}{
		{"valid", CandidateOperation{Endpoint: "/applications/1/records/list/", Method: "POST"}, nil},
		{"lower-case method", CandidateOperation{Endpoint: "/x/", Method: "post"}, nil},
		{"missing endpoint", CandidateOperation{Method: "GET"}, ErrMissingEndpoint},
		{"blank endpoint", CandidateOperation{Endpoint: "   ", Method: "GET"}, ErrMissingEndpoint},
		{"missing method", CandidateOperation{Endpoint: "/x/"}, ErrMissingMethod},
		{"unsupported method", CandidateOperation{Endpoint: "/x/", Method: "TRACE"}, ErrUnsupportedMethod},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.op.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected *ValidationError, got %T", err)
			}
		})
	}
}

func TestLookup(t *testing.T) {
	op := CandidateOperation{
		Endpoint: "/applications/123/records/",
		Method:   "PUT",
		TableID:  "123",
		Payload: map[string]any{
			"field_type": "singleselectfield",
			"params": map[string]any{
				"choices": []any{"A", "B"},
			},
			"items": []string{"x", "y"},
			"nil":   nil,
		},
		FieldTypes: map[string]string{"s1": "richtextareafield"},
	}

	tests := []struct {
		path  string
		found bool
		want  any
	}{
		{"field_type", true, "singleselectfield"},
		{"payload.field_type", true, "singleselectfield"},
		{"params.choices.1", true, "B"},
		{"params.choices.7", false, nil},
		{"params.choices.x", false, nil},
		{"params.missing.deeper", false, nil},
		{"field_type.deeper", false, nil},
		{"items.0", true, "x"},
		{"nil", true, nil},
		{"nil.child", false, nil},
		{"endpoint", true, "/applications/123/records/"},
		{"method", true, "PUT"},
		{"tableId", true, "123"},
		{"operationDescription", false, nil},
		{"fieldTypes.s1", true, "richtextareafield"},
		{"fieldTypes.nope", false, nil},
		{"payload.endpoint", false, nil},
		{"", false, nil},
		{"a..b", false, nil},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, ok := op.Lookup(tt.path)
			if ok != tt.found {
				t.Fatalf("Lookup(%q) found=%v, want %v", tt.path, ok, tt.found)
			}
			if ok && got != tt.want {
				t.Errorf("Lookup(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestLookup_NilPayload(t *testing.T) {
	op := CandidateOperation{Endpoint: "/x/", Method: "GET"}
	if _, ok := op.Lookup("records"); ok {
		t.Error("expected not found on nil payload")
	}
	if _, ok := op.Lookup("payload"); ok {
		t.Error("expected payload itself to be absent")
	}
}

func TestDeepCopy_Independent(t *testing.T) {
	orig := map[string]any{
		"options": []string{"A", "B"},
		"nested":  map[string]any{"k": []any{1, 2}},
	}
	cp := CopyPayload(orig)
	cp["nested"].(map[string]any)["k"].([]any)[0] = 99
	cp["options"].([]any)[0] = "Z"

	if orig["nested"].(map[string]any)["k"].([]any)[0] != 1 {
		t.Error("nested slice was shared with the copy")
	}
	if orig["options"].([]string)[0] != "A" {
		t.Error("typed slice was shared with the copy")
	}
}

func TestAsSlice(t *testing.T) {
	if _, ok := AsSlice("abc"); ok {
		t.Error("string must not be treated as a slice")
	}
	if _, ok := AsSlice([]byte("abc")); ok {
		t.Error("[]byte must not be treated as a slice")
	}
	s, ok := AsSlice([]int{1, 2, 3})
	if !ok || len(s) != 3 {
		t.Errorf("expected 3 elements, got %v (%v)", s, ok)
	}
}
