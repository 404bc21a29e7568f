package approval

import (
	"bytes"
	"strings"
	"testing"

	"github.com/gzhole/opguard/internal/policy"
	"github.com/gzhole/opguard/internal/rules"
)

func redPrompt() Prompt {
	return Prompt{
		Endpoint: "/api/applications/app-1/",
		Method:   "DELETE",
		Assessment: policy.Assessment{
			Severity:            rules.SeverityRed,
			Score:               20,
			Blockers:            []string{"Deletes the whole application"},
			MatchedPatternNames: []string{"application-delete"},
		},
	}
}

func TestApprover_Ask(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		approved bool
		action   string
	}{
		{"approve", "a\n", true, ActionApproveOnce},
		{"approve word", "Yes\n", true, ActionApproveOnce},
		{"deny", "d\n", false, ActionDeny},
		{"retry after invalid", "maybe\nn\n", false, ActionDeny},
		{"no trailing newline", "y", true, ActionApproveOnce},
		{"eof", "", false, ActionErrorReadingInput},
		{"invalid then eof", "what", false, ActionErrorReadingInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			a := &Approver{In: strings.NewReader(tt.input), Out: &out, Interactive: func() bool { return true }}

			res := a.Ask(redPrompt())
			if res.Approved != tt.approved || res.UserAction != tt.action {
				t.Errorf("got %+v, want approved=%v action=%s", res, tt.approved, tt.action)
			}
			if !strings.Contains(out.String(), "DELETE /api/applications/app-1/") {
				t.Errorf("prompt should show the operation:\n%s", out.String())
			}
			if !strings.Contains(out.String(), "Deletes the whole application") {
				t.Errorf("prompt should list blockers:\n%s", out.String())
			}
		})
	}
}

func TestApprover_NonInteractive(t *testing.T) {
	var out bytes.Buffer
	a := &Approver{In: strings.NewReader("a\n"), Out: &out, Interactive: func() bool { return false }}

	res := a.Ask(redPrompt())
	if res.Approved || res.UserAction != ActionAutoDenyNonInteractive {
		t.Errorf("non-interactive sessions must be denied, got %+v", res)
	}
	if out.Len() != 0 {
		t.Errorf("nothing should be printed without a terminal, got %q", out.String())
	}
}
