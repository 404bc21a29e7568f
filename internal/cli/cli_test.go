package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gzhole/opguard/internal/logger"
	"github.com/gzhole/opguard/internal/operation"
	"github.com/gzhole/opguard/internal/policy"
)

// runCLI executes the command tree against a throwaway home directory.
func runCLI(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()

	cmd := NewRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func withHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	return home
}

func auditEvents(t *testing.T, home string) []logger.AssessmentEvent {
	t.Helper()
	events, err := logger.ReadEvents(filepath.Join(home, ".opguard", "audit.jsonl"))
	require.NoError(t, err)
	return events
}

func TestCheck_RedIsBlocked(t *testing.T) {
	home := withHome(t)

	out, _, err := runCLI(t, `{"endpoint":"/applications/123/records","method":"GET"}`, "check")

	assert.ErrorIs(t, err, ErrBlocked)
	assert.Contains(t, out, policy.MarkerRed)
	assert.Contains(t, out, "POST /applications/123/records/list/")

	events := auditEvents(t, home)
	require.Len(t, events, 1)
	assert.Equal(t, "RED", events[0].Severity)
	assert.Equal(t, "ERROR", events[0].LogLevel)
	assert.NotEmpty(t, events[0].ID)
}

func TestCheck_GreenJSON(t *testing.T) {
	withHome(t)

	out, _, err := runCLI(t, `{"endpoint":"/applications/123/","method":"GET"}`, "check", "--json")
	require.NoError(t, err)

	var a struct {
		Severity   string `json:"severity"`
		Score      int    `json:"score"`
		Classified bool   `json:"classified"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &a))
	assert.Equal(t, "GREEN", a.Severity)
	assert.Equal(t, 100, a.Score)
	assert.True(t, a.Classified)
}

func TestCheck_FromFileWithDryRun(t *testing.T) {
	home := withHome(t)

	file := filepath.Join(t.TempDir(), "op.json")
	require.NoError(t, os.WriteFile(file, []byte(`{"endpoint":"/applications/123/records/list/","method":"POST","payload":{"limit":10}}`), 0600))

	out, _, err := runCLI(t, "", "check", "--file", file, "--dry-run")
	require.NoError(t, err, "YELLOW does not fail the command")
	assert.Contains(t, out, policy.MarkerUnclassified)

	events := auditEvents(t, home)
	require.Len(t, events, 1)
	assert.True(t, events[0].DryRun)
	assert.Equal(t, "YELLOW", events[0].Severity)
}

func TestCheck_LargeRecordIDKeepsEveryDigit(t *testing.T) {
	withHome(t)

	out, _, err := runCLI(t, `{"endpoint":"/applications/123/records/","method":"DELETE","payload":{"id":12345678901234567}}`, "check")
	assert.ErrorIs(t, err, ErrBlocked)
	assert.Contains(t, out, "Request: DELETE /applications/123/records/12345678901234567/")

	out, _, err = runCLI(t, `{"endpoint":"/applications/1/records/","method":"DELETE","payload":{"id":1.5}}`, "check")
	assert.ErrorIs(t, err, ErrBlocked)
	assert.Contains(t, out, "Request: DELETE /applications/1/records/{record_id}/")
	assert.NotContains(t, out, "/records/2/")
}

func TestDecodeOperation_KeepsNumbersExact(t *testing.T) {
	op, err := decodeOperation([]byte(`{"endpoint":"/a/","method":"POST","payload":{"id":12345678901234567,"n":1.5}}`))
	require.NoError(t, err)
	assert.Equal(t, json.Number("12345678901234567"), op.Payload["id"])
	assert.Equal(t, json.Number("1.5"), op.Payload["n"])
}

func TestCheck_ApproveWithoutTerminalDenies(t *testing.T) {
	home := withHome(t)

	_, errOut, err := runCLI(t, `{"endpoint":"/applications/123/","method":"DELETE"}`, "check", "--approve")
	assert.ErrorIs(t, err, ErrBlocked)
	assert.Contains(t, errOut, "denied")

	events := auditEvents(t, home)
	require.Len(t, events, 2, "the assessment and the approval decision are both recorded")
	assert.Empty(t, events[0].UserAction)
	assert.Equal(t, "auto_deny_non_interactive", events[1].UserAction)
}

func TestCheck_RejectsBadInput(t *testing.T) {
	withHome(t)

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"not json", `{"endpoint":`, "not valid JSON"},
		{"missing method", `{"endpoint":"/applications/1/"}`, "expected shape"},
		{"unknown field", `{"endpoint":"/a/","method":"GET","verb":"x"}`, "expected shape"},
		{"payload not object", `{"endpoint":"/a/","method":"GET","payload":[1]}`, "expected shape"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := runCLI(t, tt.input, "check")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
			assert.False(t, errors.Is(err, ErrBlocked))
		})
	}

	_, _, err := runCLI(t, `{"endpoint":"/a/","method":"TRACE"}`, "check")
	var verr *operation.ValidationError
	assert.True(t, errors.As(err, &verr), "unsupported methods are rejected by the engine: %v", err)
}

func TestCheck_HiddenCharacterEndpoint(t *testing.T) {
	withHome(t)

	input := `{"endpoint":"/applications/123/rec\u200bords","method":"GET"}`
	_, errOut, err := runCLI(t, input, "check")

	assert.ErrorIs(t, err, ErrBlocked, "a hidden character must not evade the records pattern")
	assert.Contains(t, errOut, "1 hidden character(s)")
	assert.Contains(t, errOut, "/applications/123/records")
}

func TestCheck_VerboseNamesAuditLog(t *testing.T) {
	home := withHome(t)

	_, errOut, err := runCLI(t, `{"endpoint":"/applications/123/","method":"GET"}`, "-v", "check")
	require.NoError(t, err)
	assert.Contains(t, errOut, filepath.Join(home, ".opguard", "audit.jsonl"))
}

func TestCheck_AuditDisabled(t *testing.T) {
	home := withHome(t)
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("audit: false\n"), 0600))

	_, _, err := runCLI(t, `{"endpoint":"/applications/123/","method":"GET"}`, "--config", cfgPath, "check")
	require.NoError(t, err)

	_, statErr := os.Stat(filepath.Join(home, ".opguard", "audit.jsonl"))
	assert.True(t, os.IsNotExist(statErr), "no audit file should be written")
}

func TestRoute(t *testing.T) {
	withHome(t)

	_, _, err := runCLI(t, "", "route", "list", "records", "from", "table")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "query, record")
	assert.Contains(t, err.Error(), "--category query")

	out, _, err := runCLI(t, "", "route", "--category", "query", "list records from table")
	require.NoError(t, err)
	assert.Equal(t, "query\n", out)

	out, _, err = runCLI(t, "", "route", "--validate", "list records from table")
	require.NoError(t, err)
	assert.Equal(t, "ambiguous: query, record\n", out)

	out, _, err = runCLI(t, "", "route", "--validate", "hello")
	require.NoError(t, err)
	assert.Contains(t, out, "default")
	assert.Contains(t, out, "record:")
	assert.Contains(t, out, "delete")

	out, _, err = runCLI(t, "", "route", "--json", "describe", "the", "schema")
	require.NoError(t, err)
	assert.JSONEq(t, `{"category":"schema"}`, out)
}

func TestRules(t *testing.T) {
	withHome(t)

	out, _, err := runCLI(t, "", "rules", "counts")
	require.NoError(t, err)
	assert.Contains(t, out, "RED:    5")
	assert.Contains(t, out, "YELLOW: 2")
	assert.Contains(t, out, "GREEN:  3")
	assert.Contains(t, out, "Total:  10")

	out, _, err = runCLI(t, "", "rules", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Rule set 1.4.0 (built-in)")
	assert.Contains(t, out, "legacy-v1-endpoint")
	assert.Less(t, strings.Index(out, "application-delete"), strings.Index(out, "application-read"), "RED before GREEN")

	out, _, err = runCLI(t, "", "rules", "show", "records-list-via-get")
	require.NoError(t, err)
	assert.Contains(t, out, "Severity:    RED")
	assert.Contains(t, out, "Trigger:")

	_, _, err = runCLI(t, "", "rules", "show", "no-such-pattern")
	assert.Error(t, err)
}

func TestRules_CustomDir(t *testing.T) {
	withHome(t)

	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "patterns"), 0700))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "manifest.yaml"), []byte(`version: 2.0.0
last_updated: 2026-10-01T00:00:00Z
pattern_index:
  red: [drop-app]
  yellow: []
  green: []
`), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "patterns", "drop-app.yaml"), []byte(`name: drop-app
severity: RED
description: Deletes an application
trigger:
  type: method
  method: DELETE
`), 0600))

	out, _, err := runCLI(t, "", "--rules-dir", dir, "rules", "counts")
	require.NoError(t, err)
	assert.Contains(t, out, "RED:    1")
	assert.Contains(t, out, "Total:  1")
}

func TestScan(t *testing.T) {
	withHome(t)

	out, _, err := runCLI(t, "", "scan")
	require.NoError(t, err, out)
	assert.Contains(t, out, "All 9 tests passed")
}

func TestLog(t *testing.T) {
	withHome(t)

	_, _, err := runCLI(t, `{"endpoint":"/applications/123/records","method":"GET"}`, "check")
	require.ErrorIs(t, err, ErrBlocked)
	_, _, err = runCLI(t, `{"endpoint":"/applications/123/","method":"GET"}`, "check")
	require.NoError(t, err)

	out, _, err := runCLI(t, "", "log", "--severity", "red")
	require.NoError(t, err)
	assert.Contains(t, out, "GET /applications/123/records")
	assert.NotContains(t, out, "(score 100)")

	out, _, err = runCLI(t, "", "log", "--summary")
	require.NoError(t, err)
	assert.Contains(t, out, "Total events:    2")
	assert.Contains(t, out, "RED:             1")

	_, _, err = runCLI(t, "", "log", "--severity", "purple")
	assert.Error(t, err)
}

func TestLog_Empty(t *testing.T) {
	withHome(t)

	out, _, err := runCLI(t, "", "log")
	require.NoError(t, err)
	assert.Contains(t, out, "No audit log entries found.")
}

func TestStatusAndVersion(t *testing.T) {
	withHome(t)

	out, _, err := runCLI(t, "", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "built-in v1.4.0")
	assert.Contains(t, out, "10 patterns: 5 RED, 2 YELLOW, 3 GREEN")

	out, _, err = runCLI(t, "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "opguard "+Version)
}
