package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/gzhole/opguard/internal/operation"
	"github.com/gzhole/opguard/internal/policy"
	"github.com/gzhole/opguard/internal/router"
	"github.com/gzhole/opguard/internal/rules"
)

var errSelfTestFailed = errors.New("self-test failed")

func newScanCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "Self-test: verify known-dangerous operations are caught",
		Long: `Run a quick diagnostic that assesses a set of known-dangerous and
known-safe operations with the loaded rules, and checks that ambiguous
intents are refused by the router. Nothing is sent anywhere.

  opguard scan`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := g.load(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			engine, err := env.newEngine()
			if err != nil {
				return fmt.Errorf("failed to create policy engine: %w", err)
			}
			return runScan(cmd.OutOrStdout(), engine)
		},
	}
}

type scanCase struct {
	label string
	op    operation.CandidateOperation
	check func(policy.Assessment) bool
}

func scanCases() []scanCase {
	records := make([]any, 150)
	for i := range records {
		records[i] = map[string]any{"title": fmt.Sprintf("row %d", i+1)}
	}

	return []scanCase{
		{
			label: "Select options overwrite",
			op: operation.CandidateOperation{
				Endpoint: "/applications/123/change_field/",
				Method:   "PUT",
				Payload:  map[string]any{"field_type": "singleselectfield", "options": []any{"A", "B"}},
			},
			check: func(a policy.Assessment) bool {
				if a.Severity != rules.SeverityRed {
					return false
				}
				for _, s := range a.SuggestedCorrections {
					if _, ok := s.CorrectedPayload["choices"]; ok {
						_, stale := s.CorrectedPayload["options"]
						return !stale
					}
				}
				return false
			},
		},
		{
			label: "Oversized bulk create",
			op: operation.CandidateOperation{
				Endpoint: "/applications/123/records/bulk/",
				Method:   "POST",
				Payload:  map[string]any{"records": records},
			},
			check: func(a policy.Assessment) bool {
				if a.Severity != rules.SeverityYellow {
					return false
				}
				for _, s := range a.SuggestedCorrections {
					if len(s.Batches) == 2 {
						return true
					}
				}
				return false
			},
		},
		{
			label: "Record list via GET",
			op: operation.CandidateOperation{
				Endpoint: "/applications/123/records",
				Method:   "GET",
			},
			check: func(a policy.Assessment) bool {
				if a.Severity != rules.SeverityRed {
					return false
				}
				for _, s := range a.SuggestedCorrections {
					if s.CorrectedMethod == "POST" && s.CorrectedEndpoint == "/applications/123/records/list/" {
						return true
					}
				}
				return false
			},
		},
		{
			label: "Zero-width endpoint evasion",
			op: operation.CandidateOperation{
				Endpoint: "/applications/123/rec" + string(rune(0x200B)) + "ords",
				Method:   "GET",
			},
			check: func(a policy.Assessment) bool { return a.Severity == rules.SeverityRed },
		},
		{
			label: "Unclassified list call",
			op: operation.CandidateOperation{
				Endpoint: "/applications/123/records/list/",
				Method:   "POST",
				Payload:  map[string]any{"limit": 10},
			},
			check: func(a policy.Assessment) bool {
				return a.Severity == rules.SeverityYellow && !a.Classified
			},
		},
		{
			label: "Application delete",
			op: operation.CandidateOperation{
				Endpoint: "/applications/123/",
				Method:   "DELETE",
			},
			check: func(a policy.Assessment) bool { return a.Severity == rules.SeverityRed },
		},
		{
			label: "Safe read",
			op: operation.CandidateOperation{
				Endpoint: "/applications/123/",
				Method:   "GET",
			},
			check: func(a policy.Assessment) bool { return a.Severity == rules.SeverityGreen },
		},
	}
}

func runScan(out io.Writer, engine *policy.Engine) error {
	fmt.Fprintln(out, "═══════════════════════════════════════════════════════")
	fmt.Fprintln(out, "  opguard Self-Test")
	fmt.Fprintln(out, "═══════════════════════════════════════════════════════")
	fmt.Fprintln(out)

	fmt.Fprintln(out, "─── Operation Assessment ──────────────────────────────")

	cases := scanCases()
	passed := 0
	for _, tc := range cases {
		a, err := engine.Analyze(tc.op)
		ok := err == nil && tc.check(a)
		result := a.Severity.String()
		if err != nil {
			result = err.Error()
		}
		if ok {
			passed++
		}
		fmt.Fprintf(out, "  %s  %-26s  %s %s → %s\n", passIcon(ok), tc.label, tc.op.Method, tc.op.Endpoint, result)
	}
	fmt.Fprintf(out, "\n  Assessment: %d/%d passed\n\n", passed, len(cases))

	fmt.Fprintln(out, "─── Intent Routing ────────────────────────────────────")

	routePass := 0
	intent := "list records from table"

	_, err := router.Route(router.Request{Intent: intent})
	var amb *router.AmbiguousRoutingError
	refused := errors.As(err, &amb) && len(amb.Candidates) == 2
	if refused {
		routePass++
	}
	fmt.Fprintf(out, "  %s  %-26s  %q refused\n", passIcon(refused), "Ambiguous intent", intent)

	c, err := router.Route(router.Request{Intent: intent, ExplicitCategory: string(router.CategoryQuery)})
	resolved := err == nil && c == router.CategoryQuery
	if resolved {
		routePass++
	}
	fmt.Fprintf(out, "  %s  %-26s  %q → %s\n", passIcon(resolved), "Explicit category", intent, c)
	fmt.Fprintf(out, "\n  Routing: %d/2 passed\n\n", routePass)

	total := len(cases) + 2
	failed := total - passed - routePass

	fmt.Fprintln(out, "═══════════════════════════════════════════════════════")
	if failed == 0 {
		fmt.Fprintf(out, "  ✅ All %d tests passed; opguard is working correctly\n", total)
	} else {
		fmt.Fprintf(out, "  ⚠  %d/%d tests passed, %d failed\n", total-failed, total, failed)
		fmt.Fprintln(out, "  Review your rule set.")
	}
	fmt.Fprintln(out, "═══════════════════════════════════════════════════════")
	fmt.Fprintln(out)

	if failed > 0 {
		return fmt.Errorf("%w: %d of %d checks", errSelfTestFailed, failed, total)
	}
	return nil
}

func passIcon(ok bool) string {
	if ok {
		return "\xe2\x9c\x85" // ✅
	}
	return "\xe2\x9d\x8c" // ❌
}
