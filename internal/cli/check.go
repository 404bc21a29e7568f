package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/gzhole/opguard/internal/approval"
	"github.com/gzhole/opguard/internal/logger"
	"github.com/gzhole/opguard/internal/normalize"
	"github.com/gzhole/opguard/internal/policy"
	"github.com/gzhole/opguard/internal/rules"
)

type checkOptions struct {
	file    string
	approve bool
	json    bool
	dryRun  bool
}

func newCheckCmd(g *globalOptions) *cobra.Command {
	o := &checkOptions{}

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Assess a candidate operation before it is sent",
		Long: `Read a candidate operation as JSON and print its safety assessment.

The operation has the shape:
  {"endpoint": "/applications/123/records/list/", "method": "POST",
   "payload": {...}, "fieldTypes": {...}, "tableId": "...", "dryRun": false}

Exit status is 1 when the operation is RED, unless --approve is given and
the operation is approved interactively.

Examples:
  opguard check --file op.json
  echo '{"endpoint":"/applications/1/records","method":"GET"}' | opguard check
  opguard check --file op.json --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, g, o)
		},
	}

	cmd.Flags().StringVarP(&o.file, "file", "f", "-", "Operation JSON file, or - for stdin")
	cmd.Flags().BoolVar(&o.approve, "approve", false, "Ask for interactive approval of RED and YELLOW operations")
	cmd.Flags().BoolVar(&o.json, "json", false, "Print the assessment as JSON")
	cmd.Flags().BoolVar(&o.dryRun, "dry-run", false, "Mark the operation as a pre-execution re-check")
	return cmd
}

func runCheck(cmd *cobra.Command, g *globalOptions, o *checkOptions) error {
	data, err := readOperationInput(o.file, cmd.InOrStdin())
	if err != nil {
		return fmt.Errorf("failed to read operation: %w", err)
	}
	op, err := decodeOperation(data)
	if err != nil {
		return err
	}
	if o.dryRun {
		op.DryRun = true
	}

	env, err := g.load(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	engine, err := env.newEngine()
	if err != nil {
		return err
	}

	sink, audit, err := env.openSinks()
	if err != nil {
		return err
	}
	if audit != nil {
		defer audit.Close()
		env.log.Info("recording assessments", "audit_log", audit.Path())
	}

	// The approval decision is logged separately, so remember the event the
	// engine produced.
	var last logger.AssessmentEvent
	engine.SetLogFunc(func(rec policy.LogRecord) error {
		last = logger.NewEvent(rec)
		return sink.Write(last)
	})

	if ep := normalize.NormalizeEndpoint(op.Endpoint); len(ep.Hidden) > 0 {
		for _, h := range ep.Hidden {
			env.log.Warn("endpoint contains a hidden character", "kind", h.Kind, "codepoint", h.Codepoint, "offset", h.Offset)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "⚠  endpoint contains %d hidden character(s); it was assessed as %s\n", len(ep.Hidden), ep.Path)
	}

	a, err := engine.Analyze(op)
	if err != nil {
		return err
	}

	if err := printAssessment(cmd.OutOrStdout(), a, o.json); err != nil {
		return err
	}

	if o.approve && a.Severity != rules.SeverityGreen {
		res := approval.Ask(approval.Prompt{
			Endpoint:   op.Endpoint,
			Method:     string(op.NormalizedMethod()),
			Assessment: a,
		})
		last.UserAction = res.UserAction
		if err := sink.Write(last); err != nil {
			env.log.Warn("failed to record approval", "error", err)
		}
		if res.Approved {
			fmt.Fprintln(cmd.ErrOrStderr(), "\n✅ Approved once")
			return nil
		}
		fmt.Fprintln(cmd.ErrOrStderr(), "\n❌ Operation denied")
		if a.Blocked() {
			return ErrBlocked
		}
		return nil
	}

	if a.Blocked() {
		return ErrBlocked
	}
	return nil
}

func printAssessment(w io.Writer, a policy.Assessment, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(a)
	}

	fmt.Fprintln(w, a.GuidanceText)
	for i, s := range a.SuggestedCorrections {
		fmt.Fprintf(w, "\nSuggested correction %d (%s): %s\n", i+1, s.Source, s.Description)
		if s.CorrectedMethod != "" || s.CorrectedEndpoint != "" {
			fmt.Fprintf(w, "  Request: %s %s\n", s.CorrectedMethod, s.CorrectedEndpoint)
		}
		if s.CorrectedPayload != nil {
			data, err := json.Marshal(s.CorrectedPayload)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "  Payload: %s\n", data)
		}
		if len(s.Batches) > 0 {
			fmt.Fprintf(w, "  Batches: %d\n", len(s.Batches))
		}
	}
	return nil
}
