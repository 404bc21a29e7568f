package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/gzhole/opguard/internal/logger"
	"github.com/gzhole/opguard/internal/rules"
)

type logOptions struct {
	severity string
	last     int
	summary  bool
}

func newLogCmd(g *globalOptions) *cobra.Command {
	o := &logOptions{}

	cmd := &cobra.Command{
		Use:   "log",
		Short: "View and filter the audit log",
		Long: `View the opguard audit log with filtering and summary options.

Examples:
  opguard log                        # Show all entries
  opguard log --last 20              # Show last 20 entries
  opguard log --severity RED         # Show only blocked operations
  opguard log --summary              # Show summary stats`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if o.severity != "" {
				if _, err := rules.ParseSeverity(o.severity); err != nil {
					return err
				}
			}

			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}

			events, err := logger.ReadEvents(cfg.LogPath)
			if err != nil {
				return fmt.Errorf("failed to read audit log: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(events) == 0 {
				fmt.Fprintln(out, "No audit log entries found.")
				return nil
			}

			filtered := logger.Filter(events, o.severity)
			if o.last > 0 && o.last < len(filtered) {
				filtered = filtered[len(filtered)-o.last:]
			}

			if o.summary {
				printSummary(out, events)
				return nil
			}
			printEvents(out, filtered)
			return nil
		},
	}

	cmd.Flags().StringVar(&o.severity, "severity", "", "Filter by severity (RED, YELLOW, GREEN)")
	cmd.Flags().IntVar(&o.last, "last", 0, "Show last N entries")
	cmd.Flags().BoolVar(&o.summary, "summary", false, "Show summary statistics")
	return cmd
}

func printEvents(out io.Writer, events []logger.AssessmentEvent) {
	for _, e := range events {
		flags := ""
		if e.DryRun {
			flags += " [DRY RUN]"
		}
		if e.UserAction != "" {
			flags += " [" + e.UserAction + "]"
		}

		fmt.Fprintf(out, "%s %s %s %s (score %d)%s\n",
			severityIcon(e.Severity), formatTimestamp(e.Timestamp), e.Method, e.Endpoint, e.Score, flags)

		if len(e.MatchedPatterns) > 0 {
			fmt.Fprintf(out, "     Patterns: %s\n", strings.Join(e.MatchedPatterns, ", "))
		}
		for _, b := range e.Blockers {
			fmt.Fprintf(out, "     Blocker: %s\n", b)
		}
		for _, w := range e.Warnings {
			fmt.Fprintf(out, "     Warning: %s\n", w)
		}
		fmt.Fprintf(out, "     ID: %s\n", e.ID)
		fmt.Fprintln(out)
	}
}

func printSummary(out io.Writer, all []logger.AssessmentEvent) {
	s := logger.Summarize(all)

	fmt.Fprintln(out, "═══════════════════════════════════════════")
	fmt.Fprintln(out, "  opguard Audit Summary")
	fmt.Fprintln(out, "═══════════════════════════════════════════")
	fmt.Fprintf(out, "  Total events:    %d\n", s.Total)
	fmt.Fprintf(out, "  GREEN:           %d\n", s.Green)
	fmt.Fprintf(out, "  YELLOW:          %d\n", s.Yellow)
	fmt.Fprintf(out, "  RED:             %d\n", s.Red)
	fmt.Fprintf(out, "  Dry runs:        %d\n", s.DryRuns)
	fmt.Fprintf(out, "  Approved once:   %d\n", s.Approved)
	fmt.Fprintln(out, "═══════════════════════════════════════════")

	if s.Total > 0 {
		fmt.Fprintf(out, "  First event:     %s\n", formatTimestamp(s.First))
		fmt.Fprintf(out, "  Last event:      %s\n", formatTimestamp(s.Last))
	}

	blocked := logger.Filter(all, rules.SeverityRed.String())
	if len(blocked) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "  Blocked operations:")
		limit := len(blocked)
		if limit > 10 {
			limit = 10
		}
		for _, e := range blocked[len(blocked)-limit:] {
			fmt.Fprintf(out, "    %s %s %s\n", formatTimestamp(e.Timestamp), e.Method, e.Endpoint)
		}
	}

	fmt.Fprintln(out)
}

func severityIcon(severity string) string {
	switch strings.ToUpper(severity) {
	case "RED":
		return "\xf0\x9f\x9b\x91" // stop sign
	case "YELLOW":
		return "\xe2\x9a\xa0\xef\xb8\x8f" // warning
	case "GREEN":
		return "\xe2\x9c\x85" // check mark
	default:
		return "\xe2\x9d\x93" // question mark
	}
}

func formatTimestamp(ts string) string {
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return ts
	}
	return t.Local().Format("2006-01-02 15:04:05")
}
