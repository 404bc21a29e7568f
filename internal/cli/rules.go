package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gzhole/opguard/internal/rules"
)

func newRulesCmd(g *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Inspect the loaded rule set",
		Long: `Inspect the rule set opguard classifies operations with.

Rules are read from ~/.opguard/rules (or --rules-dir) when that directory
exists, and from the built-in set otherwise. A rule set is a manifest.yaml
plus one YAML file per pattern under patterns/; files whose name starts
with "_" are disabled.

Examples:
  opguard rules list
  opguard rules show records-list-via-get
  opguard rules counts`,
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List loaded patterns, most severe first",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				env, err := g.load(cmd.ErrOrStderr())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()

				m := env.store.Manifest()
				fmt.Fprintf(out, "Rule set %s (%s)\n", m.Version, env.rulesSource)
				fmt.Fprintln(out, strings.Repeat("─", 60))

				patterns := env.store.Patterns()
				sort.SliceStable(patterns, func(i, j int) bool {
					if patterns[i].Severity != patterns[j].Severity {
						return patterns[i].Severity > patterns[j].Severity
					}
					return patterns[i].Name < patterns[j].Name
				})
				for _, p := range patterns {
					category := p.Category
					if category == "" {
						category = "-"
					}
					fmt.Fprintf(out, "  %-7s %-28s %-22s %s\n", p.Severity, p.Name, category, p.Summary())
				}
				for _, name := range env.store.Disabled() {
					fmt.Fprintf(out, "  %-7s %-28s (disabled)\n", "-", name)
				}
				fmt.Fprintln(out, strings.Repeat("─", 60))
				return nil
			},
		},
		&cobra.Command{
			Use:   "show <pattern-name>",
			Short: "Show one pattern in full",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				env, err := g.load(cmd.ErrOrStderr())
				if err != nil {
					return err
				}
				p, ok := env.store.Get(args[0])
				if !ok {
					return fmt.Errorf("pattern '%s' not found in %s rules", args[0], env.rulesSource)
				}
				printPattern(cmd, p)
				return nil
			},
		},
		&cobra.Command{
			Use:   "counts",
			Short: "Show pattern counts per severity",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				env, err := g.load(cmd.ErrOrStderr())
				if err != nil {
					return err
				}
				c := env.store.Counts()
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "RED:    %d\n", c.Red)
				fmt.Fprintf(out, "YELLOW: %d\n", c.Yellow)
				fmt.Fprintf(out, "GREEN:  %d\n", c.Green)
				fmt.Fprintf(out, "Total:  %d\n", c.Total())
				return nil
			},
		},
	)
	return cmd
}

func printPattern(cmd *cobra.Command, p rules.Pattern) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Name:        %s\n", p.Name)
	fmt.Fprintf(out, "Severity:    %s\n", p.Severity)
	if p.Category != "" {
		fmt.Fprintf(out, "Category:    %s\n", p.Category)
	}
	if p.Description != "" {
		fmt.Fprintf(out, "Description: %s\n", p.Description)
	}
	fmt.Fprintf(out, "Trigger:     %s\n", p.Trigger)
	fmt.Fprintf(out, "Source:      %s\n", p.Source)

	if len(p.FailureModes) > 0 {
		fmt.Fprintln(out, "Failure modes:")
		for _, fm := range p.FailureModes {
			fmt.Fprintf(out, "  • %s\n", fm.Description)
			if fm.Cause != "" {
				fmt.Fprintf(out, "    Cause: %s\n", fm.Cause)
			}
			if fm.Prevention != "" {
				fmt.Fprintf(out, "    Prevention: %s\n", fm.Prevention)
			}
		}
	}
	if c := p.Correction; c != nil {
		fmt.Fprintf(out, "Correction:  %s\n", c.Description)
		if c.CorrectedMethod != "" || c.CorrectedEndpoint != "" {
			fmt.Fprintf(out, "  Request: %s %s\n", c.CorrectedMethod, c.CorrectedEndpoint)
		}
	}
	for _, r := range p.ValidationRules {
		target := r.Path
		if target == "" {
			target = "payload"
		}
		fmt.Fprintf(out, "Limit:       %s %s ≤ %d\n", r.Type, target, r.Limit)
	}
}
