package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

func newStatusCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show opguard status: config, rule set, audit log",
		Long: `Check which configuration and rule set opguard is using and whether
the audit log is being written.

  opguard status`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			fmt.Fprintln(out, "═══════════════════════════════════════════════════════")
			fmt.Fprintln(out, "  opguard Status")
			fmt.Fprintln(out, "═══════════════════════════════════════════════════════")
			fmt.Fprintln(out)

			binPath, err := os.Executable()
			if err != nil {
				binPath = "unknown"
			}
			fmt.Fprintf(out, "  Binary:    %s (%s)\n", binPath, Version)

			env, err := g.load(cmd.ErrOrStderr())
			if err != nil {
				fmt.Fprintf(out, "  ❌ %v\n", err)
				return err
			}
			fmt.Fprintf(out, "  Config:    %s\n", env.cfg.ConfigDir)
			fmt.Fprintln(out)

			fmt.Fprintln(out, "─── Rule Set ──────────────────────────────────────────")
			m := env.store.Manifest()
			c := env.store.Counts()
			fmt.Fprintf(out, "  ✅ %s v%s (updated %s)\n", env.rulesSource, env.store.Version(), m.LastUpdated.Format("2006-01-02"))
			fmt.Fprintf(out, "     %d patterns: %d RED, %d YELLOW, %d GREEN\n", c.Total(), c.Red, c.Yellow, c.Green)
			if d := env.store.Disabled(); len(d) > 0 {
				fmt.Fprintf(out, "     %d disabled\n", len(d))
			}
			for _, note := range env.store.Notes() {
				fmt.Fprintf(out, "  ⚠  %s\n", note)
			}
			fmt.Fprintln(out)

			fmt.Fprintln(out, "─── Audit Log ─────────────────────────────────────────")
			if !env.cfg.Audit {
				fmt.Fprintln(out, "  ⬚  Auditing disabled in config")
			} else {
				checkAuditLog(out, env.cfg.LogPath)
			}
			fmt.Fprintln(out)
			return nil
		},
	}
}

func checkAuditLog(out io.Writer, path string) {
	info, err := os.Stat(path)
	if err != nil {
		fmt.Fprintf(out, "  ⬚  %s (not yet created; starts on first check)\n", path)
		return
	}

	sizeKB := info.Size() / 1024
	if sizeKB == 0 {
		fmt.Fprintf(out, "  ✅ %s (<1 KB)\n", path)
	} else {
		fmt.Fprintf(out, "  ✅ %s (%d KB)\n", path, sizeKB)
	}
}
