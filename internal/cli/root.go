package cli

import (
	"errors"

	"github.com/spf13/cobra"
)

// ErrBlocked is returned by check when the operation is RED and was not
// approved. The process exits 1 without printing it.
var ErrBlocked = errors.New("operation blocked")

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	configPath string
	rulesDir   string
	logPath    string
	logFormat  string
	verbose    bool
}

// NewRootCmd builds the opguard command tree.
func NewRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "opguard",
		Short: "opguard - safety gate for remote record API operations",
		Long: `opguard classifies proposed calls against a remote record API as
GREEN (safe), YELLOW (caution) or RED (blocked) before they are sent,
explains why, and suggests corrected requests. It also routes free-text
intents to a handler category and refuses to guess when an intent is
ambiguous.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "Path to config file (default: ~/.opguard/config.yaml)")
	flags.StringVar(&opts.rulesDir, "rules-dir", "", "Rule set directory with manifest.yaml and patterns/ (default: ~/.opguard/rules, falling back to the built-in rules)")
	flags.StringVar(&opts.logPath, "log", "", "Path to audit log file (default: ~/.opguard/audit.jsonl)")
	flags.StringVar(&opts.logFormat, "log-format", "", "Process log format: text or json")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Log every assessment, not only warnings")

	root.AddCommand(
		newCheckCmd(opts),
		newRouteCmd(opts),
		newRulesCmd(opts),
		newScanCmd(opts),
		newLogCmd(opts),
		newStatusCmd(opts),
		newVersionCmd(),
	)
	return root
}

func Execute() error {
	return NewRootCmd().Execute()
}
