package approval

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/gzhole/opguard/internal/policy"
)

// User actions recorded in the audit log.
const (
	ActionApproveOnce            = "approve_once"
	ActionDeny                   = "deny"
	ActionAutoDenyNonInteractive = "auto_deny_non_interactive"
	ActionErrorReadingInput      = "error_reading_input"
)

type Result struct {
	Approved   bool
	UserAction string
}

type Prompt struct {
	Endpoint   string
	Method     string
	Assessment policy.Assessment
}

func IsInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// Approver asks a human to confirm an operation the engine did not rate
// GREEN.
type Approver struct {
	In          io.Reader
	Out         io.Writer
	Interactive func() bool
}

// Ask prompts on the process terminal.
func Ask(p Prompt) Result {
	return (&Approver{In: os.Stdin, Out: os.Stderr, Interactive: IsInteractive}).Ask(p)
}

func (a *Approver) Ask(p Prompt) Result {
	if a.Interactive != nil && !a.Interactive() {
		return Result{
			Approved:   false,
			UserAction: ActionAutoDenyNonInteractive,
		}
	}

	out := a.Out
	as := p.Assessment

	fmt.Fprintln(out, "")
	fmt.Fprintln(out, "╔══════════════════════════════════════════════════════════════╗")
	fmt.Fprintln(out, "║              ⚠️  APPROVAL REQUIRED                            ║")
	fmt.Fprintln(out, "╚══════════════════════════════════════════════════════════════╝")
	fmt.Fprintln(out, "")
	fmt.Fprintf(out, "Operation: %s %s\n", p.Method, p.Endpoint)
	fmt.Fprintf(out, "Severity:  %s (score %d)\n", as.Severity, as.Score)
	fmt.Fprintln(out, "")

	if len(as.MatchedPatternNames) > 0 {
		fmt.Fprintf(out, "Matched patterns: %s\n", strings.Join(as.MatchedPatternNames, ", "))
	}

	if len(as.Blockers) > 0 {
		fmt.Fprintln(out, "Blockers:")
		for _, reason := range as.Blockers {
			fmt.Fprintf(out, "  • %s\n", reason)
		}
	}
	if len(as.Warnings) > 0 {
		fmt.Fprintln(out, "Warnings:")
		for _, reason := range as.Warnings {
			fmt.Fprintf(out, "  • %s\n", reason)
		}
	}

	fmt.Fprintln(out, "")
	fmt.Fprintln(out, "Options:")
	fmt.Fprintln(out, "  [a] Approve once - proceed with this operation")
	fmt.Fprintln(out, "  [d] Deny - do not send it")
	fmt.Fprintln(out, "")

	reader := bufio.NewReader(a.In)

	for {
		fmt.Fprint(out, "Your choice [a/d]: ")
		input, err := reader.ReadString('\n')
		if err != nil && input == "" {
			return Result{
				Approved:   false,
				UserAction: ActionErrorReadingInput,
			}
		}

		input = strings.TrimSpace(strings.ToLower(input))

		switch input {
		case "a", "approve", "yes", "y":
			return Result{
				Approved:   true,
				UserAction: ActionApproveOnce,
			}
		case "d", "deny", "no", "n":
			return Result{
				Approved:   false,
				UserAction: ActionDeny,
			}
		default:
			if err != nil {
				return Result{Approved: false, UserAction: ActionErrorReadingInput}
			}
			fmt.Fprintln(out, "Invalid input. Please enter 'a' to approve or 'd' to deny.")
		}
	}
}
