package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

const gettingStarted = `

Getting Started:
  Run 'aiauthor enable' inside a git repository to start recording
  checkpoints. A VCS wrapper invokes 'aiauthor hooks ...' around each
  git operation; 'aiauthor blame' and 'aiauthor doctor' are the commands
  meant for direct, interactive use.

`

const accessibilityHelp = `
Environment Variables:
  ACCESSIBLE    Set to any value (e.g., ACCESSIBLE=1) to enable accessibility
                mode. This uses simpler text prompts instead of interactive
                TUI elements, which works better with screen readers.
  AIAUTHOR_LOG_LEVEL
                Overrides the configured log level (debug, info, warn, error).
`

// Version information (can be set at build time via -ldflags).
var (
	Version = "dev"
	Commit  = "unknown"
)

// NewRootCmd builds the aiauthor command tree.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "aiauthor",
		Short: "Authorship attribution for AI coding agents",
		Long:  "Tracks which lines of source code were produced by AI coding agents vs. human authors, preserving that attribution across git history rewrites." + gettingStarted + accessibilityHelp,
		// main.go handles error printing to avoid duplication.
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(newEnableCmd())
	cmd.AddCommand(newDisableCmd())
	cmd.AddCommand(newBlameCmd())
	cmd.AddCommand(newDoctorCmd())
	cmd.AddCommand(newHooksCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "aiauthor %s (%s)\n", Version, Commit)
			fmt.Fprintf(w, "Go version: %s\n", runtime.Version())
			fmt.Fprintf(w, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}
