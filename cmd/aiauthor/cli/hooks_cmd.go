package cli

import (
	"context"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/aiauthor/cli/cmd/aiauthor/cli/logging"
)

// newHooksCmd groups the commands the out-of-scope VCS wrapper invokes
// around each git operation: some correspond to native git hooks
// (post-commit, post-rewrite), others (stash, reset, ingest) are explicit
// calls the wrapper makes since git has no hook for them. Grounded on the
// teacher's hooks_git_cmd.go: a hidden parent command delegating to a
// per-operation subcommand, with logging wrapped around each.
func newHooksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:    "hooks",
		Short:  "VCS wrapper integration points",
		Hidden: true,
	}

	cmd.AddCommand(newIngestCmd())
	cmd.AddCommand(newPostCommitCmd())
	cmd.AddCommand(newPostRewriteCmd())
	cmd.AddCommand(newStashCmd())
	cmd.AddCommand(newResetCmd())

	return cmd
}

// hookContext carries per-invocation logging state, mirroring the teacher's
// gitHookContext.
type hookContext struct {
	name  string
	ctx   context.Context
	start time.Time
}

func newHookContext(name string) *hookContext {
	return &hookContext{
		name:  name,
		ctx:   logging.WithOperation(logging.WithComponent(context.Background(), "hooks"), name),
		start: time.Now(),
	}
}

func (h *hookContext) logInvoked(attrs ...any) {
	logging.Debug(h.ctx, h.name+" invoked", append([]any{slog.String("hook", h.name)}, attrs...)...)
}

// logCompleted logs completion and swallows err into the log line: spec §7's
// propagation policy is that fold/rewrite failures never fail the host
// operation, only surface as diagnostics.
func (h *hookContext) logCompleted(err error, attrs ...any) {
	base := []any{slog.String("hook", h.name), slog.Bool("success", err == nil)}
	if err != nil {
		base = append(base, slog.String("error", err.Error()))
	}
	logging.LogDuration(h.ctx, slog.LevelDebug, h.name+" completed", h.start, append(base, attrs...)...)
}
