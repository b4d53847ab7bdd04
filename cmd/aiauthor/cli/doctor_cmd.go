package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/aiauthor/cli/cmd/aiauthor/cli/lockutil"
	"github.com/aiauthor/cli/cmd/aiauthor/cli/paths"
)

// staleLockThreshold is the age after which a lock held by a different
// machine (whose process liveness cannot be checked locally) is reported as
// stale and offered for removal, mirroring the teacher's doctor command's
// stalenessThreshold for stuck sessions. Locks held by this machine are
// judged by process liveness alone, regardless of age.
const staleLockThreshold = 10 * time.Minute

func newDoctorCmd() *cobra.Command {
	var forceFlag bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Diagnose and clear stale checkpoint/working-log locks",
		Long: `Scans the checkpoint store and Working Log locks for this repository.

A lock is considered stale if it was acquired by this machine but no
process with that PID is currently running (a crashed 'aiauthor' or VCS
wrapper invocation left it behind), or if it has been held for longer than
10 minutes by a process on a different machine that cannot be checked
locally.

Use --force to clear all stale locks without prompting.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDoctor(cmd, forceFlag)
		},
	}

	cmd.Flags().BoolVarP(&forceFlag, "force", "f", false, "clear all stale locks without prompting")
	return cmd
}

type lockDiagnosis struct {
	path   string
	label  string
	owner  *lockutil.Owner
	stale  bool
	reason string
}

func runDoctor(cmd *cobra.Command, force bool) error {
	candidates, err := candidateLockPaths()
	if err != nil {
		return err
	}

	var stale []lockDiagnosis
	for label, path := range candidates {
		owner, err := lockutil.Holder(path)
		if err != nil {
			continue // no lock file present, or unreadable: nothing to diagnose
		}
		d := diagnoseLock(label, path, owner)
		if d.stale {
			stale = append(stale, d)
		}
	}

	w := cmd.OutOrStdout()
	if len(stale) == 0 {
		fmt.Fprintln(w, "No stale locks found.")
		return nil
	}

	fmt.Fprintf(w, "Found %d stale lock(s):\n\n", len(stale))
	for _, d := range stale {
		fmt.Fprintf(w, "  Lock:    %s\n", d.label)
		fmt.Fprintf(w, "  Path:    %s\n", d.path)
		fmt.Fprintf(w, "  Reason:  %s\n", d.reason)
		fmt.Fprintf(w, "  Held by: pid %d, machine %s, since %s\n\n", d.owner.PID, d.owner.MachineID, d.owner.AcquiredAt.Format(time.RFC3339))

		clear := force
		if !force {
			confirmed, err := promptClearLock(d)
			if err != nil {
				if errors.Is(err, huh.ErrUserAborted) {
					return nil
				}
				return fmt.Errorf("failed to get confirmation: %w", err)
			}
			clear = confirmed
		}
		if !clear {
			fmt.Fprintln(w, "  -> Skipped")
			continue
		}

		if err := lockutil.ForceRelease(d.path); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Warning: failed to clear lock %s: %v\n", d.path, err)
			continue
		}
		fmt.Fprintf(w, "  -> Cleared\n\n")
	}

	return nil
}

func candidateLockPaths() (map[string]string, error) {
	checkpoints, err := paths.CheckpointsPath()
	if err != nil {
		return nil, err
	}
	workingLog, err := paths.WorkingLogPath()
	if err != nil {
		return nil, err
	}
	return map[string]string{
		"checkpoint store": filepath.Join(filepath.Dir(checkpoints), "checkpoints.lock"),
		"working log":      workingLog + ".lock",
	}, nil
}

func diagnoseLock(label, path string, owner *lockutil.Owner) lockDiagnosis {
	d := lockDiagnosis{path: path, label: label, owner: owner}

	if !lockutil.IsOwnMachine(owner) {
		if time.Since(owner.AcquiredAt) > staleLockThreshold {
			d.stale = true
			d.reason = fmt.Sprintf("held by a different machine for over %s; cannot verify liveness locally", staleLockThreshold)
		}
		return d
	}

	if !processAlive(owner.PID) {
		d.stale = true
		d.reason = "owning process is no longer running"
	}
	return d
}

// processAlive reports whether pid refers to a currently running process.
// On POSIX systems, os.FindProcess always succeeds; sending signal 0 is the
// standard liveness probe that performs no action other than an existence
// check.
func processAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}

func promptClearLock(d lockDiagnosis) (bool, error) {
	var confirmed bool
	form := NewAccessibleForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Clear stale %s lock?", d.label)).
				Description(d.reason).
				Value(&confirmed),
		),
	)
	if err := form.Run(); err != nil {
		return false, err
	}
	return confirmed, nil
}
