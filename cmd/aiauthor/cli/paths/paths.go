// Package paths resolves repository-relative locations used by the rest of the
// aiauthor packages: the repository root, the local (non-content) state
// directory under .git, and the notes-ref names for the two namespaces the
// Notes Store Adapter owns.
package paths

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
)

// Local-state directory names, rooted under .git so none of this is repo content.
const (
	// StateDir holds checkpoint store files and the working log.
	StateDir = "aiauthor"

	// CheckpointsDir holds one file per checkpoint (append-only).
	CheckpointsDir = "aiauthor/checkpoints"

	// WorkingLogFile holds the single process-wide Working Log.
	WorkingLogFile = "aiauthor/working-log.json"

	// LockFile names a general lock file under the state directory. The
	// Checkpoint Store and the Working Log do not use it: each locks its own
	// file (aiauthor/checkpoints.lock and aiauthor/working-log.json.lock).
	LockFile = "aiauthor/lock"
)

// Notes ref names. These must not collide with git's own default notes ref
// (refs/notes/commits) or with any ref a third-party tool might already use.
const (
	AuthorshipNotesRef = "refs/notes/aiauthor/authorship"
	StashScopeNotesRef = "refs/notes/aiauthor/stash-scope"
)

var (
	repoRootMu       sync.RWMutex
	repoRootCache    string
	repoRootCacheDir string
)

// RepoRoot returns the git repository root directory, using
// 'git rev-parse --show-toplevel' so it works from any subdirectory. The
// result is cached per working directory.
func RepoRoot() (string, error) {
	cwd, err := filepath.Abs(".")
	if err != nil {
		return "", fmt.Errorf("resolving working directory: %w", err)
	}

	repoRootMu.RLock()
	if repoRootCacheDir == cwd && repoRootCache != "" {
		defer repoRootMu.RUnlock()
		return repoRootCache, nil
	}
	repoRootMu.RUnlock()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	cmd := exec.CommandContext(ctx, "git", "rev-parse", "--show-toplevel")
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("not inside a git repository: %w", err)
	}

	root := strings.TrimSpace(string(out))

	repoRootMu.Lock()
	repoRootCache = root
	repoRootCacheDir = cwd
	repoRootMu.Unlock()

	return root, nil
}

// GitDir returns the repository's .git directory (supports worktrees whose
// .git is a file pointing elsewhere would need further resolution; this
// simple form covers the common case used by local state paths).
func GitDir() (string, error) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	cmd := exec.CommandContext(ctx, "git", "rev-parse", "--git-common-dir")
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("resolving .git directory: %w", err)
	}
	dir := strings.TrimSpace(string(out))
	if filepath.IsAbs(dir) {
		return dir, nil
	}
	root, err := RepoRoot()
	if err != nil {
		return "", err
	}
	return filepath.Join(root, dir), nil
}

// CheckpointsPath returns the absolute path to the checkpoint store directory.
func CheckpointsPath() (string, error) {
	gitDir, err := GitDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(gitDir, CheckpointsDir), nil
}

// WorkingLogPath returns the absolute path to the Working Log file.
func WorkingLogPath() (string, error) {
	gitDir, err := GitDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(gitDir, WorkingLogFile), nil
}

// LockPath returns the absolute path to the LockFile lock file.
func LockPath() (string, error) {
	gitDir, err := GitDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(gitDir, LockFile), nil
}
