package cli

import (
	"fmt"

	"github.com/go-git/go-git/v5"

	"github.com/aiauthor/cli/cmd/aiauthor/cli/paths"
)

// openRepository opens the git repository containing the current working
// directory, resolving the root the same way the rest of this module's
// packages do (paths.RepoRoot, backed by 'git rev-parse --show-toplevel').
func openRepository() (*git.Repository, error) {
	root, err := paths.RepoRoot()
	if err != nil {
		return nil, fmt.Errorf("not inside a git repository: %w", err)
	}
	repo, err := git.PlainOpen(root)
	if err != nil {
		return nil, fmt.Errorf("open repository at %s: %w", root, err)
	}
	return repo, nil
}
