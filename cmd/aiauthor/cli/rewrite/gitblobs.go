package rewrite

import (
	"context"
	"fmt"
	"io"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// GitBlobReader implements BlobReader against a real go-git repository,
// grounded on the teacher's git_operations.go idiom of resolving commits by
// hash via *git.Repository and walking trees with object.Tree (the same
// access pattern checkpoint/temporary.go's FlattenTree uses).
type GitBlobReader struct {
	repo *git.Repository
}

// NewGitBlobReader returns a BlobReader backed by repo.
func NewGitBlobReader(repo *git.Repository) *GitBlobReader {
	return &GitBlobReader{repo: repo}
}

// Blob implements BlobReader.
func (g *GitBlobReader) Blob(_ context.Context, commitID, path string) (string, bool, error) {
	commit, err := g.repo.CommitObject(plumbing.NewHash(commitID))
	if err != nil {
		return "", false, fmt.Errorf("rewrite: resolve commit %s: %w", commitID, err)
	}
	file, err := commit.File(path)
	if err != nil {
		return "", false, nil //nolint:nilerr // path not present at this commit is a normal case
	}
	reader, err := file.Reader()
	if err != nil {
		return "", false, fmt.Errorf("rewrite: open blob %s@%s: %w", path, commitID, err)
	}
	defer reader.Close()
	data, err := io.ReadAll(reader)
	if err != nil {
		return "", false, fmt.Errorf("rewrite: read blob %s@%s: %w", path, commitID, err)
	}
	return string(data), true, nil
}

// Parent implements BlobReader, returning the first parent (mainline) of
// commitID.
func (g *GitBlobReader) Parent(_ context.Context, commitID string) (string, bool, error) {
	commit, err := g.repo.CommitObject(plumbing.NewHash(commitID))
	if err != nil {
		return "", false, fmt.Errorf("rewrite: resolve commit %s: %w", commitID, err)
	}
	if commit.NumParents() == 0 {
		return "", false, nil
	}
	parent, err := commit.Parent(0)
	if err != nil {
		return "", false, fmt.Errorf("rewrite: resolve parent of %s: %w", commitID, err)
	}
	return parent.Hash.String(), true, nil
}

// ChangedPaths implements BlobReader by diffing the two commits' trees with
// go-git's object.Tree.Diff, the same tree-comparison primitive the teacher
// relies on elsewhere for tree-to-tree comparisons.
func (g *GitBlobReader) ChangedPaths(_ context.Context, fromCommitID, toCommitID string) ([]string, error) {
	fromTree, err := g.treeOf(fromCommitID)
	if err != nil {
		return nil, err
	}
	toTree, err := g.treeOf(toCommitID)
	if err != nil {
		return nil, err
	}

	changes, err := object.DiffTree(fromTree, toTree)
	if err != nil {
		return nil, fmt.Errorf("rewrite: diff trees %s..%s: %w", fromCommitID, toCommitID, err)
	}

	seen := make(map[string]bool)
	var out []string
	for _, c := range changes {
		for _, p := range []string{c.From.Name, c.To.Name} {
			if p != "" && !seen[p] {
				seen[p] = true
				out = append(out, p)
			}
		}
	}
	return out, nil
}

func (g *GitBlobReader) treeOf(commitID string) (*object.Tree, error) {
	if commitID == "" {
		return &object.Tree{}, nil
	}
	commit, err := g.repo.CommitObject(plumbing.NewHash(commitID))
	if err != nil {
		return nil, fmt.Errorf("rewrite: resolve commit %s: %w", commitID, err)
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("rewrite: read tree of %s: %w", commitID, err)
	}
	return tree, nil
}
