// Package notesstore implements the Notes Store Adapter (spec §4.8): a
// keyed note, addressed by commit identity, stored out-of-band from commit
// content. go-git has no native "git notes" porcelain, so this package hand-
// builds the same tree-of-blobs structure `git notes` itself uses (a flat
// tree keyed by the full object id, committed onto a dedicated ref), using
// the same low-level object.Tree/object.Commit/Storer.SetEncodedObject
// primitives the teacher uses to build its shadow-branch checkpoint commits
// in checkpoint/temporary.go.
package notesstore

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/aiauthor/cli/cmd/aiauthor/cli/authorshiplog"
	"github.com/aiauthor/cli/cmd/aiauthor/cli/paths"
)

// Namespace selects one of the two keyspaces spec §4.8 defines.
type Namespace string

const (
	// Authorship is the namespace for committed logs, addressed by commit id.
	Authorship Namespace = "authorship"
	// StashScope is the namespace for stash-preserved logs, addressed by
	// stash commit id. A separate keyspace from Authorship (spec §4.8).
	StashScope Namespace = "stash-scope"
)

func refFor(ns Namespace) (plumbing.ReferenceName, error) {
	switch ns {
	case Authorship:
		return plumbing.ReferenceName(paths.AuthorshipNotesRef), nil
	case StashScope:
		return plumbing.ReferenceName(paths.StashScopeNotesRef), nil
	default:
		return "", fmt.Errorf("notesstore: unknown namespace %q", ns)
	}
}

// Store is the Notes Store Adapter: get/put/delete/list over a keyed note,
// backed by one git ref per namespace.
type Store struct {
	repo *git.Repository
}

// New returns a Store backed by repo.
func New(repo *git.Repository) *Store {
	return &Store{repo: repo}
}

// Get returns the note for key in namespace, or nil if none exists (spec
// §4.8 `get(namespace, key) → Option<log>`).
func (s *Store) Get(namespace, key string) (*authorshiplog.AuthorshipLog, error) {
	ns := Namespace(namespace)
	refName, err := refFor(ns)
	if err != nil {
		return nil, err
	}

	tree, err := s.currentTree(refName)
	if err != nil {
		return nil, err
	}
	if tree == nil {
		return nil, nil //nolint:nilnil // absent ref is a normal "no notes yet" state
	}

	entry, err := tree.FindEntry(key)
	if err != nil {
		return nil, nil //nolint:nilnil // key not present is a normal "no note" state
	}

	blob, err := s.repo.BlobObject(entry.Hash)
	if err != nil {
		return nil, fmt.Errorf("notesstore: read note blob for %s: %w", key, err)
	}
	reader, err := blob.Reader()
	if err != nil {
		return nil, fmt.Errorf("notesstore: open note blob for %s: %w", key, err)
	}
	defer reader.Close()

	data := make([]byte, blob.Size)
	if _, err := readFull(reader, data); err != nil {
		return nil, fmt.Errorf("notesstore: read note content for %s: %w", key, err)
	}

	log, err := authorshiplog.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("notesstore: parse note for %s: %w", key, err)
	}
	return log, nil
}

// Put total-overwrites the note for key in namespace (spec §4.8: "Put is
// total-overwrite for a given key; no merging at this layer").
func (s *Store) Put(namespace, key string, log *authorshiplog.AuthorshipLog) error {
	ns := Namespace(namespace)
	refName, err := refFor(ns)
	if err != nil {
		return err
	}

	data, err := authorshiplog.Emit(log)
	if err != nil {
		return fmt.Errorf("notesstore: emit note for %s: %w", key, err)
	}

	return s.mutate(refName, func(entries map[string]plumbing.Hash) error {
		hash, err := s.writeBlob(data)
		if err != nil {
			return err
		}
		entries[key] = hash
		return nil
	})
}

// Delete removes the note for key in namespace, if present.
func (s *Store) Delete(namespace, key string) error {
	ns := Namespace(namespace)
	refName, err := refFor(ns)
	if err != nil {
		return err
	}
	return s.mutate(refName, func(entries map[string]plumbing.Hash) error {
		delete(entries, key)
		return nil
	})
}

// List returns every key currently stored in namespace (spec §4.8
// `list(namespace) → iterator`).
func (s *Store) List(namespace string) ([]string, error) {
	ns := Namespace(namespace)
	refName, err := refFor(ns)
	if err != nil {
		return nil, err
	}
	tree, err := s.currentTree(refName)
	if err != nil {
		return nil, err
	}
	if tree == nil {
		return nil, nil
	}
	keys := make([]string, 0, len(tree.Entries))
	for _, e := range tree.Entries {
		keys = append(keys, e.Name)
	}
	sort.Strings(keys)
	return keys, nil
}

// currentTree returns the tree object at the tip of refName, or nil if the
// ref does not exist yet (an empty notes namespace).
func (s *Store) currentTree(refName plumbing.ReferenceName) (*object.Tree, error) {
	ref, err := s.repo.Reference(refName, true)
	if err != nil {
		return nil, nil //nolint:nilnil // ref not found is a normal empty-namespace state
	}
	commit, err := s.repo.CommitObject(ref.Hash())
	if err != nil {
		return nil, fmt.Errorf("notesstore: read notes commit: %w", err)
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("notesstore: read notes tree: %w", err)
	}
	return tree, nil
}

// mutate loads the current flat entry map for refName, lets fn modify it,
// writes the resulting tree and a new commit atop the previous notes
// commit (if any), and updates the ref.
func (s *Store) mutate(refName plumbing.ReferenceName, fn func(entries map[string]plumbing.Hash) error) error {
	var parentHash plumbing.Hash
	entries := make(map[string]plumbing.Hash)

	ref, err := s.repo.Reference(refName, true)
	if err == nil {
		parentHash = ref.Hash()
		commit, err := s.repo.CommitObject(parentHash)
		if err != nil {
			return fmt.Errorf("notesstore: read notes commit: %w", err)
		}
		tree, err := commit.Tree()
		if err != nil {
			return fmt.Errorf("notesstore: read notes tree: %w", err)
		}
		for _, e := range tree.Entries {
			entries[e.Name] = e.Hash
		}
	}

	if err := fn(entries); err != nil {
		return err
	}

	treeHash, err := s.writeTree(entries)
	if err != nil {
		return err
	}

	commitHash, err := s.writeCommit(treeHash, parentHash)
	if err != nil {
		return err
	}

	newRef := plumbing.NewHashReference(refName, commitHash)
	if err := s.repo.Storer.SetReference(newRef); err != nil {
		return fmt.Errorf("notesstore: update ref %s: %w", refName, err)
	}
	return nil
}

func (s *Store) writeBlob(data []byte) (plumbing.Hash, error) {
	obj := s.repo.Storer.NewEncodedObject()
	obj.SetType(plumbing.BlobObject)
	obj.SetSize(int64(len(data)))

	w, err := obj.Writer()
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("notesstore: open blob writer: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return plumbing.ZeroHash, fmt.Errorf("notesstore: write blob: %w", err)
	}
	if err := w.Close(); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("notesstore: close blob writer: %w", err)
	}

	hash, err := s.repo.Storer.SetEncodedObject(obj)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("notesstore: store blob: %w", err)
	}
	return hash, nil
}

func (s *Store) writeTree(entries map[string]plumbing.Hash) (plumbing.Hash, error) {
	tree := &object.Tree{}
	for name, hash := range entries {
		tree.Entries = append(tree.Entries, object.TreeEntry{
			Name: name,
			Mode: filemode.Regular,
			Hash: hash,
		})
	}
	sort.Slice(tree.Entries, func(i, j int) bool { return tree.Entries[i].Name < tree.Entries[j].Name })

	obj := s.repo.Storer.NewEncodedObject()
	if err := tree.Encode(obj); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("notesstore: encode tree: %w", err)
	}
	hash, err := s.repo.Storer.SetEncodedObject(obj)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("notesstore: store tree: %w", err)
	}
	return hash, nil
}

// notesAuthor is the fixed identity notes commits are written under: notes
// history is internal bookkeeping, never attributed to a human committer.
var notesAuthor = object.Signature{Name: "aiauthor", Email: "aiauthor@localhost"}

func (s *Store) writeCommit(treeHash, parentHash plumbing.Hash) (plumbing.Hash, error) {
	commit := &object.Commit{
		TreeHash:  treeHash,
		Author:    signatureNow(),
		Committer: signatureNow(),
		Message:   "aiauthor notes update",
	}
	if parentHash != plumbing.ZeroHash {
		commit.ParentHashes = []plumbing.Hash{parentHash}
	}

	obj := s.repo.Storer.NewEncodedObject()
	if err := commit.Encode(obj); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("notesstore: encode commit: %w", err)
	}
	hash, err := s.repo.Storer.SetEncodedObject(obj)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("notesstore: store commit: %w", err)
	}
	return hash, nil
}

func signatureNow() object.Signature {
	sig := notesAuthor
	sig.When = time.Now()
	return sig
}

// readFull fills buf entirely from r, treating io.EOF as success only once
// buf is full (io.ReadFull's contract: a short read is an error).
func readFull(r io.Reader, buf []byte) (int, error) {
	return io.ReadFull(r, buf)
}
