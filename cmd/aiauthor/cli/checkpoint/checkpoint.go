// Package checkpoint implements the Checkpoint Store component (spec §4.1):
// an append-only, per-path log of pre-image/post-image pairs recorded as a
// session edits a file, consumed later by the fold package to attribute
// lines. Mirrors the teacher's checkpoint.Store shape (a narrow interface
// plus a directory-backed implementation) but keyed by file path rather than
// by session/commit, since here the unit of attribution is one file, not one
// shadow-branch commit.
package checkpoint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aiauthor/cli/cmd/aiauthor/cli/lockutil"
	"github.com/aiauthor/cli/cmd/aiauthor/cli/sessionid"
)

// Errors returned by checkpoint operations.
var (
	// ErrCorruption is returned when the on-disk sequence has a duplicate or
	// out-of-order sequence number (spec §4.1: "fatal corruption condition").
	ErrCorruption = errors.New("checkpoint store corruption")
)

// Kind distinguishes an AI-authored edit from a human-authored one (spec
// §4.4 step 2).
type Kind int

const (
	KindAI Kind = iota
	KindHuman
)

func (k Kind) String() string {
	if k == KindAI {
		return "ai"
	}
	return "human"
}

// Checkpoint is one immutable append-only record (spec §4.1).
type Checkpoint struct {
	Seq       int            `json:"seq"`
	Kind      Kind           `json:"kind"`
	Session   sessionid.Hash `json:"session,omitempty"`
	Path      string         `json:"path"`
	PreImage  string         `json:"pre_image"`
	PostImage string         `json:"post_image"`
}

// Store provides the append/range/clear_up_to primitives of spec §4.1.
type Store interface {
	// Append writes an immutable checkpoint record and returns its sequence
	// number. Fails with an error wrapping the underlying file-system error
	// if the store directory is unwritable.
	Append(ctx context.Context, kind Kind, session sessionid.Hash, path, preImage, postImage string) (int, error)

	// Range returns checkpoints for the given path set with sequence >
	// sinceSeq, in sequence order.
	Range(ctx context.Context, paths []string, sinceSeq int) ([]Checkpoint, error)

	// ClearUpTo removes records whose sequence <= seq. Called after a
	// successful commit-fold + notes write.
	ClearUpTo(ctx context.Context, seq int) error
}

// FileStore is a directory-backed Store: one JSON file per checkpoint,
// named by zero-padded sequence number, guarded by an exclusive lock file so
// concurrent producers serialize (spec §4.1, §5).
type FileStore struct {
	dir      string
	lockPath string
}

// NewFileStore returns a FileStore rooted at dir (typically
// paths.CheckpointsPath()).
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir, lockPath: filepath.Join(filepath.Dir(dir), "checkpoints.lock")}
}

func (s *FileStore) recordPath(seq int) string {
	return filepath.Join(s.dir, fmt.Sprintf("%012d.json", seq))
}

// nextSeq scans the store directory for the highest existing sequence
// number and returns the one after it. Returns 1 if the store is empty or
// its directory does not exist yet.
func (s *FileStore) nextSeq() (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 1, nil
		}
		return 0, fmt.Errorf("checkpoint: list store directory: %w", err)
	}
	max := 0
	for _, e := range entries {
		name := strings.TrimSuffix(e.Name(), ".json")
		var n int
		if _, err := fmt.Sscanf(name, "%d", &n); err != nil {
			continue
		}
		if n > max {
			max = n
		}
	}
	return max + 1, nil
}

// Append implements Store.
func (s *FileStore) Append(_ context.Context, kind Kind, session sessionid.Hash, path, preImage, postImage string) (int, error) {
	lock, err := lockutil.Acquire(s.lockPath)
	if err != nil {
		if errors.Is(err, lockutil.ErrHeld) {
			return 0, fmt.Errorf("checkpoint: store busy: %w", err)
		}
		return 0, fmt.Errorf("checkpoint: acquire lock: %w", err)
	}
	defer lock.Release()

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return 0, fmt.Errorf("checkpoint: create store directory: %w", err)
	}

	seq, err := s.nextSeq()
	if err != nil {
		return 0, err
	}

	cp := Checkpoint{
		Seq:       seq,
		Kind:      kind,
		Session:   session,
		Path:      path,
		PreImage:  preImage,
		PostImage: postImage,
	}
	data, err := json.Marshal(cp)
	if err != nil {
		return 0, fmt.Errorf("checkpoint: marshal record: %w", err)
	}

	recordPath := s.recordPath(seq)
	if _, err := os.Stat(recordPath); err == nil {
		return 0, fmt.Errorf("%w: sequence %d already recorded", ErrCorruption, seq)
	}
	if err := os.WriteFile(recordPath, data, 0o644); err != nil {
		return 0, fmt.Errorf("checkpoint: write record: %w", err)
	}
	return seq, nil
}

// Range implements Store.
func (s *FileStore) Range(_ context.Context, paths []string, sinceSeq int) ([]Checkpoint, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("checkpoint: list store directory: %w", err)
	}

	wanted := make(map[string]bool, len(paths))
	for _, p := range paths {
		wanted[p] = true
	}

	var out []Checkpoint
	seen := make(map[int]bool)
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("checkpoint: read record %s: %w", e.Name(), err)
		}
		var cp Checkpoint
		if err := json.Unmarshal(data, &cp); err != nil {
			return nil, fmt.Errorf("checkpoint: decode record %s: %w", e.Name(), err)
		}
		if seen[cp.Seq] {
			return nil, fmt.Errorf("%w: duplicate sequence %d", ErrCorruption, cp.Seq)
		}
		seen[cp.Seq] = true
		if cp.Seq <= sinceSeq {
			continue
		}
		if len(wanted) > 0 && !wanted[cp.Path] {
			continue
		}
		out = append(out, cp)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out, nil
}

// ClearUpTo implements Store.
func (s *FileStore) ClearUpTo(_ context.Context, seq int) error {
	lock, err := lockutil.Acquire(s.lockPath)
	if err != nil {
		return fmt.Errorf("checkpoint: acquire lock: %w", err)
	}
	defer lock.Release()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("checkpoint: list store directory: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		name := strings.TrimSuffix(e.Name(), ".json")
		var n int
		if _, err := fmt.Sscanf(name, "%d", &n); err != nil {
			continue
		}
		if n <= seq {
			if err := os.Remove(filepath.Join(s.dir, e.Name())); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("checkpoint: remove record %s: %w", e.Name(), err)
			}
		}
	}
	return nil
}
