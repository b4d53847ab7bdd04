// Package lockutil implements the exclusive advisory file lock shared by the
// Checkpoint Store and the Working Log (spec §5 "Concurrency & Resource
// Model": both require exclusive access to their respective on-disk state
// during a write, and stamp the lock with an owner identity so a stale lock
// left behind by a crashed process can be recognized and reported rather
// than silently broken).
package lockutil

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/denisbrodbeck/machineid"
)

// appID scopes the machine id the same way the teacher's telemetry package
// scopes its machineid.ProtectedID call: a fixed per-application salt so the
// derived id cannot be correlated with ids computed by unrelated tools.
const appID = "aiauthor-cli"

// ErrHeld is returned by Acquire when the lock is already held by another
// process (spec §5: concurrent invocations must fail fast, not block).
var ErrHeld = errors.New("lock already held")

// Owner identifies the process holding a lock.
type Owner struct {
	MachineID  string    `json:"machine_id"`
	PID        int       `json:"pid"`
	AcquiredAt time.Time `json:"acquired_at"`
}

// Lock is a held exclusive lock on path. Release removes the lock file.
type Lock struct {
	path string
}

// Acquire creates an exclusive lock file at path, failing with ErrHeld if
// one already exists. The lock file records the acquiring process's
// machine id and pid so Holder can report who holds it.
func Acquire(path string) (*Lock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("lockutil: create lock directory: %w", err)
	}

	machID, err := machineid.ProtectedID(appID)
	if err != nil {
		machID = "unknown"
	}

	owner := Owner{
		MachineID:  machID,
		PID:        os.Getpid(),
		AcquiredAt: time.Now().UTC(),
	}
	data, err := json.Marshal(owner)
	if err != nil {
		return nil, fmt.Errorf("lockutil: marshal owner: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil, ErrHeld
		}
		return nil, fmt.Errorf("lockutil: open lock file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("lockutil: write lock file: %w", err)
	}

	return &Lock{path: path}, nil
}

// Release removes the lock file.
func (l *Lock) Release() error {
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("lockutil: release: %w", err)
	}
	return nil
}

// ForceRelease removes the lock file at path unconditionally, for a
// diagnostic tool (e.g. 'aiauthor doctor') that has already independently
// confirmed the owning process is no longer running.
func ForceRelease(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("lockutil: force release %s: %w", path, err)
	}
	return nil
}

// Holder reads the owner recorded in an existing lock file at path, for
// diagnostics (e.g. the doctor command reporting who holds a stuck lock).
func Holder(path string) (*Owner, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("lockutil: read lock file: %w", err)
	}
	var owner Owner
	if err := json.Unmarshal(data, &owner); err != nil {
		return nil, fmt.Errorf("lockutil: lock file is corrupt: %w", err)
	}
	return &owner, nil
}

// IsOwnMachine reports whether owner was stamped by this machine, which lets
// a caller decide whether a PID liveness check is meaningful (a lock from a
// different machine can never be verified locally).
func IsOwnMachine(owner *Owner) bool {
	machID, err := machineid.ProtectedID(appID)
	if err != nil {
		return false
	}
	return owner.MachineID == machID
}
