// Package cli implements the aiauthor command surface: a thin cobra tree
// over the checkpoint/fold/workinglog/rewrite/notesstore packages, plus the
// git-hook entrypoints a VCS wrapper invokes around each history-rewriting
// operation. Grounded on the teacher's cmd/entire/cli package (root.go's
// NewRootCmd shape, hooks_git_cmd.go's hook-context/logging pattern,
// doctor.go's huh-driven interactive fixups).
package cli

// SilentError wraps an error that has already been reported to the user
// (e.g. via interactive prompt output); main.go checks for it via
// errors.As and skips printing it a second time.
type SilentError struct {
	err error
}

// NewSilentError wraps err as a SilentError.
func NewSilentError(err error) *SilentError {
	return &SilentError{err: err}
}

func (e *SilentError) Error() string {
	return e.err.Error()
}

func (e *SilentError) Unwrap() error {
	return e.err
}
