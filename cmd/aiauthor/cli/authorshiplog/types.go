// Package authorshiplog implements the Authorship Log / Working Log data
// model (spec §3) and the wire-format codec (spec §4.2, §6): the committed
// artifact attached to one commit recording which session authored which
// lines, plus the prompt records backing each session hash.
package authorshiplog

import (
	"github.com/aiauthor/cli/cmd/aiauthor/cli/rangeset"
	"github.com/aiauthor/cli/cmd/aiauthor/cli/sessionid"
)

// SchemaVersion is the metadata schema_version this codec emits.
const SchemaVersion = "authorship/3.0.0"

// Message is one transcript entry. Tool-response entries must never appear
// here (spec §3, §6): only user, assistant, and tool_use entries.
type Message struct {
	Type string `json:"type"` // "user" | "assistant" | "tool_use"
	Text string `json:"text,omitempty"`
}

const (
	MessageTypeUser      = "user"
	MessageTypeAssistant = "assistant"
	MessageTypeToolUse   = "tool_use"
)

// PromptRecord is the metadata for one AI session (spec §3).
type PromptRecord struct {
	AgentID     sessionid.AgentID `json:"agent_id"`
	HumanAuthor string            `json:"human_author,omitempty"`
	Messages    []Message         `json:"messages"`

	TotalAdditions int `json:"total_additions"`
	TotalDeletions int `json:"total_deletions"`
	AcceptedLines  int `json:"accepted_lines"`
	OverridenLines int `json:"overriden_lines"` // historical misspelling, preserved per spec §9

	MessagesURL *string `json:"messages_url,omitempty"`
	Redacted    bool    `json:"redacted,omitempty"`
}

// Attestation is one (session, range set) pair within a file's attestation
// list. Stored as an ordered list, not a map, so that a later entry can mask
// an earlier one at query time without mutating the earlier entry (spec §9
// "last writer wins with preserved entry order").
type Attestation struct {
	Session sessionid.Hash
	Lines   rangeset.Set
}

// FileAttestations is the ordered attestation list for one file.
type FileAttestations struct {
	Path    string
	Entries []Attestation
}

// AuthorshipLog is the full artifact attached to one commit (spec §3).
type AuthorshipLog struct {
	SchemaVersion  string
	BaseCommitSHA  string
	GitAIVersion   *string
	Prompts        map[sessionid.Hash]*PromptRecord
	Files          []FileAttestations // ordered by insertion order of file appearance
}

// NewLog constructs an empty AuthorshipLog for the given base commit.
func NewLog(baseCommitSHA string) *AuthorshipLog {
	return &AuthorshipLog{
		SchemaVersion: SchemaVersion,
		BaseCommitSHA: baseCommitSHA,
		Prompts:       make(map[sessionid.Hash]*PromptRecord),
	}
}

// fileIndex returns the index of path in Files, or -1.
func (l *AuthorshipLog) fileIndex(path string) int {
	for i, f := range l.Files {
		if f.Path == path {
			return i
		}
	}
	return -1
}

// AppendAttestation appends one attestation entry to path's entry list,
// creating the file entry as needed; prompt records are not touched
// (EnsurePromptsForAttestations creates missing ones).
// Entries with an empty range set are dropped (spec §3 I2: files with empty
// attestation lists are omitted entirely; an individual empty entry within a
// non-empty file is likewise pointless and dropped).
func (l *AuthorshipLog) AppendAttestation(path string, session sessionid.Hash, lines rangeset.Set) {
	if lines.IsEmpty() {
		return
	}
	idx := l.fileIndex(path)
	if idx < 0 {
		l.Files = append(l.Files, FileAttestations{Path: path})
		idx = len(l.Files) - 1
	}
	l.Files[idx].Entries = append(l.Files[idx].Entries, Attestation{Session: session, Lines: lines.Clone()})
}

// PruneEmptyFiles drops file entries whose attestation list is empty (spec
// §3 I2), leaving prompt records untouched (sessions may still have an
// audit-trail prompt record despite contributing no attestations, spec §4.4
// "commit-time gate").
func (l *AuthorshipLog) PruneEmptyFiles() {
	kept := l.Files[:0]
	for _, f := range l.Files {
		if len(f.Entries) > 0 {
			kept = append(kept, f)
		}
	}
	l.Files = kept
}

// EnsurePromptsForAttestations satisfies invariant I1: every session hash
// referenced in attestations must appear as a key in Prompts.
func (l *AuthorshipLog) EnsurePromptsForAttestations() {
	if l.Prompts == nil {
		l.Prompts = make(map[sessionid.Hash]*PromptRecord)
	}
	for _, f := range l.Files {
		for _, e := range f.Entries {
			if _, ok := l.Prompts[e.Session]; !ok {
				l.Prompts[e.Session] = &PromptRecord{}
			}
		}
	}
}

// Query resolves the attributed session for one line in path, honoring
// last-writer-wins over the ordered entry list (spec §3 I3): later entries
// mask earlier ones on overlapping lines.
func Query(l *AuthorshipLog, path string, line int) (sessionid.Hash, bool) {
	idx := l.fileIndex(path)
	if idx < 0 {
		return sessionid.EmptyHash, false
	}
	var winner sessionid.Hash
	found := false
	for _, e := range l.Files[idx].Entries {
		if e.Lines.Contains(line) {
			winner = e.Session
			found = true
		}
	}
	return winner, found
}

// QueryRange resolves every line in lines into its attributed session,
// honoring last-writer-wins, and groups the result by session hash. Lines
// with no attestation are omitted from the result.
func QueryRange(l *AuthorshipLog, path string, lines rangeset.Set) map[sessionid.Hash]rangeset.Set {
	idx := l.fileIndex(path)
	if idx < 0 {
		return nil
	}
	// Apply entries in order; each later entry overwrites the ownership of
	// any line it covers.
	owner := make(map[int]sessionid.Hash)
	for _, e := range l.Files[idx].Entries {
		for _, r := range e.Lines {
			for line := r.Start; line <= r.End; line++ {
				if lines.Contains(line) {
					owner[line] = e.Session
				}
			}
		}
	}
	out := make(map[sessionid.Hash]rangeset.Set)
	for line, session := range owner {
		out[session] = rangeset.Union(out[session], rangeset.Single(line))
	}
	return out
}

// WorkingLog carries pending attributions that have not yet been committed
// (spec §3, §4.7): same shape as an AuthorshipLog without a base commit sha.
type WorkingLog struct {
	Prompts map[sessionid.Hash]*PromptRecord
	Files   []FileAttestations
}

// NewWorkingLog constructs an empty Working Log.
func NewWorkingLog() *WorkingLog {
	return &WorkingLog{Prompts: make(map[sessionid.Hash]*PromptRecord)}
}

func (w *WorkingLog) fileIndex(path string) int {
	for i, f := range w.Files {
		if f.Path == path {
			return i
		}
	}
	return -1
}

// AppendAttestation mirrors AuthorshipLog.AppendAttestation for a Working Log.
func (w *WorkingLog) AppendAttestation(path string, session sessionid.Hash, lines rangeset.Set) {
	if lines.IsEmpty() {
		return
	}
	idx := w.fileIndex(path)
	if idx < 0 {
		w.Files = append(w.Files, FileAttestations{Path: path})
		idx = len(w.Files) - 1
	}
	w.Files[idx].Entries = append(w.Files[idx].Entries, Attestation{Session: session, Lines: lines.Clone()})
}

// ToAuthorshipLog converts a drained Working Log into a committed
// AuthorshipLog for baseCommitSHA, preserving insertion order.
func (w *WorkingLog) ToAuthorshipLog(baseCommitSHA string) *AuthorshipLog {
	l := NewLog(baseCommitSHA)
	for k, v := range w.Prompts {
		cp := *v
		l.Prompts[k] = &cp
	}
	for _, f := range w.Files {
		cf := FileAttestations{Path: f.Path, Entries: append([]Attestation(nil), f.Entries...)}
		l.Files = append(l.Files, cf)
	}
	l.PruneEmptyFiles()
	l.EnsurePromptsForAttestations()
	return l
}

// IsEmpty reports whether the Working Log has no pending attributions at
// all (no files, no prompts).
func (w *WorkingLog) IsEmpty() bool {
	return len(w.Files) == 0 && len(w.Prompts) == 0
}
