package authorshiplog

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aiauthor/cli/cmd/aiauthor/cli/jsonutil"
	"github.com/aiauthor/cli/cmd/aiauthor/cli/rangeset"
	"github.com/aiauthor/cli/cmd/aiauthor/cli/sessionid"
	"golang.org/x/mod/semver"
)

// ErrMalformedLog wraps every format violation the parser can detect (spec
// §4.2): missing divider, bad indentation, non-hex session hash, unsorted or
// overlapping numbers within an entry, JSON parse failure.
var ErrMalformedLog = errors.New("malformed authorship log")

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedLog, fmt.Sprintf(format, args...))
}

// divider is the exact three-byte line separating the attestation section
// from the JSON metadata section (spec §4.2, §6).
const divider = "---"

// entryIndent is the required indentation before each attestation entry:
// exactly two space characters, never a tab (spec §4.2).
const entryIndent = "  "

// metadataJSON mirrors the required/optional keys of spec §6 exactly,
// including the historical overriden_lines misspelling on each prompt
// record (carried by PromptRecord itself).
type metadataJSON struct {
	SchemaVersion string                       `json:"schema_version"`
	BaseCommitSHA string                       `json:"base_commit_sha"`
	GitAIVersion  *string                      `json:"git_ai_version,omitempty"`
	Prompts       map[string]*promptRecordJSON `json:"prompts"`
}

type promptRecordJSON struct {
	AgentID struct {
		Tool  string `json:"tool"`
		ID    string `json:"id"`
		Model string `json:"model"`
	} `json:"agent_id"`
	HumanAuthor    string    `json:"human_author,omitempty"`
	Messages       []Message `json:"messages"`
	TotalAdditions int       `json:"total_additions"`
	TotalDeletions int       `json:"total_deletions"`
	AcceptedLines  int       `json:"accepted_lines"`
	OverridenLines int       `json:"overriden_lines"`
	MessagesURL    *string   `json:"messages_url,omitempty"`
	Redacted       bool      `json:"redacted,omitempty"`
}

// Emit renders an AuthorshipLog in the bit-exact wire format of spec §6:
// the attestation section (in file-insertion order, entries in recorded
// order - never re-sorted by session, per spec §4.2 so I3 last-writer-wins
// semantics are preserved), the literal "---" divider, then deterministic
// JSON metadata.
func Emit(l *AuthorshipLog) ([]byte, error) {
	var buf bytes.Buffer

	for _, f := range l.Files {
		if len(f.Entries) == 0 {
			continue // spec §3 I2: files with empty attestation lists are omitted
		}
		if strings.Contains(f.Path, `"`) {
			return nil, fmt.Errorf("emit: path %q contains a double quote, which the wire format disallows", f.Path)
		}
		buf.WriteString(quotePathIfNeeded(f.Path))
		buf.WriteByte('\n')
		for _, e := range f.Entries {
			if err := e.Session.Validate(); err != nil {
				return nil, fmt.Errorf("emit: %w", err)
			}
			buf.WriteString(entryIndent)
			buf.WriteString(e.Session.String())
			buf.WriteByte(' ')
			buf.WriteString(e.Lines.Format())
			buf.WriteByte('\n')
		}
	}

	buf.WriteString(divider)
	buf.WriteByte('\n')

	meta := toMetadataJSON(l)
	metaBytes, err := jsonutil.MarshalIndentWithNewline(meta, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("emit metadata: %w", err)
	}
	buf.Write(metaBytes)

	return buf.Bytes(), nil
}

func toMetadataJSON(l *AuthorshipLog) metadataJSON {
	m := metadataJSON{
		SchemaVersion: l.SchemaVersion,
		BaseCommitSHA: l.BaseCommitSHA,
		GitAIVersion:  l.GitAIVersion,
		Prompts:       make(map[string]*promptRecordJSON, len(l.Prompts)),
	}
	// Deterministic key order is a property of encoding/json's map handling
	// (always sorts string keys), so no extra sorting is needed here; we
	// only need a stable Go-side construction, which map iteration already
	// gives us indirectly since json.Marshal re-sorts on encode.
	for k, v := range l.Prompts {
		pj := &promptRecordJSON{
			HumanAuthor:    v.HumanAuthor,
			Messages:       v.Messages,
			TotalAdditions: v.TotalAdditions,
			TotalDeletions: v.TotalDeletions,
			AcceptedLines:  v.AcceptedLines,
			OverridenLines: v.OverridenLines,
			MessagesURL:    v.MessagesURL,
			Redacted:       v.Redacted,
		}
		pj.AgentID.Tool = v.AgentID.Tool
		pj.AgentID.ID = v.AgentID.ID
		pj.AgentID.Model = v.AgentID.Model
		if pj.Messages == nil {
			pj.Messages = []Message{}
		}
		m.Prompts[k.String()] = pj
	}
	return m
}

// quotePathIfNeeded double-quotes a path if it contains whitespace or the
// byte '"' (spec §4.2, §6). Backslash escaping is not used; paths
// containing '"' are disallowed by the writer.
func quotePathIfNeeded(path string) string {
	needsQuote := false
	for _, r := range path {
		if r == ' ' || r == '\t' || r == '"' {
			needsQuote = true
			break
		}
	}
	if !needsQuote {
		return path
	}
	return `"` + path + `"`
}

// Parse reads the bit-exact wire format (spec §4.2, §6) and returns the
// decoded AuthorshipLog, or ErrMalformedLog on any format violation.
func Parse(data []byte) (*AuthorshipLog, error) {
	text := string(data)

	dividerIdx := findDividerLine(text)
	if dividerIdx < 0 {
		return nil, malformed("missing %q divider line", divider)
	}

	attestationSection := text[:dividerIdx]
	afterDivider := text[dividerIdx+len(divider)+1:] // skip "---\n"

	files, err := parseAttestationSection(attestationSection)
	if err != nil {
		return nil, err
	}

	var meta metadataJSON
	dec := json.NewDecoder(strings.NewReader(afterDivider))
	if err := dec.Decode(&meta); err != nil {
		return nil, malformed("JSON metadata parse failure: %v", err)
	}

	l := &AuthorshipLog{
		SchemaVersion: meta.SchemaVersion,
		BaseCommitSHA: meta.BaseCommitSHA,
		GitAIVersion:  meta.GitAIVersion,
		Prompts:       make(map[sessionid.Hash]*PromptRecord, len(meta.Prompts)),
		Files:         files,
	}
	for k, v := range meta.Prompts {
		hash, err := sessionid.Parse(k)
		if err != nil {
			return nil, malformed("prompts map key: %v", err)
		}
		l.Prompts[hash] = &PromptRecord{
			AgentID: sessionid.AgentID{
				Tool:  v.AgentID.Tool,
				ID:    v.AgentID.ID,
				Model: v.AgentID.Model,
			},
			HumanAuthor:    v.HumanAuthor,
			Messages:       v.Messages,
			TotalAdditions: v.TotalAdditions,
			TotalDeletions: v.TotalDeletions,
			AcceptedLines:  v.AcceptedLines,
			OverridenLines: v.OverridenLines,
			MessagesURL:    v.MessagesURL,
			Redacted:       v.Redacted,
		}
	}

	// Invariant I1: every session hash in attestations must be a prompts key.
	for _, f := range l.Files {
		for _, e := range f.Entries {
			found := false
			for full := range l.Prompts {
				if e.Session.Matches(full) || full.Matches(e.Session) {
					found = true
					break
				}
			}
			if !found {
				return nil, malformed("session %q in attestations for %q has no prompts entry", e.Session, f.Path)
			}
		}
	}

	if err := checkSchemaCompatible(l.SchemaVersion); err != nil {
		return nil, err
	}

	return l, nil
}

// checkSchemaCompatible validates the schema_version is one this codec can
// read: same "authorship" family, same major version as the one this codec
// writes. Uses golang.org/x/mod/semver by reformatting "authorship/X.Y.Z"
// into the "vX.Y.Z" form semver expects.
func checkSchemaCompatible(version string) error {
	const prefix = "authorship/"
	if !strings.HasPrefix(version, prefix) {
		return malformed("unrecognized schema_version %q", version)
	}
	got := "v" + strings.TrimPrefix(version, prefix)
	want := "v" + strings.TrimPrefix(SchemaVersion, prefix)
	if !semver.IsValid(got) {
		return malformed("unparseable schema_version %q", version)
	}
	if semver.Major(got) != semver.Major(want) {
		return fmt.Errorf("%w: schema_version %q is a different major version than supported %q", ErrMalformedLog, version, SchemaVersion)
	}
	return nil
}

// findDividerLine returns the byte offset of the start of the line that is
// exactly "---", or -1 if no such line exists. The divider line must have no
// surrounding whitespace (spec §4.2).
func findDividerLine(text string) int {
	offset := 0
	lines := strings.SplitAfter(text, "\n")
	for _, line := range lines {
		trimmed := strings.TrimSuffix(line, "\n")
		if trimmed == divider {
			return offset
		}
		offset += len(line)
	}
	return -1
}

// parseAttestationSection parses the file-path / indented-entry lines
// preceding the divider.
func parseAttestationSection(section string) ([]FileAttestations, error) {
	var files []FileAttestations
	var current *FileAttestations

	scanner := bufio.NewScanner(strings.NewReader(section))
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, entryIndent) && !strings.HasPrefix(line, entryIndent+" ") {
			if current == nil {
				return nil, malformed("line %d: attestation entry with no preceding file path", lineNo)
			}
			session, lines, err := parseEntryLine(strings.TrimPrefix(line, entryIndent))
			if err != nil {
				return nil, malformed("line %d: %v", lineNo, err)
			}
			current.Entries = append(current.Entries, Attestation{Session: session, Lines: lines})
			continue
		}
		if strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t") {
			return nil, malformed("line %d: bad indentation (must be exactly two spaces)", lineNo)
		}
		// File path line.
		path, err := unquotePath(line)
		if err != nil {
			return nil, malformed("line %d: %v", lineNo, err)
		}
		files = append(files, FileAttestations{Path: path})
		current = &files[len(files)-1]
	}
	if err := scanner.Err(); err != nil {
		return nil, malformed("reading attestation section: %v", err)
	}
	return files, nil
}

func unquotePath(line string) (string, error) {
	if len(line) >= 2 && line[0] == '"' && line[len(line)-1] == '"' {
		inner := line[1 : len(line)-1]
		if strings.Contains(inner, `"`) {
			return "", fmt.Errorf("quoted path contains an embedded quote: %q", line)
		}
		return inner, nil
	}
	if strings.Contains(line, `"`) {
		return "", fmt.Errorf("unquoted path contains a quote character: %q", line)
	}
	return line, nil
}

func parseEntryLine(entry string) (sessionid.Hash, rangeset.Set, error) {
	sp := strings.IndexByte(entry, ' ')
	if sp < 0 {
		return sessionid.EmptyHash, nil, fmt.Errorf("entry %q missing range spec", entry)
	}
	hashPart := entry[:sp]
	rangePart := entry[sp+1:]

	hash, err := sessionid.Parse(hashPart)
	if err != nil {
		return sessionid.EmptyHash, nil, err
	}
	set, err := rangeset.Parse(rangePart)
	if err != nil {
		return sessionid.EmptyHash, nil, err
	}
	return hash, set, nil
}
