// Package sessionid computes and validates session hashes: the stable
// 16-hex-character fingerprint identifying one agent conversation (spec §3).
// This is a separate package, with no dependency on checkpoint/authorshiplog,
// to avoid import cycles (mirrors the teacher's checkpoint/id split).
package sessionid

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"regexp"
)

// Hash is a session fingerprint. Full form is 16 lowercase hex characters;
// readers must also accept 7-16 character prefixes from older logs.
//
//nolint:recvcheck // UnmarshalJSON requires a pointer receiver; others use value receivers (same pattern as checkpoint.id.CheckpointID)
type Hash string

// EmptyHash represents an unset session hash.
const EmptyHash Hash = ""

// FullPattern is the regex pattern for a freshly-written session hash.
const FullPattern = `[0-9a-f]{16}`

// ReadPattern is the regex pattern accepted when reading: 7-16 hex chars.
const ReadPattern = `[0-9a-f]{7,16}`

var (
	fullRegex = regexp.MustCompile(`^` + FullPattern + `$`)
	readRegex = regexp.MustCompile(`^` + ReadPattern + `$`)
)

// Compute derives the session hash from a tool name and conversation id, as
// the first 16 hex characters of SHA-256("{tool}:{conversation_id}").
func Compute(tool, conversationID string) Hash {
	sum := sha256.Sum256([]byte(tool + ":" + conversationID))
	return Hash(hex.EncodeToString(sum[:])[:16])
}

// Parse validates a string read from an authorship log (7-16 hex chars) and
// returns it as a Hash.
func Parse(s string) (Hash, error) {
	if !readRegex.MatchString(s) {
		return EmptyHash, fmt.Errorf("invalid session hash %q: must be 7-16 lowercase hex characters", s)
	}
	return Hash(s), nil
}

// Validate checks a Hash is well-formed for writing (exactly 16 hex chars).
func (h Hash) Validate() error {
	if !fullRegex.MatchString(string(h)) {
		return fmt.Errorf("invalid session hash %q: must be exactly 16 lowercase hex characters", string(h))
	}
	return nil
}

// IsEmpty reports whether the hash is unset.
func (h Hash) IsEmpty() bool {
	return h == EmptyHash
}

// String returns the hash as a string.
func (h Hash) String() string {
	return string(h)
}

// Matches reports whether a (possibly short, read-time) hash refers to the
// same session as a full 16-char hash, by prefix comparison. Used when
// resolving legacy 7-char references against the authoritative prompts map.
func (h Hash) Matches(full Hash) bool {
	if len(h) > len(full) {
		return false
	}
	return full[:len(h)] == h
}

// AgentID identifies the agent that produced a session: tool, id, model.
type AgentID struct {
	Tool  string `json:"tool"`
	ID    string `json:"id"`
	Model string `json:"model"`
}

// SessionHash computes this agent's session hash from its conversation id.
func (a AgentID) SessionHash() Hash {
	return Compute(a.Tool, a.ID)
}

// MarshalJSON implements json.Marshaler.
func (h Hash) MarshalJSON() ([]byte, error) {
	data, err := json.Marshal(string(h))
	if err != nil {
		return nil, fmt.Errorf("marshal session hash: %w", err)
	}
	return data, nil
}

// UnmarshalJSON implements json.Unmarshaler, accepting the read-time pattern.
func (h *Hash) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("unmarshal session hash: %w", err)
	}
	if s == "" {
		*h = EmptyHash
		return nil
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}
