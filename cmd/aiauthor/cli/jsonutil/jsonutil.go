// Package jsonutil provides JSON utilities with consistent, deterministic
// formatting so that identical logical content hashes identically on disk.
package jsonutil

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// MarshalIndentWithNewline is like json.MarshalIndent but adds a trailing
// newline and disables HTML escaping, giving POSIX-friendly, diff-stable
// output for files committed to the notes store.
func MarshalIndentWithNewline(v any, prefix, indent string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent(prefix, indent)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("encoding JSON: %w", err)
	}
	return buf.Bytes(), nil
}

// MarshalCompact marshals v with sorted map keys (Go's encoding/json already
// sorts map[string]X keys) and no HTML escaping, with no trailing newline.
// Used where the caller wants full control over surrounding whitespace (e.g.
// embedding within the authorship log wire format's metadata section).
func MarshalCompact(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("encoding JSON: %w", err)
	}
	out := buf.Bytes()
	// json.Encoder.Encode always appends a trailing newline; trim it so the
	// caller controls the boundary precisely.
	if len(out) > 0 && out[len(out)-1] == '\n' {
		out = out[:len(out)-1]
	}
	return out, nil
}
