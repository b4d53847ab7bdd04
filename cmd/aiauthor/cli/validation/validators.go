// Package validation provides input validation functions for the aiauthor CLI.
// This package has no dependencies to avoid import cycles.
package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// pathSafeRegex matches alphanumeric characters, underscores, and hyphens only.
// Used to validate IDs that will be used in file paths or lock files.
var pathSafeRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// sessionHashRegex matches a session hash: 7 to 16 lowercase hex characters.
// Readers must accept 7-char prefixes from older logs (spec §3); writers always
// emit the full 16 characters.
var sessionHashRegex = regexp.MustCompile(`^[0-9a-f]{7,16}$`)

// rangeTokenRegex matches one range-spec token: a single int or a dash-joined
// pair of ints (shape only; the pair's order is not checked).
var rangeTokenRegex = regexp.MustCompile(`^[0-9]+(-[0-9]+)?$`)

// ValidateSessionID validates that an identifier doesn't contain path separators.
// This prevents path traversal attacks when IDs are used in file paths.
func ValidateSessionID(id string) error {
	if id == "" {
		return errors.New("session ID cannot be empty")
	}
	if strings.ContainsAny(id, "/\\") {
		return fmt.Errorf("invalid session ID %q: contains path separators", id)
	}
	return nil
}

// ValidatePathSafe validates that an identifier contains only path-safe characters.
func ValidatePathSafe(label, id string) error {
	if id == "" {
		return nil
	}
	if !pathSafeRegex.MatchString(id) {
		return fmt.Errorf("invalid %s %q: must be alphanumeric with underscores/hyphens only", label, id)
	}
	return nil
}

// ValidateSessionHash validates a session hash string against the accepted
// read-time pattern (7-16 lowercase hex characters).
func ValidateSessionHash(hash string) error {
	if !sessionHashRegex.MatchString(hash) {
		return fmt.Errorf("invalid session hash %q: must be 7-16 lowercase hex characters", hash)
	}
	return nil
}

// ValidateRangeToken validates the shape of a single range-spec token (N or
// N-M). It does not check N<=M or that N is positive.
func ValidateRangeToken(token string) error {
	if !rangeTokenRegex.MatchString(token) {
		return fmt.Errorf("invalid range token %q", token)
	}
	return nil
}
