// Package config loads the .aiauthor/settings.json configuration file,
// adapted from the teacher's LoadEntireSettings (cmd/entire/cli/config.go):
// same load-then-merge-local-overrides shape, retargeted at this system's
// settings (enabled flag, log level, redaction, human-author label) instead
// of strategy selection.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aiauthor/cli/cmd/aiauthor/cli/jsonutil"
	"github.com/aiauthor/cli/cmd/aiauthor/cli/paths"
)

const (
	// SettingsFile is the path, relative to the repo root, to the committed
	// settings file.
	SettingsFile = ".aiauthor/settings.json"
	// SettingsLocalFile is the path to the local, uncommitted override file.
	SettingsLocalFile = ".aiauthor/settings.local.json"
)

// Settings is the .aiauthor/settings.json configuration.
type Settings struct {
	// Enabled indicates whether attribution tracking is active. When false,
	// the out-of-scope VCS wrapper should skip checkpoint recording
	// entirely. Defaults to true.
	Enabled bool `json:"enabled"`

	// LogLevel sets logging verbosity (debug, info, warn, error). Can be
	// overridden by the AIAUTHOR_LOG_LEVEL environment variable.
	LogLevel string `json:"log_level,omitempty"`

	// RedactMessages controls whether prompt transcript text is passed
	// through the redact package before being written to a committed log.
	// Defaults to true; only disabled for local debugging.
	RedactMessages *bool `json:"redact_messages,omitempty"`

	// HumanAuthorLabel is the default human_author label used for
	// PromptRecord when no more specific identity is available (spec §3).
	HumanAuthorLabel string `json:"human_author_label,omitempty"`
}

// RedactMessagesEnabled reports whether redaction is enabled, honoring the
// nil-means-default-true convention.
func (s *Settings) RedactMessagesEnabled() bool {
	return s.RedactMessages == nil || *s.RedactMessages
}

// Load reads Settings from .aiauthor/settings.json, then applies any
// .aiauthor/settings.local.json overrides on top, returning defaults if
// neither file exists.
func Load() (*Settings, error) {
	root, err := paths.RepoRoot()
	if err != nil {
		root = "."
	}

	settings := &Settings{Enabled: true}

	base := filepath.Join(root, SettingsFile)
	if err := loadInto(base, settings); err != nil {
		return nil, fmt.Errorf("config: load %s: %w", SettingsFile, err)
	}

	local := filepath.Join(root, SettingsLocalFile)
	if err := loadInto(local, settings); err != nil {
		return nil, fmt.Errorf("config: load %s: %w", SettingsLocalFile, err)
	}

	return settings, nil
}

func loadInto(path string, settings *Settings) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if err := json.Unmarshal(data, settings); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// Save writes settings to .aiauthor/settings.json under the repo root.
func Save(settings *Settings) error {
	root, err := paths.RepoRoot()
	if err != nil {
		root = "."
	}
	target := filepath.Join(root, SettingsFile)

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("config: create settings directory: %w", err)
	}

	data, err := jsonutil.MarshalIndentWithNewline(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("config: marshal settings: %w", err)
	}
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return fmt.Errorf("config: write %s: %w", target, err)
	}
	return nil
}
