package cli

import (
	"os"

	"github.com/charmbracelet/huh"
)

// NewAccessibleForm builds a huh.Form that falls back to huh's plain
// accessible mode when the ACCESSIBLE environment variable is set, matching
// the contract documented in the root command's long help text: screen
// readers get simple text prompts instead of the interactive TUI.
func NewAccessibleForm(groups ...*huh.Group) *huh.Form {
	form := huh.NewForm(groups...)
	if os.Getenv("ACCESSIBLE") != "" {
		form = form.WithAccessible(true)
	}
	return form
}
