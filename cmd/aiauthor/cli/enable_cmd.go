package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aiauthor/cli/cmd/aiauthor/cli/config"
)

func newEnableCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "enable",
		Short: "Enable attribution tracking for this repository",
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings, err := config.Load()
			if err != nil {
				return err
			}
			settings.Enabled = true
			if err := config.Save(settings); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Attribution tracking enabled.")
			return nil
		},
	}
}

func newDisableCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "disable",
		Short: "Disable attribution tracking for this repository",
		Long:  "Disables checkpoint recording. Existing notes are left untouched; the VCS wrapper skips recording new checkpoints until re-enabled.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings, err := config.Load()
			if err != nil {
				return err
			}
			settings.Enabled = false
			if err := config.Save(settings); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Attribution tracking disabled.")
			return nil
		},
	}
}
