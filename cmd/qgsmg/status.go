package main

import (
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show which steps are built and which are stale",
	Long: `Status reads each step's marker and build record. A built step is
stale when a step it takes flags from finished after it, or when the
recipe version differs from the recorded one. Stale steps are only
reported; rebuild them explicitly.`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	_, err = a.Status()
	return err
}
