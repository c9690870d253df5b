package main

import (
	"github.com/spf13/cobra"
)

var cleanCmd = &cobra.Command{
	Use:   "clean <target>",
	Short: "Remove a step's outputs and completion marker",
	Long: `Clean purges the target's source, build and include directories and
its completion marker, so the next build redoes it.

Only the named step is cleaned. Steps built on top of it keep their
markers; 'qgsmg status' reports them as stale.`,
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completeStepNames,
	RunE:              runClean,
}

func init() {
	rootCmd.AddCommand(cleanCmd)
}

func runClean(cmd *cobra.Command, args []string) error {
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	return a.Clean(cmd.Context(), args[0])
}
