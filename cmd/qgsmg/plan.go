package main

import (
	"github.com/spf13/cobra"
)

var planCmd = &cobra.Command{
	Use:   "plan [target]",
	Short: "Show which steps a build would run",
	Long: `Plan checks every step of the chain against its completion marker and
prints which ones a build would run.`,
	Args:              cobra.MaximumNArgs(1),
	ValidArgsFunction: completeStepNames,
	RunE:              runPlan,
}

var planMinimal bool

func init() {
	planCmd.Flags().BoolVar(&planMinimal, "minimal", false, "Plan only the target's declared prerequisites")

	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) error {
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	_, err = a.PrintPlan(cmd.Context(), targetArg(args), planMinimal)
	return err
}
