package main

import (
	"github.com/spf13/cobra"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve [target]",
	Short: "List the steps a build of target walks",
	Long: `Resolve prints the recipe chain up to and including the target, in
build order. Nothing is checked or built.`,
	Args:              cobra.MaximumNArgs(1),
	ValidArgsFunction: completeStepNames,
	RunE:              runResolve,
}

var resolveExplain bool

func init() {
	resolveCmd.Flags().BoolVar(&resolveExplain, "explain", false, "Describe each step's sources, actions and strategy")

	rootCmd.AddCommand(resolveCmd)
}

func runResolve(cmd *cobra.Command, args []string) error {
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	_, err = a.Resolve(targetArg(args), resolveExplain)
	return err
}
