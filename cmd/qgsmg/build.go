package main

import (
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/qgsmg/internal/app"
)

var buildCmd = &cobra.Command{
	Use:   "build [target]",
	Short: "Build a target and every step before it",
	Long: `Build walks the recipe chain up to the target, skipping steps whose
completion marker exists and building the rest in order.

Without a target the recipe default is built. The first failing tool
stops the run; later steps are reported as skipped.

Examples:
  qgsmg build sqlite              # bzip2, ..., sqlite
  qgsmg build spatialite --minimal  # only spatialite's prerequisites
  qgsmg build qgis --dry-run      # show what would be built`,
	Args:              cobra.MaximumNArgs(1),
	ValidArgsFunction: completeStepNames,
	RunE:              runBuild,
}

var rebuildCmd = &cobra.Command{
	Use:   "rebuild <target>",
	Short: "Clean a target, then build it",
	Long: `Rebuild purges the target's outputs and marker and builds it again,
together with any missing step before it. Dependents are not rebuilt.`,
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completeStepNames,
	RunE:              runRebuild,
}

var (
	buildMinimal bool
	buildDryRun  bool
)

func init() {
	for _, c := range []*cobra.Command{buildCmd, rebuildCmd} {
		c.Flags().BoolVar(&buildMinimal, "minimal", false, "Build only the target's declared prerequisites, not the whole chain prefix")
		c.Flags().BoolVar(&buildDryRun, "dry-run", false, "Show what would be built without building")
	}

	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(rebuildCmd)
}

func buildOptions() app.BuildOptions {
	return app.BuildOptions{Minimal: buildMinimal, DryRun: buildDryRun}
}

func targetArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

func runBuild(cmd *cobra.Command, args []string) error {
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	_, err = a.Build(cmd.Context(), targetArg(args), buildOptions())
	return err
}

func runRebuild(cmd *cobra.Command, args []string) error {
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	_, err = a.Rebuild(cmd.Context(), args[0], buildOptions())
	return err
}

// completeStepNames completes recipe targets only.
func completeStepNames(cmd *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	a, err := loadApp(cmd)
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	r, err := a.Recipe()
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return r.Targets(), cobra.ShellCompDirectiveNoFileComp
}
