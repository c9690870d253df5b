package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check configuration and build prerequisites",
	Long: `Doctor shows the resolved configuration and checks that the SDK, NDK
and Qt tools a build needs are in place. It also compiles the recipe.

Examples:
  qgsmg doctor
  NECESSITAS=/opt/necessitas qgsmg doctor`,
	Args: cobra.NoArgs,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	checks, err := a.Doctor()
	if err != nil {
		return err
	}

	missing := 0
	for _, c := range checks {
		if !c.OK {
			missing++
		}
	}
	if missing == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "\nAll prerequisites found.")
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "\n%d missing. Set NECESSITAS or sdk_root to the SDK install.\n", missing)
	return nil
}
