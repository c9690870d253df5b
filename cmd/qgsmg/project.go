package main

import (
	"github.com/spf13/cobra"
)

var createCmd = &cobra.Command{
	Use:   "create <path>",
	Short: "Scaffold a new application project",
	Long: `Create lays out a new application project:

  config/host/app.ini   package name, name and version used when packing
  config/target/        settings shipped to the device
  app/main.py           application entry point

The path must not exist.`,
	Args: cobra.ExactArgs(1),
	RunE: runCreate,
}

var packCmd = &cobra.Command{
	Use:   "pack <path>",
	Short: "Zip an application project for deployment",
	Long: `Pack writes .out/application.zip with every project file except dot
directories, config/host, APKs, editor backups and compiled python
files. Extra patterns can be excluded in the [pack] section of
config/host/app.ini.`,
	Args: cobra.ExactArgs(1),
	RunE: runPack,
}

func init() {
	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(packCmd)
}

func runCreate(cmd *cobra.Command, args []string) error {
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	return a.Create(cmd.Context(), args[0])
}

func runPack(cmd *cobra.Command, args []string) error {
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	_, err = a.Pack(cmd.Context(), args[0])
	return err
}
