package main

import (
	"github.com/spf13/cobra"
)

var purgeCacheCmd = &cobra.Command{
	Use:   "purgecache",
	Short: "Remove downloaded sources, keep build outputs",
	Args:  cobra.NoArgs,
	RunE:  runAction("purgecache"),
}

var distCleanCmd = &cobra.Command{
	Use:   "distclean",
	Short: "Wipe the cache",
	Long: `Distclean runs script/distclean.sh with CACHE_PATH set when the
script exists, and removes the cache root otherwise.`,
	Args: cobra.NoArgs,
	RunE: runAction("distclean"),
}

var fetchCmd = &cobra.Command{
	Use:   "fetch [url]",
	Short: "Seed an empty cache from a prebuilt tarball",
	Long: `Fetch downloads a tarball of a built cache and extracts it into the
cache root, which must not exist yet. http(s)://, s3://bucket/key and
local paths are accepted; gzip, bzip2 and xz compression are detected.

Without a url the configured prebuilt_url is used.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runFetch,
}

func init() {
	rootCmd.AddCommand(purgeCacheCmd)
	rootCmd.AddCommand(distCleanCmd)
	rootCmd.AddCommand(fetchCmd)
}

func runAction(name string) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		a, err := loadApp(cmd)
		if err != nil {
			return err
		}
		return dispatch(cmd.Context(), a, name)
	}
}

func runFetch(cmd *cobra.Command, args []string) error {
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	return a.Fetch(cmd.Context(), targetArg(args))
}
