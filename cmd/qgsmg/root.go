package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/qgsmg/internal/app"
	"github.com/felixgeelhaar/qgsmg/internal/domain/compiler"
	"github.com/felixgeelhaar/qgsmg/internal/domain/config"
)

var (
	// Global flags
	cfgFile    string
	cacheDir   string
	recipeFile string
	verbose    bool
	jsonLog    bool
)

var rootCmd = &cobra.Command{
	Use:   "qgsmg [target|action]",
	Short: "Cross-compile the QGIS mobility library chain for Android",
	Long: `qgsmg builds the native libraries QGIS mobility needs for Android,
one library at a time, in recipe order, into a shared cache.

A finished library leaves a completion marker in the cache, so running
the same target again only builds what is missing. Any tool failure
stops the run; fix the cause and run it again to resume.

Run with a single target to build it with everything before it:
  qgsmg sqlite
  qgsmg qgis

Or with a maintenance action:
  qgsmg purgecache    # drop downloaded sources, keep builds
  qgsmg distclean     # wipe the cache`,
	Args:              cobra.MaximumNArgs(1),
	ValidArgsFunction: completeTargets,
	RunE:              runRoot,
	SilenceErrors:     true, // We handle error formatting ourselves
	SilenceUsage:      true, // Don't show usage on error
}

// newApp creates the application; tests replace it to inject doubles.
var newApp = func(out, errOut io.Writer) *app.App {
	return app.New(out, errOut)
}

// Execute runs the root command. SIGINT and SIGTERM cancel the running tool.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: "+config.DefaultFileName+" if present)")
	rootCmd.PersistentFlags().StringVar(&cacheDir, "cache", "", "cache root (overrides CACHE_PATH)")
	rootCmd.PersistentFlags().StringVar(&recipeFile, "recipe", "", "recipe file, YAML or HCL (default: embedded recipe)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output, including every tool invocation")
	rootCmd.PersistentFlags().BoolVar(&jsonLog, "json-log", false, "write logs as JSON")

	registerFlagCompletions()
}

func runRoot(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return cmd.Help()
	}

	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	return dispatch(cmd.Context(), a, args[0])
}

// loadApp creates and configures the application from the global flags.
func loadApp(cmd *cobra.Command) (*app.App, error) {
	a := newApp(cmd.OutOrStdout(), cmd.ErrOrStderr())

	path, required := cfgFile, true
	if path == "" {
		path, required = config.DefaultFileName, false
	}
	err := a.Configure(path, required, config.Overrides{
		CachePath: cacheDir,
		Recipe:    recipeFile,
		Verbose:   verbose,
		JSONLog:   jsonLog,
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// formatError returns a user-friendly error message.
// With verbose=false: shows only the user message and suggestion.
// With verbose=true: also shows the underlying technical error.
func formatError(err error) string {
	var msg string

	var userErr *config.UserError
	var stepErr *compiler.StepError
	switch {
	case errors.As(err, &userErr):
		msg = userErr.Message
		if userErr.Context != "" {
			msg += fmt.Sprintf(" (at %s)", userErr.Context)
		}
		if userErr.Suggestion != "" {
			msg += fmt.Sprintf("\n\nSuggestion: %s", userErr.Suggestion)
		}
		if verbose && userErr.Underlying != nil {
			msg += fmt.Sprintf("\n\nTechnical details: %v", userErr.Underlying)
		}

	case errors.As(err, &stepErr):
		msg = stepErr.Error()
		if stepErr.Underlying != nil && (verbose || stepErr.Code == compiler.ErrCodeApplyFailed) {
			msg += fmt.Sprintf(": %v", stepErr.Underlying)
		}
		if stepErr.Suggestion != "" {
			msg += fmt.Sprintf("\n\nSuggestion: %s", stepErr.Suggestion)
		}

	default:
		msg = err.Error()
	}

	if tool := app.FailedTool(err); tool != "" {
		msg += fmt.Sprintf("\n\nFailed tool: %s", tool)
	}
	return msg
}

// printError prints an error message to stderr with proper formatting.
func printError(err error) {
	printErrorTo(os.Stderr, err)
}

// printErrorTo prints an error message to the given writer.
func printErrorTo(w io.Writer, err error) {
	_, _ = fmt.Fprintf(w, "Error: %s\n", formatError(err))
}

// registerFlagCompletions sets up custom completions for global flags.
func registerFlagCompletions() {
	// Complete --config with YAML files
	_ = rootCmd.RegisterFlagCompletionFunc("config", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"yaml", "yml"}, cobra.ShellCompDirectiveFilterFileExt
	})

	// Complete --recipe with recipe formats
	_ = rootCmd.RegisterFlagCompletionFunc("recipe", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"yaml", "yml", "hcl"}, cobra.ShellCompDirectiveFilterFileExt
	})

	// Complete --cache with directories
	_ = rootCmd.RegisterFlagCompletionFunc("cache", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return nil, cobra.ShellCompDirectiveFilterDirs
	})
}

// completeTargets completes recipe targets and maintenance actions.
func completeTargets(cmd *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	names := actionNames()
	a := newApp(io.Discard, io.Discard)
	if err := a.Configure(config.DefaultFileName, false, config.Overrides{CachePath: cacheDir, Recipe: recipeFile}); err == nil {
		if r, err := a.Recipe(); err == nil {
			names = append(names, r.Targets()...)
		}
	}
	return names, cobra.ShellCompDirectiveNoFileComp
}
