package main

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/rahul4469/gitgrade/internal/analysis"
	"github.com/rahul4469/gitgrade/internal/config"
)

var (
	version = "dev" // Overwritten at build time
)

// rootOptions are the flags shared by every subcommand.
type rootOptions struct {
	configPath string
	verbose    bool
}

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		var reported *reportedError
		if !errors.As(err, &reported) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(exitCode(err))
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "gitgrade",
		Short: "Grade GitHub repositories with a remote analysis service",
		Long: `gitgrade submits a repository to an analysis service and prints its
score, level, per-dimension breakdown and improvement roadmap.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Disable automatic 'completion' command added by cobra
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to the settings file (default is the user config dir)")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log request details to stderr")

	rootCmd.AddCommand(
		newAnalyzeCmd(opts),
		newConfigCmd(opts),
		newVersionCmd(),
	)

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "gitgrade version %s\n", version)
		},
	}
}

func (o *rootOptions) settingsPath() (string, error) {
	if o.configPath != "" {
		return o.configPath, nil
	}
	return config.DefaultUserSettingsPath()
}

func (o *rootOptions) loadSettings() (*config.UserSettings, string, error) {
	path, err := o.settingsPath()
	if err != nil {
		return nil, "", err
	}
	s, err := config.LoadUserSettings(path)
	if err != nil {
		return nil, "", err
	}
	return s, path, nil
}

func (o *rootOptions) logger() *log.Logger {
	if o.verbose {
		return log.New(os.Stderr, "gitgrade: ", log.LstdFlags)
	}
	return log.New(io.Discard, "", 0)
}

// reportedError marks a failure that was already printed to the user.
type reportedError struct {
	err error
}

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }

func exitCode(err error) int {
	if analysis.IsKind(err, analysis.KindCancelled) {
		return 130
	}
	return 1
}
