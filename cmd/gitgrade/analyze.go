package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/rahul4469/gitgrade/internal/analysis"
	"github.com/rahul4469/gitgrade/internal/formatter"
)

// demoDelay is the simulated latency of --mock.
var demoDelay = analysis.DefaultDemoDelay

type analyzeOptions struct {
	endpoint string
	apiKey   string
	mock     bool
	timeout  time.Duration
	output   string
}

func newAnalyzeCmd(root *rootOptions) *cobra.Command {
	opts := &analyzeOptions{}

	cmd := &cobra.Command{
		Use:   "analyze REPOSITORY",
		Short: "Analyze a repository and print its report",
		Long: `Submit a repository URL to the analysis service and print the report.

Examples:
  # Analyze with the saved endpoint and key
  gitgrade analyze https://github.com/owner/repo

  # Try the output without a running service
  gitgrade analyze https://github.com/owner/repo --mock

  # Machine-readable output against another endpoint
  gitgrade analyze owner/repo --endpoint https://grader.example.com/analyze -o json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, root, opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.endpoint, "endpoint", "", "Analysis endpoint URL (overrides the settings file)")
	cmd.Flags().StringVar(&opts.apiKey, "api-key", "", "API key sent as x-api-key (overrides the settings file)")
	cmd.Flags().BoolVar(&opts.mock, "mock", false, "Use the built-in demo report instead of calling the service")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 0, "Give up after this long (0 waits indefinitely)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Output format (human, json, yaml)")

	return cmd
}

func runAnalyze(cmd *cobra.Command, root *rootOptions, opts *analyzeOptions, repositoryRef string) error {
	settings, _, err := root.loadSettings()
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("endpoint") {
		settings.Endpoint = opts.endpoint
	}
	if flags.Changed("api-key") {
		settings.APIKey = opts.apiKey
	}
	if flags.Changed("timeout") {
		settings.Timeout = opts.timeout
	}
	if flags.Changed("output") {
		settings.Output = opts.output
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	client := analysis.NewClient(analysis.Options{
		Timeout:   settings.Timeout,
		DemoDelay: demoDelay,
		Logger:    root.logger(),
	})

	stderr := cmd.ErrOrStderr()
	s := spinner.New(spinner.CharSets[11], 100*time.Millisecond, spinner.WithWriter(stderr))
	s.Suffix = " Analyzing " + repositoryRef + "..."
	s.Start()

	report, err := client.Analyze(ctx, repositoryRef, settings.Endpoint, settings.APIKey, opts.mock)
	s.Stop()
	if err != nil {
		printAnalysisError(stderr, err)
		return &reportedError{err: err}
	}

	printSuccess(stderr, "Analysis complete")
	return formatter.DisplayReport(cmd.OutOrStdout(), report, settings.Output)
}

func printAnalysisError(w io.Writer, err error) {
	printError(w, err.Error())

	switch analysis.KindOf(err) {
	case analysis.KindAuth, analysis.KindForbidden:
		fmt.Fprintf(w, "  %s\n", color.HiBlackString("Set a key with: gitgrade config set api_key <KEY>"))
	case analysis.KindConnection:
		fmt.Fprintf(w, "  %s\n", color.HiBlackString("Change the endpoint with: gitgrade config set endpoint <URL>"))
	case analysis.KindTimeout:
		fmt.Fprintf(w, "  %s\n", color.HiBlackString("Raise the limit with --timeout or: gitgrade config set timeout <DURATION>"))
	}
}

func printSuccess(w io.Writer, msg string) {
	green := color.New(color.FgGreen)
	green.Fprintf(w, "✓ %s\n", msg)
}

func printError(w io.Writer, msg string) {
	red := color.New(color.FgRed)
	red.Fprintf(w, "✗ %s\n", msg)
}
