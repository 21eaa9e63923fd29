// Package main provides the cheatcheck binary: it compares every pair of the
// given files and prints the pairs whose similarity reaches the sensitivity.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const (
	Version = "0.1.0"
	appName = "cheatcheck"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var opts cliOptions

	cmd := &cobra.Command{
		Use:     "cheatcheck [flags] FILE|GLOB...",
		Short:   "Detect similar files among a set of submissions",
		Version: Version,
		Long: `cheatcheck compares every pair of input files with a normalized
edit distance and lists the pairs at or above the given sensitivity,
most similar first.

Globs are expanded by cheatcheck itself, ** included, so quote them to keep
the shell from expanding them.

Fewer than two files is not an error: cheatcheck logs it and prints an
empty report with exit status 0.`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.files = args
			opts.changed = func(name string) bool { return cmd.Flags().Changed(name) }
			return run(cmd.Context(), opts, cmd.OutOrStdout())
		},
	}

	flags := cmd.Flags()
	flags.Float64VarP(&opts.sensitivity, "sensitivity", "s", 0, "Lower bound for cheat detection, between 0 and 1 where 1 means identical files (required)")
	flags.IntVarP(&opts.jobs, "jobs", "j", 0, "Number of comparisons to run in parallel, 0 means autodetect")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Show additional debugging information")
	flags.StringVarP(&opts.logFile, "log", "l", "", "Log all comparisons to this file")
	flags.BoolVarP(&opts.damerau, "damerau", "D", false, "Use Damerau-Levenshtein distance instead of Levenshtein distance (slower)")
	flags.StringVarP(&opts.template, "template", "t", "", "Files identical to this file are not checked")
	flags.BoolVar(&opts.failFast, "fail-fast", false, "Abort on the first failed comparison")
	flags.DurationVar(&opts.timeout, "timeout", 0, "Give up after this long and report partial results (0 disables)")
	flags.BoolVar(&opts.ignoreCase, "ignore-case", false, "Compare case-insensitively")
	flags.BoolVar(&opts.collapseWhitespace, "collapse-whitespace", false, "Treat any run of whitespace as a single space")
	flags.StringVar(&opts.format, "format", "table", "Output format: table or json")

	return cmd
}
