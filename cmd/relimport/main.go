// Package main provides the entry point for the relimport CLI tool.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/relimport/cmd/relimport/commands"
	"github.com/Sumatoshi-tech/relimport/pkg/version"
)

func main() {
	err := newRootCommand().Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	globals := &commands.GlobalFlags{}

	rootCmd := &cobra.Command{
		Use:   "relimport",
		Short: "Find the Python files that import a package",
		Long: `relimport indexes the import statements of a Python monorepo and answers
which files import a given package directory.

Commands:
  related   List files that import one or more package directories
  imports   List the import records extracted from a file or tree
  watch     Keep the index current and re-render on every change`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&globals.ConfigPath, "config", "", "config file (default: ./.relimport.yaml or ~/.relimport.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&globals.Verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVarP(&globals.Quiet, "quiet", "q", false, "suppress output")
	rootCmd.PersistentFlags().BoolVar(&globals.LogJSON, "log-json", false, "emit logs as JSON")

	rootCmd.AddCommand(commands.NewRelatedCommand(globals))
	rootCmd.AddCommand(commands.NewImportsCommand(globals))
	rootCmd.AddCommand(commands.NewWatchCommand(globals))
	rootCmd.AddCommand(versionCmd())

	return rootCmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}
