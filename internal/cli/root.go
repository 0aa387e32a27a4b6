// Package cli provides the command-line interface for sift
package cli

import (
	"fmt"
	"os"

	"sift/internal/cli/commands"

	"github.com/spf13/cobra"
)

// Execute runs the root command and returns the exit code
func Execute() int {
	if err := NewRootCommand().Execute(); err != nil {
		// SilenceErrors keeps cobra quiet so the error prints once
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return commands.ExitError
	}
	return commands.ExitCode
}

// NewRootCommand creates the root cobra command
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "sift",
		Short: "Categorize comments from compressed NDJSON archives",
		Long: `sift streams compressed newline-delimited JSON comment archives, keeps the
records created inside a date window and flags each one against a table of
keyword categories.

Rows are written to a CSV file and, when configured, to Postgres and ClickHouse.
Every flag can also be set through SIFT_* environment variables.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(commands.NewRunCommand())
	rootCmd.AddCommand(commands.NewCategoriesCommand())
	rootCmd.AddCommand(commands.NewVersionCommand())

	return rootCmd
}
