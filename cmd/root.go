// Package cmd is the ekaya-analyst command line: an HTTP/MCP server plus
// one-shot commands for asking questions and inspecting SQL.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Version is the build version, set by Execute.
	Version = "dev"

	configPath string
)

var rootCmd = &cobra.Command{
	Use:           "ekaya-analyst",
	Short:         "Answer questions about a database in plain language",
	Long:          `ekaya-analyst turns natural-language questions into validated, executed SQL against a single configured datasource.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the CLI and exits non-zero on error.
func Execute(version string) {
	Version = version
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config.yaml (default ./config.yaml, falls back to environment variables)")
}
