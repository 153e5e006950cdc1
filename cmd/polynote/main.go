// Package main provides the entry point for the polynote CLI tool.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ikpaetukgabriel/polynote/cmd/polynote/commands"
	"github.com/ikpaetukgabriel/polynote/pkg/version"
)

func main() {
	version.InitBinaryVersion()

	rootCmd := &cobra.Command{
		Use:   "polynote",
		Short: "Polynote - incremental notebook compilation for Go cells",
		Long: `Polynote compiles notebook cells incrementally: each cell sees the
values, types and imports of the cells before it, and reports exactly
which of them its body uses.

Commands:
  run       Compile a notebook document and show cell outputs`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(commands.NewRunCommand())
	rootCmd.AddCommand(versionCmd())

	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Fprintf(os.Stdout, "polynote %s (commit: %s, built: %s)\n", version.Version, version.Commit, version.Date)
		},
	}
}
