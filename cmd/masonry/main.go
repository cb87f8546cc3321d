// Package main provides the entry point for the masonry CLI tool.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/masonry/cmd/masonry/commands"
	"github.com/Sumatoshi-tech/masonry/pkg/version"
)

func main() {
	version.InitBinaryVersion()

	env := commands.NewEnv()
	rootCmd := newRootCommand(env)

	err := rootCmd.Execute()

	shutdownErr := env.Shutdown(context.Background())
	if shutdownErr != nil {
		fmt.Fprintf(os.Stderr, "telemetry shutdown: %v\n", shutdownErr)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand(env *commands.Env) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "masonry",
		Short: "Masonry layout engine",
		Long: `Masonry lays out variable-height items in columns, shortest column first.

Commands:
  layout    Position an item file and print the result
  simulate  Scroll through an item list frame by frame
  plot      Render layout charts as HTML
  diff      Compare the layouts of two item files
  validate  Check an item file against the schema
  serve     Serve layouts over HTTP
  config    Print the effective configuration`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	env.BindFlags(rootCmd)

	// Add commands.
	rootCmd.AddCommand(commands.NewLayoutCommand(env))
	rootCmd.AddCommand(commands.NewSimulateCommand(env))
	rootCmd.AddCommand(commands.NewPlotCommand(env))
	rootCmd.AddCommand(commands.NewDiffCommand(env))
	rootCmd.AddCommand(commands.NewValidateCommand(env))
	rootCmd.AddCommand(commands.NewServeCommand(env))
	rootCmd.AddCommand(commands.NewConfigCommand(env))
	rootCmd.AddCommand(commands.NewVersionCommand())

	return rootCmd
}
