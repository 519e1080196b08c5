// Package main is the entry point for the snapview CLI.
//
// SnapView can be run either as a library (SDK) or as a standalone binary
// with YAML configuration. This CLI provides the standalone binary approach,
// publishing synthetic test-pattern frames so the viewer works without
// camera hardware.
//
// Usage:
//
//	snapview serve -c config.yaml    # Start the snapshot server
//	snapview validate -c config.yaml # Validate configuration
//	snapview version                 # Show version info
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information - set by GoReleaser at build time via ldflags.
// Example: go build -ldflags "-X main.version=1.0.0"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCmd is the base command when called without subcommands.
// It just displays help - actual functionality is in subcommands.
var rootCmd = &cobra.Command{
	Use:   "snapview",
	Short: "A live-refreshing camera snapshot server",
	Long: `SnapView serves the most recent camera frame over HTTP as a
live-refreshing snapshot viewer and a raw-image endpoint.

Run standalone, it publishes synthetic test-pattern frames; embed the
library to publish real camera frames.

Quick start:
  1. Create a config file (snapview.yaml)
  2. Run: snapview serve -c snapview.yaml
  3. Open http://localhost:8080 in your browser

Example config:
  camera_name: front-door
  listen: 0.0.0.0:8080
  refresh_delay: 500ms`,
	// No Run/RunE means this just shows help when called without subcommands
}

// Execute runs the root command.
// This is the main entry point called from main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// Cobra already prints the error, just exit with code 1
		os.Exit(1)
	}
}

func main() {
	Execute()
}

// versionCmd prints version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the version, commit hash, and build date of this snapview binary.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("snapview %s\n", version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built:  %s\n", date)
	},
}

func init() {
	// Register subcommands with root
	rootCmd.AddCommand(versionCmd)
}
