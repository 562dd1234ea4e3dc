// Package cli implements the simd-tracker command line.
package cli

import (
	"github.com/spf13/cobra"
)

var (
	configFile string
	verbose    bool
	jsonLogs   bool
)

var rootCmd = &cobra.Command{
	Use:   "simd-tracker",
	Short: "Track SIMD proposals, pull requests and discussions from GitHub",
	Long: `simd-tracker mirrors the Solana Improvement Documents repository into a
relational store and keeps it current with incremental sync runs.

Use 'simd-tracker serve' for the HTTP trigger surface and scheduler, or run a
single engine with 'simd-tracker sync'.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (yaml, json or toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&jsonLogs, "json-logs", false, "Log as JSON (defaults to log.json)")
}
