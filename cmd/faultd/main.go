// Package main implements the faultd CLI for error analysis: training
// the cause classifiers, clustering error batches, predicting probable
// causes, and inspecting fingerprints and the cache.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// configPath overrides the default config file location.
	configPath string
	// version information, set at build time.
	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "faultd",
	Short: "Error report deduplication and root-cause analysis",
	Long: `faultd ingests application error reports, deduplicates them into
stable groups, and infers probable root causes by fusing a statistical
classifier, a nearest-neighbor classifier, and semantic-embedding
similarity against historically resolved errors.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.config/faultd/config.yaml)")
	rootCmd.AddCommand(trainCmd)
	rootCmd.AddCommand(clusterCmd)
	rootCmd.AddCommand(predictCmd)
	rootCmd.AddCommand(fingerprintCmd)
	rootCmd.AddCommand(cacheCmd)
}
